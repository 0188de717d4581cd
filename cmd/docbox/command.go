package main

import (
	"flag"
	"fmt"
)

// command mirrors cs3org-reva/cmd/reva's command shape (a named flag.FlagSet
// plus an Action), adapted for direct os.Args dispatch instead of a REPL:
// docbox is a one-shot admin CLI, not an interactive shell.
type command struct {
	*flag.FlagSet
	Name        string
	Action      func(args []string) error
	Description func() string
	configPath  *string
}

// newCommand builds a command with its own FlagSet carrying the -c
// configuration-file flag every subcommand needs.
func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &command{FlagSet: fs, Name: name}
	c.configPath = fs.String("c", "/etc/docbox/docbox.toml", "configuration file")
	return c
}

var commands = []*command{
	createTenantCommand(),
	migrateSearchCommand(),
	reprocessCommand(),
}

func usage() {
	fmt.Println("Usage: docbox <command> [flags]")
	fmt.Println("Commands:")
	for _, c := range commands {
		desc := ""
		if c.Description != nil {
			desc = c.Description()
		}
		fmt.Printf("  %-32s %s\n", c.Name, desc)
	}
}
