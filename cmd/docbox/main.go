// Command docbox is the administrative CLI: one-shot tenant provisioning
// and search-index maintenance operations run by an operator rather than a
// running service, grounded on cs3org-reva/cmd/reva's one-file-per-subcommand
// layout.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	name := os.Args[1]
	for _, c := range commands {
		if c.Name != name {
			continue
		}
		c.Parse(os.Args[2:])
		if err := c.Action(c.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "docbox %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "docbox: unknown command %q\n", name)
	usage()
	os.Exit(1)
}
