package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docboxhq/docbox/pkg/bootstrap"
	"github.com/docboxhq/docbox/pkg/config"
	"github.com/docboxhq/docbox/pkg/log"
)

// migrateSearchCommand applies a named search-index schema migration
// (spec.md §4.3 apply_migration) across every tenant whose environment
// matches -env (every tenant when -env is empty). Used for rollouts like adding the "pages" nested field to
// collections created before multi-page indexing existed.
func migrateSearchCommand() *command {
	c := newCommand("migrate-search")
	c.Description = func() string { return "apply a named search-index migration across tenants" }

	name := c.String("name", "", "migration name, e.g. pages")
	env := c.String("env", "prod", "tenant environment to migrate")

	c.Action = func(args []string) error {
		if *name == "" {
			return fmt.Errorf("migrate-search: -name is required")
		}

		cfg, err := config.LoadFromFile(*c.configPath)
		if err != nil {
			return err
		}
		logger := log.New("docbox")
		backends, err := bootstrap.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer backends.RootPool.Close()

		ctx := context.Background()
		tenants, err := backends.Resolver.All(ctx)
		if err != nil {
			return err
		}

		var failures int
		for _, t := range tenants {
			if *env != "" && t.Env != *env {
				continue
			}
			index := backends.Deps.Search.IndexFor(t.IndexName)
			if err := index.ApplyMigration(ctx, *name); err != nil {
				fmt.Fprintf(os.Stderr, "migrate-search: tenant %s: %v\n", t.ID, err)
				failures++
				continue
			}
			fmt.Printf("migrated %s (%s)\n", t.ID, t.DisplayName)
		}
		if failures > 0 {
			return fmt.Errorf("migrate-search: %d tenant(s) failed", failures)
		}
		return nil
	}

	return c
}
