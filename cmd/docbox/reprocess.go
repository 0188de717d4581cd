package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docboxhq/docbox/pkg/bootstrap"
	"github.com/docboxhq/docbox/pkg/config"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/maintenance"
)

// reprocessCommand runs a single reprocess-octet-stream-files pass
// immediately (spec.md §4.9), rather than waiting for docboxd's next
// scheduled tick — useful right after fixing a mime-detection gap, to
// re-type the files that were already ingested under the old behavior.
func reprocessCommand() *command {
	c := newCommand("reprocess-octet-stream-files")
	c.Description = func() string { return "re-guess and reprocess files stuck on application/octet-stream" }

	env := c.String("env", "prod", "tenant environment to process")
	pageSize := c.Int("page-size", 1000, "rows fetched per page")
	concurrency := c.Int("concurrency", 50, "files reprocessed concurrently per page")

	c.Action = func(args []string) error {
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
			coord, err := backends.Deps.CoordinatorFor(ctx, &t)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reprocess: tenant %s: %v\n", t.ID, err)
				failures++
				continue
			}
			err = maintenance.ReprocessOctetStreamFiles(ctx, coord.Pool, coord, *pageSize, *concurrency, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reprocess: tenant %s: %v\n", t.ID, err)
				failures++
				continue
			}
			fmt.Printf("reprocessed %s (%s)\n", t.ID, t.DisplayName)
		}
		if failures > 0 {
			return fmt.Errorf("reprocess-octet-stream-files: %d tenant(s) failed", failures)
		}
		return nil
	}

	return c
}
