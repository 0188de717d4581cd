// Command docboxd is the long-running daemon: it subscribes to storage
// notifications to complete presigned uploads (spec.md §4.7) and runs the
// periodic maintenance driver (spec.md §4.9). Flag layout is grounded on
// cs3org-reva/cmd/revad/main.go's "-c config file, signal-driven shutdown"
// pattern, simplified since docboxd has no gRPC/HTTP service registry of
// its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docboxhq/docbox/pkg/bootstrap"
	"github.com/docboxhq/docbox/pkg/config"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/maintenance"
	"github.com/docboxhq/docbox/pkg/presigned"
)

var configFlag = flag.String("c", "/etc/docbox/docboxd.toml", "configuration file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docboxd:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.New("docboxd")

	cfg, err := config.LoadFromFile(*configFlag)
	if err != nil {
		return err
	}

	backends, err := bootstrap.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer backends.RootPool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := maintenance.New(backends.Resolver, backends.Deps, maintenance.Config{
		PurgeInterval:        cfg.Maintenance.PurgeInterval,
		ReprocessInterval:    cfg.Maintenance.ReprocessInterval,
		ReprocessPageSize:    cfg.Maintenance.ReprocessPageSize,
		ReprocessConcurrency: cfg.Maintenance.ReprocessConcurrency,
	}, logger)

	errc := make(chan error, 1)
	go func() {
		driver.Run(ctx)
		errc <- nil
	}()

	if backends.Stream != nil {
		consumer := presigned.NewNotificationConsumer(backends.Stream, backends.Resolver, backends.Deps, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("notification consumer exited")
			}
			errc <- nil
		}()
	} else {
		logger.Warn().Msg("events driver is not nats; storage notification consumer disabled")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	<-errc
	return nil
}
