// Package bootstrap turns a loaded config.Config into the shared,
// process-wide backends every entry point (cmd/docboxd's daemon, cmd/docbox's
// one-shot subcommands) wires a tenant.Resolver and ingestion.Deps from,
// grounded on cs3org-reva/cmd/revad/runtime.Run's "parse config once, hand
// the assembled backends to whichever servers are configured" shape.
package bootstrap

import (
	microevents "go-micro.dev/v4/events"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/config"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/events"
	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/processing"
	"github.com/docboxhq/docbox/pkg/processing/office"
	"github.com/docboxhq/docbox/pkg/searchindex"
	"github.com/docboxhq/docbox/pkg/tenant"
	"github.com/docboxhq/docbox/pkg/tenant/secrets"
)

// Backends bundles everything built from a config.Config: the root pool,
// tenant resolver, and the Deps every per-tenant Coordinator/Service/Workflow
// is scoped from.
type Backends struct {
	RootPool *db.Pool
	Resolver *tenant.Resolver
	Deps     *ingestion.Deps
	Stream   microevents.Stream // nil unless cfg.Events.Driver == "nats"
}

// Build opens the root database pool and assembles every shared backend
// named in cfg. It does not start any long-running loop (the notification
// consumer, the maintenance driver) — callers decide which of those to run.
func Build(cfg *config.Config, logger *log.Logger) (*Backends, error) {
	rootPool, err := db.Open(cfg.RootDatabase.DSN())
	if err != nil {
		return nil, err
	}

	secretsMgr, err := secrets.New(secrets.Config{
		Provider: secrets.Kind(cfg.Secrets.Driver),
		Options:  secretsOptions(cfg.Secrets),
	})
	if err != nil {
		return nil, err
	}
	pools := tenant.NewDatabasePoolCache(rootPool, secretsMgr)

	blobs, err := blobstore.NewFactory(blobstore.KindS3, blobstore.Options{
		"endpoint":          cfg.Storage.Endpoint,
		"region":            cfg.Storage.Region,
		"access_key_id":     cfg.Storage.AccessKey,
		"secret_access_key": cfg.Storage.SecretKey,
		"use_ssl":           cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	search, err := searchindex.NewFactory(searchindex.Kind(cfg.Search.Driver), map[string]interface{}{
		"host":    cfg.Search.Endpoint,
		"api_key": cfg.Search.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var converter processing.Converter
	if len(cfg.Converter.Addresses) > 0 {
		c, err := office.New(cfg.Converter.Addresses, cfg.Converter.Retries)
		if err != nil {
			return nil, err
		}
		converter = c
	}
	pipeline := processing.NewPipeline(converter, logger)

	eventsKind := events.Kind(cfg.Events.Driver)
	var stream microevents.Stream
	if eventsKind == events.KindNats {
		stream, err = events.Nats(cfg.Events.Address)
		if err != nil {
			return nil, err
		}
	}

	deps := &ingestion.Deps{
		Pools:      pools,
		Blobs:      blobs,
		Search:     search,
		EventsKind: eventsKind,
		Stream:     stream,
		Pipeline:   pipeline,
		Logger:     logger,
	}

	return &Backends{
		RootPool: rootPool,
		Resolver: tenant.NewResolver(rootPool),
		Deps:     deps,
		Stream:   stream,
	}, nil
}

func secretsOptions(cfg config.SecretsConfig) map[string]interface{} {
	switch secrets.Kind(cfg.Driver) {
	case secrets.KindJSON:
		return map[string]interface{}{"path": cfg.JSONPath}
	case secrets.KindAWS:
		return map[string]interface{}{"region": cfg.Region}
	default:
		return nil
	}
}
