package maintenance

import (
	"context"
	"time"

	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/tenant"
)

// Config tunes the two periodic passes the Driver runs.
type Config struct {
	PurgeInterval        time.Duration
	ReprocessInterval    time.Duration
	ReprocessPageSize    int
	ReprocessConcurrency int
}

// Driver is the periodic process that iterates every tenant and runs a
// purge and/or reprocess pass against each (spec.md §4.9). It owns no
// per-tenant state itself — every tick re-resolves tenants through
// Resolver and re-opens (or reuses, via Deps' pool cache) each tenant's
// pool, bucket, and index.
type Driver struct {
	Resolver *tenant.Resolver
	Deps     *ingestion.Deps
	Config   Config
	Logger   *log.Logger
}

// New builds a Driver. logger may be nil.
func New(resolver *tenant.Resolver, deps *ingestion.Deps, cfg Config, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.ReprocessPageSize <= 0 {
		cfg.ReprocessPageSize = 1000
	}
	if cfg.ReprocessConcurrency <= 0 {
		cfg.ReprocessConcurrency = 50
	}
	return &Driver{Resolver: resolver, Deps: deps, Config: cfg, Logger: logger}
}

// Run blocks, ticking the purge and reprocess passes on their own
// independent intervals until ctx is cancelled. The two tickers run
// concurrently so a slow reprocess pass never delays presigned-task
// expiry, mirroring the pipeline's general rule that CPU/IO-heavy work
// never blocks an unrelated suspension point (spec.md §5).
func (d *Driver) Run(ctx context.Context) {
	go d.loop(ctx, d.Config.PurgeInterval, d.runPurgePass)
	d.loop(ctx, d.Config.ReprocessInterval, d.runReprocessPass)
}

func (d *Driver) loop(ctx context.Context, interval time.Duration, pass func(context.Context)) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass(ctx)
		}
	}
}

func (d *Driver) runPurgePass(ctx context.Context) {
	tenants, err := d.Resolver.All(ctx)
	if err != nil {
		d.Logger.Error().Err(err).Msg("maintenance: list tenants for purge pass")
		return
	}
	for _, t := range tenants {
		t := t
		coord, err := d.Deps.CoordinatorFor(ctx, &t)
		if err != nil {
			d.Logger.Error().Err(err).Str("tenant", t.ID.String()).Msg("maintenance: build coordinator for purge")
			continue
		}
		if err := PurgeExpiredPresignedTasks(ctx, coord.Pool, coord.Blobs, d.Logger); err != nil {
			d.Logger.Error().Err(err).Str("tenant", t.ID.String()).Msg("maintenance: purge pass")
		}
	}
}

func (d *Driver) runReprocessPass(ctx context.Context) {
	tenants, err := d.Resolver.All(ctx)
	if err != nil {
		d.Logger.Error().Err(err).Msg("maintenance: list tenants for reprocess pass")
		return
	}
	for _, t := range tenants {
		t := t
		coord, err := d.Deps.CoordinatorFor(ctx, &t)
		if err != nil {
			d.Logger.Error().Err(err).Str("tenant", t.ID.String()).Msg("maintenance: build coordinator for reprocess")
			continue
		}
		if err := ReprocessOctetStreamFiles(ctx, coord.Pool, coord, d.Config.ReprocessPageSize, d.Config.ReprocessConcurrency, d.Logger); err != nil {
			d.Logger.Error().Err(err).Str("tenant", t.ID.String()).Msg("maintenance: reprocess pass")
		}
	}
}
