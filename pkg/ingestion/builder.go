package ingestion

import (
	"context"

	microevents "go-micro.dev/v4/events"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/events"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/processing"
	"github.com/docboxhq/docbox/pkg/searchindex"
	"github.com/docboxhq/docbox/pkg/tenant"
)

// Deps bundles the shared, process-wide backends a Coordinator is built
// from: one DatabasePoolCache, blobstore/searchindex factory, and events
// sink shared across every tenant, scoped down to a tenant's own pool,
// bucket, and index on each CoordinatorFor call.
type Deps struct {
	Pools      *tenant.DatabasePoolCache
	Blobs      *blobstore.Factory
	Search     *searchindex.Factory
	EventsKind events.Kind
	Stream     microevents.Stream // set when EventsKind == events.KindNats
	Channel    events.Chan        // set when EventsKind == events.KindChannel
	Pipeline   *processing.Pipeline
	Logger     *log.Logger
}

// CoordinatorFor scopes Deps down to one tenant's Coordinator, opening (or
// reusing) that tenant's database pool.
func (d *Deps) CoordinatorFor(ctx context.Context, t *tenant.Tenant) (*Coordinator, error) {
	pool, err := d.Pools.PoolFor(ctx, t)
	if err != nil {
		return nil, err
	}
	blobs := d.Blobs.LayerFor(t.BucketName)
	index := d.Search.IndexFor(t.IndexName)
	return New(pool, blobs, index, d.publisherFor(t), d.Pipeline, d.Logger), nil
}

func (d *Deps) publisherFor(t *tenant.Tenant) *events.Publisher {
	switch d.EventsKind {
	case events.KindNats:
		return events.NewQueuePublisher(t.ID, d.Stream, d.Logger)
	case events.KindChannel:
		return events.NewChannelPublisher(t.ID, d.Channel)
	default:
		return events.NewNoopPublisher(t.ID)
	}
}
