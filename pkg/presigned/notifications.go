package presigned

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	microevents "go-micro.dev/v4/events"

	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/tenant"
)

// notificationSubject is the queue subject bucket notifications land on,
// distinct from pkg/events' own "docbox-events" lifecycle subject — the
// payload shape here is the storage backend's raw S3-style event, not our
// envelope (spec.md §4.7 "Signal").
const notificationSubject = "docbox-storage-notifications"

// bucketMessage is the subset of an S3-compatible bucket notification this
// consumer needs, grounded on
// original_source/.../notifications/sqs.rs::parse_bucket_message.
type bucketMessage struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

func parseBucketMessage(raw []byte) (bucket, objectKey string, ok bool) {
	var m bucketMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m.Records) == 0 {
		return "", "", false
	}
	r := m.Records[0].S3
	if r.Bucket.Name == "" || r.Object.Key == "" {
		return "", "", false
	}
	return r.Bucket.Name, r.Object.Key, true
}

// NotificationConsumer is the long-running process that turns storage
// notifications into completed presigned uploads: resolve the bucket to a
// tenant, then run that tenant's Workflow.Complete for the reported key
// (spec.md §4.7 "Signal" and "Complete").
type NotificationConsumer struct {
	Stream   microevents.Stream
	Resolver *tenant.Resolver
	Deps     *ingestion.Deps
	Logger   *log.Logger
}

// NewNotificationConsumer builds a NotificationConsumer. logger may be nil.
func NewNotificationConsumer(stream microevents.Stream, resolver *tenant.Resolver, deps *ingestion.Deps, logger *log.Logger) *NotificationConsumer {
	if logger == nil {
		logger = log.Nop()
	}
	return &NotificationConsumer{Stream: stream, Resolver: resolver, Deps: deps, Logger: logger}
}

// Run subscribes to the notification subject and processes messages until
// ctx is cancelled, resubscribing after a pollBackoff pause if the
// underlying stream connection drops. A message that fails to parse is
// logged and dropped (poison-message draining): it is never retried, since
// a malformed notification will never become well-formed on redelivery.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	for {
		if err := c.runOnce(ctx); err != nil {
			c.Logger.Error().Err(err).Msg("storage notification subscription failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollBackoff):
			}
			continue
		}
		return nil
	}
}

func (c *NotificationConsumer) runOnce(ctx context.Context) error {
	events, err := c.Stream.Consume(notificationSubject, microevents.WithGroup("presigned-notifications"))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errStreamClosed
			}
			c.handle(ctx, ev.Payload)
		}
	}
}

var errStreamClosed = errors.New("presigned: storage notification stream closed")

func (c *NotificationConsumer) handle(ctx context.Context, payload []byte) {
	bucket, objectKey, ok := parseBucketMessage(payload)
	if !ok {
		c.Logger.Warn().Msg("discarding malformed storage notification")
		return
	}

	t, err := c.Resolver.ResolveByBucket(ctx, bucket)
	if err != nil {
		c.Logger.Error().Err(err).Str("bucket", bucket).Msg("resolve tenant by bucket")
		return
	}
	if t == nil {
		c.Logger.Warn().Str("bucket", bucket).Msg("storage notification for unknown bucket")
		return
	}

	coord, err := c.Deps.CoordinatorFor(ctx, t)
	if err != nil {
		c.Logger.Error().Err(err).Str("tenant", t.ID.String()).Msg("build coordinator for notification")
		return
	}

	wf := New(coord.Pool, coord.Blobs, coord, c.Logger.With("tenant", t.ID.String()))
	if _, err := wf.Complete(ctx, objectKey); err != nil {
		c.Logger.Error().Err(err).Str("object_key", objectKey).Msg("complete presigned upload")
	}
}

// pollBackoff is how long Run waits before resubscribing after the
// underlying stream connection drops, mirroring the original's 5s
// receive-error backoff (spec.md §5).
const pollBackoff = 5 * time.Second
