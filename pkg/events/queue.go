package events

import (
	"context"

	"github.com/cenkalti/backoff"
	microevents "go-micro.dev/v4/events"

	"github.com/go-micro/plugins/v4/events/natsjs"
	"github.com/google/uuid"

	"github.com/docboxhq/docbox/pkg/log"
)

// queueName is the single NATS JetStream subject docbox publishes lifecycle
// events to; every consumer group gets its own copy, per go-micro's stream
// semantics.
const queueName = "docbox-events"

// Nats connects to the NATS JetStream server named by addr, retrying with
// exponential backoff until it succeeds or the backoff's default maximum
// elapsed time runs out, in which case the last error is returned (grounded
// on the teacher's stream.Nats).
func Nats(addr string) (microevents.Stream, error) {
	b := backoff.NewExponentialBackOff()
	var stream microevents.Stream
	op := func() error {
		s, err := natsjs.NewStream(natsjs.Address(addr))
		stream = s
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return stream, nil
}

// queueBackend publishes onto a shared go-micro events.Stream.
type queueBackend struct {
	stream microevents.Stream
	logger *log.Logger
}

// NewQueuePublisher builds a Publisher that writes onto stream, logging
// (never returning) publish failures, per spec.md §4.4.
func NewQueuePublisher(tenantID uuid.UUID, stream microevents.Stream, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Publisher{backend: &queueBackend{stream: stream, logger: logger}, tenantID: tenantID}
}

func (b *queueBackend) publish(ctx context.Context, tenantID uuid.UUID, ev Event) {
	raw, err := Encode(tenantID, ev)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}

	op := func() error {
		return b.stream.Publish(queueName, raw, microevents.WithMetadata(map[string]string{
			"eventtype": string(ev.Type),
		}))
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		b.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("publish event")
	}
}

// Consume subscribes group to every event published on the shared queue,
// returning already-decoded envelopes. A consumer that fails to decode one
// message logs and continues rather than stalling the group (grounded on
// the teacher's events.Consume).
func Consume(ctx context.Context, stream microevents.Stream, group string, logger *log.Logger) (<-chan DecodedEvent, error) {
	if logger == nil {
		logger = log.Nop()
	}
	c, err := stream.Consume(queueName, microevents.WithGroup(group))
	if err != nil {
		return nil, err
	}

	out := make(chan DecodedEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-c:
				if !ok {
					return
				}
				tenantID, typ, data, err := Decode(e.Payload)
				if err != nil {
					logger.Error().Err(err).Msg("decode event envelope")
					continue
				}
				select {
				case out <- DecodedEvent{TenantID: tenantID, Type: typ, Data: data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// DecodedEvent is one envelope handed to a consumer, with its payload left
// as raw JSON until the caller knows which concrete struct Type names.
type DecodedEvent struct {
	TenantID uuid.UUID
	Type     Type
	Data     []byte
}
