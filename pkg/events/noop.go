package events

import (
	"context"

	"github.com/google/uuid"
)

// noopBackend swallows every publish. Used where the events section of the
// config has driver = "noop", or wherever a caller needs a Publisher but
// has nowhere to send events (spec.md §4.4, §7: a publish failure must
// never block or fail the operation that triggered it).
type noopBackend struct{}

// NewNoopPublisher builds a Publisher that discards everything it is given.
func NewNoopPublisher(tenantID uuid.UUID) *Publisher {
	return &Publisher{backend: noopBackend{}, tenantID: tenantID}
}

func (noopBackend) publish(context.Context, uuid.UUID, Event) {}
