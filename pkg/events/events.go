// Package events defines docbox's lifecycle event set and the closed
// tagged-variant publisher that emits them (spec.md §4.4): a NATS
// JetStream-backed queue for production, an in-process channel for tests,
// and a no-op that swallows everything.
package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Type is the SCREAMING_SNAKE_CASE wire name of an event, per spec.md §6.
type Type string

const (
	TypeDocumentBoxCreated Type = "DOCUMENT_BOX_CREATED"
	TypeDocumentBoxDeleted Type = "DOCUMENT_BOX_DELETED"
	TypeFileCreated        Type = "FILE_CREATED"
	TypeFileDeleted        Type = "FILE_DELETED"
	TypeFolderCreated      Type = "FOLDER_CREATED"
	TypeFolderDeleted      Type = "FOLDER_DELETED"
	TypeLinkCreated        Type = "LINK_CREATED"
	TypeLinkDeleted        Type = "LINK_DELETED"
)

// DocumentBoxCreated is emitted once a scope and its root folder commit.
type DocumentBoxCreated struct {
	Scope string `json:"scope"`
}

// DocumentBoxDeleted is emitted once a scope's tree and row are gone.
type DocumentBoxDeleted struct {
	Scope string `json:"scope"`
}

// FileCreated is emitted once a file's transaction commits.
type FileCreated struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Mime  string    `json:"mime"`
}

// FileDeleted is emitted once a file row delete affects a row.
type FileDeleted struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
}

// FolderCreated is emitted once a folder's transaction commits.
type FolderCreated struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
}

// FolderDeleted is emitted once a folder row delete affects a row.
type FolderDeleted struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
}

// LinkCreated is emitted once a link's transaction commits.
type LinkCreated struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
}

// LinkDeleted is emitted once a link row delete affects a row.
type LinkDeleted struct {
	Scope string    `json:"scope"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
}

// Event pairs a typed payload with its wire Type tag.
type Event struct {
	Type Type
	Data interface{}
}

// envelope is the wire format emitted by C4 (spec.md §6): tenant id wrapped
// around the typed payload.
type envelope struct {
	TenantID uuid.UUID       `json:"tenant_id"`
	Event    Type            `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// Encode renders ev into the wire envelope for tenantID.
func Encode(tenantID uuid.UUID, ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{TenantID: tenantID, Event: ev.Type, Data: data})
}

// Decode parses a wire envelope, returning the tenant id, event type, and
// raw data payload for the caller to unmarshal into the concrete struct its
// Type identifies. Used by tests asserting round-trip fidelity (testable
// property 7).
func Decode(raw []byte) (uuid.UUID, Type, json.RawMessage, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return uuid.Nil, "", nil, err
	}
	return e.TenantID, e.Event, e.Data, nil
}

// backend is implemented by each concrete publisher kind.
type backend interface {
	publish(ctx context.Context, tenantID uuid.UUID, ev Event)
}

// Kind names a publisher backend.
type Kind string

const (
	KindNats    Kind = "nats"
	KindChannel Kind = "channel"
	KindNoop    Kind = "noop"
)

// Publisher is a tenant's fire-and-forget event sink (spec.md §4.4): no
// ordering across invocations is guaranteed, and a publish failure is always
// logged, never surfaced to the coordinator that asked for it.
type Publisher struct {
	backend  backend
	tenantID uuid.UUID
}

// Publish fires ev. The caller must only invoke this after its own DB
// transaction has committed (spec.md §4.4, §4.6 step 10).
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	p.backend.publish(ctx, p.tenantID, ev)
}
