// Package searchindex is the tenant full-text search layer behind a closed
// backend kind (typesense or opensearch), mirroring pkg/blobstore's
// tagged-variant shape.
package searchindex

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Kind names a search-index backend.
type Kind string

const (
	KindTypesense Kind = "typesense"
	KindOpensearch Kind = "opensearch"
)

// ItemType is the kind of entity a Document represents.
type ItemType string

const (
	ItemFile   ItemType = "File"
	ItemFolder ItemType = "Folder"
	ItemLink   ItemType = "Link"
)

// DocumentPage is one page of extracted text content, indexed alongside
// its page number so a hit can be attributed to a specific page.
type DocumentPage struct {
	Page    uint64 `json:"page"`
	Content string `json:"content"`
}

// Document is one indexable unit: a file, folder, or link within a scope.
// A multi-page file is indexed as pages within a single Document rather
// than one Document per page (spec.md §4.8).
type Document struct {
	Type      ItemType       `json:"item_type"`
	FolderID  uuid.UUID      `json:"folder_id"`
	Scope     string         `json:"document_box"`
	ItemID    uuid.UUID      `json:"item_id"`
	Name      string         `json:"name"`
	Mime      *string        `json:"mime,omitempty"`
	Content   *string        `json:"content,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy *string        `json:"created_by,omitempty"`
	Pages     []DocumentPage `json:"pages,omitempty"`
}

// SearchScore is untagged integer (typesense) or float (opensearch)
// scoring — the two backends report relevance on different scales and
// callers compare scores only within one backend's results.
type SearchScore struct {
	Integer *uint64
	Float   *float32
}

// SearchRequest scopes and filters a search.
type SearchRequest struct {
	Query         string
	Mime          string
	IncludeName   bool
	IncludeContent bool
	CreatedBy     *string
	// CreatedAt narrows the search to items created within a date range
	// (spec.md §4.3, §6 "created_at?: {start?, end?}"). Nil means
	// unfiltered; either bound within it may be nil to leave that side open.
	CreatedAt     *CreatedAtRange
	FolderID      *uuid.UUID
	// FolderIDs matches a document against any of the given folders, used
	// to scope a search to a folder and all of its descendants. Set by
	// callers instead of FolderID; the two are mutually exclusive.
	FolderIDs     []uuid.UUID
	Size          int
	Offset        uint64
	MaxPages      int
	PagesOffset   uint64
}

// CreatedAtRange is a half-open-or-closed date range filter on an item's
// created_at. A nil bound leaves that side of the range open.
type CreatedAtRange struct {
	Start *time.Time
	End   *time.Time
}

// includeFields resolves IncludeName/IncludeContent to which fields a
// search should actually match against. With neither flag set (the zero
// value), a request matches both name and content — the behavior every
// caller got before these flags existed. Setting either flag narrows the
// match to just the field(s) requested (spec.md §4.3 "search scope").
func (r SearchRequest) includeFields() (name, content bool) {
	if !r.IncludeName && !r.IncludeContent {
		return true, true
	}
	return r.IncludeName, r.IncludeContent
}

// paginatePageMatches applies PagesOffset/MaxPages to a hit's per-page
// match list (spec.md §4.3's page-result pagination), shared by both
// backends' toResults.
func paginatePageMatches(matches []PageResult, offset uint64, max int) []PageResult {
	if int(offset) >= len(matches) {
		return nil
	}
	matches = matches[offset:]
	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// PageResult is one matched page and the phrase fragments matched within it.
type PageResult struct {
	Page    uint64
	Matches []string
}

// SearchHit is one flattened match against a Document, with per-page detail.
type SearchHit struct {
	Type        ItemType
	ItemID      uuid.UUID
	Scope       string
	PageMatches []PageResult
	TotalHits   uint64
	Score       SearchScore
	NameMatch   bool
	ContentMatch bool
}

// SearchResults is a page of hits plus the total match count.
type SearchResults struct {
	Hits      []SearchHit
	TotalHits uint64
}

// backend is implemented by each concrete index kind.
type backend interface {
	CreateIndex(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	ApplyMigration(ctx context.Context, name string) error
	AddData(ctx context.Context, doc Document) error
	UpdateData(ctx context.Context, itemID uuid.UUID, doc Document) error
	DeleteData(ctx context.Context, itemID uuid.UUID) error
	DeleteByScope(ctx context.Context, scope string) error
	Search(ctx context.Context, scope string, req SearchRequest) (SearchResults, error)
}

// Index is a tenant's search backend, bound to one index/collection name.
type Index struct {
	kind    Kind
	backend backend
}

// Factory builds an Index per tenant, analogous to blobstore.Factory.
type Factory struct {
	kind       Kind
	typesense  *typesenseFactory
	opensearch *opensearchFactory
}

// NewFactory builds a Factory for the given kind and options.
func NewFactory(kind Kind, opts map[string]interface{}) (*Factory, error) {
	switch kind {
	case KindTypesense:
		f, err := newTypesenseFactory(opts)
		if err != nil {
			return nil, err
		}
		return &Factory{kind: kind, typesense: f}, nil
	case KindOpensearch:
		f, err := newOpensearchFactory(opts)
		if err != nil {
			return nil, err
		}
		return &Factory{kind: kind, opensearch: f}, nil
	default:
		return nil, errors.Errorf("searchindex: unknown provider %q", kind)
	}
}

// IndexFor scopes the factory to a tenant's index/collection name.
func (f *Factory) IndexFor(name string) *Index {
	switch f.kind {
	case KindTypesense:
		return &Index{kind: KindTypesense, backend: f.typesense.indexFor(name)}
	case KindOpensearch:
		return &Index{kind: KindOpensearch, backend: f.opensearch.indexFor(name)}
	default:
		panic("searchindex: unreachable backend kind")
	}
}

func (i *Index) CreateIndex(ctx context.Context) error { return i.backend.CreateIndex(ctx) }
func (i *Index) DeleteIndex(ctx context.Context) error { return i.backend.DeleteIndex(ctx) }

// ApplyMigration applies a named schema change to an already-created index
// (spec.md §4.3). Migrations are additive and idempotent: applying the same
// name twice against an already-migrated index is a no-op, not an error.
func (i *Index) ApplyMigration(ctx context.Context, name string) error {
	return i.backend.ApplyMigration(ctx, name)
}
func (i *Index) AddData(ctx context.Context, doc Document) error {
	return i.backend.AddData(ctx, doc)
}
func (i *Index) UpdateData(ctx context.Context, itemID uuid.UUID, doc Document) error {
	return i.backend.UpdateData(ctx, itemID, doc)
}
func (i *Index) DeleteData(ctx context.Context, itemID uuid.UUID) error {
	return i.backend.DeleteData(ctx, itemID)
}
func (i *Index) DeleteByScope(ctx context.Context, scope string) error {
	return i.backend.DeleteByScope(ctx, scope)
}
func (i *Index) Search(ctx context.Context, scope string, req SearchRequest) (SearchResults, error) {
	return i.backend.Search(ctx, scope, req)
}
