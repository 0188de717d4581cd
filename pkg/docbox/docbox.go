// Package docbox implements scope (document-box) lifecycle and
// cross-document search (spec.md §4.8): a scope is a DocumentBox row
// owning exactly one root Folder, and every other entity in it is
// eventually reachable by walking that folder's descendants.
package docbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/events"
	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/searchindex"
)

// rootFolderName is the fixed display name given to every scope's root
// folder, matching the original's CreateFolder{name: "Root", ...}.
const rootFolderName = "Root"

// resolveConcurrency bounds how many search hits are resolved against the
// database concurrently (spec.md §4.8, §5).
const resolveConcurrency = 20

// Service drives document-box (scope) operations for one tenant.
type Service struct {
	Pool        *db.Pool
	Index       *searchindex.Index
	Events      *events.Publisher
	Coordinator *ingestion.Coordinator
	Logger      *log.Logger
}

// New builds a Service. logger may be nil.
func New(pool *db.Pool, index *searchindex.Index, pub *events.Publisher, coord *ingestion.Coordinator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{Pool: pool, Index: index, Events: pub, Coordinator: coord, Logger: logger}
}

// CreateInput describes a scope to create.
type CreateInput struct {
	Scope     string
	CreatedBy *string
}

// CreateResult is the scope and its root folder.
type CreateResult struct {
	Box  db.DocumentBox
	Root db.Folder
}

// Create inserts the scope row and its root folder in one transaction
// (spec.md §4.8 "Create"). A duplicate scope name surfaces as
// errtypes.Conflict rather than a raw driver error.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	root := db.Folder{
		ID: uuid.New(), Scope: in.Scope, ParentID: nil, Name: rootFolderName,
		CreatedAt: time.Now(), CreatedBy: in.CreatedBy,
	}

	err := s.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.CreateDocumentBox(ctx, tx, in.Scope); err != nil {
			if isDuplicateScope(err) {
				return errtypes.Conflict(in.Scope)
			}
			return errors.Wrap(err, "docbox: insert document box row")
		}
		if err := db.CreateFolder(ctx, tx, root); err != nil {
			return errors.Wrap(err, "docbox: insert root folder row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, events.Event{
		Type: events.TypeDocumentBoxCreated,
		Data: events.DocumentBoxCreated{Scope: in.Scope},
	})
	return &CreateResult{Box: db.DocumentBox{Scope: in.Scope}, Root: root}, nil
}

// isDuplicateScope reports whether err is the MySQL duplicate-key error
// (1062) a conflicting scope name raises against the unique index.
func isDuplicateScope(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Delete recursively removes every folder/file/link in the scope via
// ingestion's folder-delete traversal, then the scope row itself and its
// search documents (spec.md §4.8 "Delete").
func (s *Service) Delete(ctx context.Context, scope string) error {
	rootID, err := db.RootFolderID(ctx, s.Pool.DB, scope)
	if err != nil {
		return errors.Wrap(err, "docbox: find root folder")
	}
	if rootID == nil {
		return errtypes.NotFound("document box scope")
	}

	if err := s.Coordinator.DeleteScopeRoot(ctx, scope, *rootID); err != nil {
		return errors.Wrap(err, "docbox: delete scope contents")
	}

	if affected, err := db.DeleteDocumentBox(ctx, s.Pool.DB, scope); err != nil {
		return errors.Wrap(err, "docbox: delete document box row")
	} else if affected == 0 {
		return errtypes.NotFound("document box scope")
	}

	if err := s.Index.DeleteByScope(ctx, scope); err != nil {
		s.Logger.Error().Err(err).Str("scope", scope).Msg("delete scope search documents")
	}

	s.Events.Publish(ctx, events.Event{
		Type: events.TypeDocumentBoxDeleted,
		Data: events.DocumentBoxDeleted{Scope: scope},
	})
	return nil
}

// SearchInput scopes and filters a cross-document search within one scope.
type SearchInput struct {
	Scope    string
	Request  searchindex.SearchRequest
	FolderID *uuid.UUID
}

// SearchResult is one hit enriched with its breadcrumb path from the
// scope's root.
type SearchResult struct {
	Hit  searchindex.SearchHit
	Path []db.Folder
}

// Search expands an optional folder filter to every descendant folder id,
// queries the search index, then resolves each hit against the database
// with resolveConcurrency in flight (spec.md §4.8 "Search"). A hit whose
// underlying row has since vanished is silently dropped rather than
// surfaced as an error: the index and database are not read under one
// transaction, so this race is expected.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]SearchResult, uint64, error) {
	req := in.Request
	if in.FolderID != nil {
		ids, err := db.DescendantFolderIDs(ctx, s.Pool.DB, in.Scope, *in.FolderID)
		if err != nil {
			return nil, 0, errors.Wrap(err, "docbox: expand folder filter")
		}
		if len(ids) == 0 {
			return nil, 0, nil
		}
		req.FolderID = nil
		req.FolderIDs = ids
	}

	results, err := s.Index.Search(ctx, in.Scope, req)
	if err != nil {
		return nil, 0, errtypes.Upstream{Op: "search index", Cause: err}
	}

	resolved := make([]SearchResult, len(results.Hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, hit := range results.Hits {
		i, hit := i, hit
		g.Go(func() error {
			r, ok, err := s.resolveHit(gctx, in.Scope, hit)
			if err != nil {
				return err
			}
			if ok {
				resolved[i] = r
			} else {
				resolved[i] = SearchResult{} // sentinel zero value, filtered below
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "docbox: resolve search hits")
	}

	out := make([]SearchResult, 0, len(resolved))
	for _, r := range resolved {
		if r.Path != nil || r.Hit.ItemID != uuid.Nil {
			out = append(out, r)
		}
	}
	return out, results.TotalHits, nil
}

func (s *Service) resolveHit(ctx context.Context, scope string, hit searchindex.SearchHit) (SearchResult, bool, error) {
	switch hit.Type {
	case searchindex.ItemFile:
		f, err := db.FindFile(ctx, s.Pool.DB, hit.ItemID)
		if err != nil {
			if err == sql.ErrNoRows {
				return SearchResult{}, false, nil
			}
			return SearchResult{}, false, err
		}
		path, err := db.ResolveFolderPath(ctx, s.Pool.DB, scope, f.FolderID)
		if err != nil {
			return SearchResult{}, false, nil
		}
		return SearchResult{Hit: hit, Path: path}, true, nil

	case searchindex.ItemFolder:
		f, err := db.FindFolder(ctx, s.Pool.DB, scope, hit.ItemID)
		if err != nil {
			if err == sql.ErrNoRows {
				return SearchResult{}, false, nil
			}
			return SearchResult{}, false, err
		}
		path, err := db.ResolveFolderPath(ctx, s.Pool.DB, scope, f.ID)
		if err != nil {
			return SearchResult{}, false, nil
		}
		return SearchResult{Hit: hit, Path: path}, true, nil

	case searchindex.ItemLink:
		l, err := db.FindLink(ctx, s.Pool.DB, hit.ItemID)
		if err != nil {
			if err == sql.ErrNoRows {
				return SearchResult{}, false, nil
			}
			return SearchResult{}, false, err
		}
		path, err := db.ResolveFolderPath(ctx, s.Pool.DB, scope, l.FolderID)
		if err != nil {
			return SearchResult{}, false, nil
		}
		return SearchResult{Hit: hit, Path: path}, true, nil

	default:
		return SearchResult{}, false, nil
	}
}
