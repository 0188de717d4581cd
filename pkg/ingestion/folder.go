package ingestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/events"
	"github.com/docboxhq/docbox/pkg/searchindex"
)

// FolderInput describes a folder to be created.
type FolderInput struct {
	Scope     string
	ParentID  uuid.UUID
	Name      string
	CreatedBy *string
}

// CreateFolder inserts the folder row, indexes it, and publishes
// FolderCreated once the transaction commits.
func (c *Coordinator) CreateFolder(ctx context.Context, in FolderInput) (*db.Folder, error) {
	id := uuid.New()
	row := db.Folder{
		ID: id, Scope: in.Scope, ParentID: &in.ParentID, Name: in.Name,
		CreatedAt: time.Now(), CreatedBy: in.CreatedBy,
	}

	err := c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.CreateFolder(ctx, tx, row); err != nil {
			return errors.Wrap(err, "ingestion: insert folder row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc := searchindex.Document{
		Type: searchindex.ItemFolder, FolderID: in.ParentID, Scope: in.Scope,
		ItemID: id, Name: in.Name, CreatedAt: row.CreatedAt, CreatedBy: in.CreatedBy,
	}
	if err := c.Index.AddData(ctx, doc); err != nil {
		c.Logger.Error().Err(err).Str("id", id.String()).Msg("index folder")
	}

	c.Events.Publish(ctx, events.Event{
		Type: events.TypeFolderCreated,
		Data: events.FolderCreated{Scope: in.Scope, ID: id, Name: in.Name},
	})
	return &row, nil
}

// FolderUpdate describes the requested change to an existing folder: Name
// and/or NewParentID move/rename the row, appending an EditHistory entry
// for whichever field actually changes (spec.md §4.6 "Folder update").
type FolderUpdate struct {
	Name        *string
	NewParentID *uuid.UUID
	UserID      *string
}

// UpdateFolder validates the move target (same scope, not the folder
// itself, not one of its own descendants), appends edit history, applies
// the change, commits, then patches the search index outside the
// transaction.
func (c *Coordinator) UpdateFolder(ctx context.Context, scope string, id uuid.UUID, upd FolderUpdate) error {
	current, err := db.FindFolder(ctx, c.Pool.DB, scope, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("folder")
		}
		return errors.Wrap(err, "ingestion: find folder")
	}
	if err := ensureNotRoot(current, "the scope root folder cannot be renamed or moved directly"); err != nil {
		return err
	}

	if upd.NewParentID != nil {
		if *upd.NewParentID == id {
			return errtypes.InvalidInput("a folder cannot be moved into itself")
		}
		if _, err := db.FindFolder(ctx, c.Pool.DB, scope, *upd.NewParentID); err != nil {
			if err == sql.ErrNoRows {
				return errtypes.InvalidInput("target folder does not exist in this scope")
			}
			return errors.Wrap(err, "ingestion: find target folder")
		}
		isDescendant, err := db.IsDescendantOf(ctx, c.Pool.DB, scope, *upd.NewParentID, id)
		if err != nil {
			return errors.Wrap(err, "ingestion: check folder ancestry")
		}
		if isDescendant {
			return errtypes.InvalidInput("a folder cannot be moved into one of its own descendants")
		}
	}

	err = c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if upd.NewParentID != nil {
			meta, _ := json.Marshal(map[string]uuid.UUID{"new_parent_id": *upd.NewParentID})
			if err := db.CreateEditHistory(ctx, tx, db.EditHistory{
				ID: uuid.New(), TargetID: id, UserID: upd.UserID,
				Type: db.EditMoveToFolder, Metadata: meta, CreatedAt: time.Now(),
			}); err != nil {
				return errors.Wrap(err, "ingestion: record move edit history")
			}
			if err := db.MoveFolder(ctx, tx, id, *upd.NewParentID); err != nil {
				return errors.Wrap(err, "ingestion: move folder")
			}
		}
		if upd.Name != nil {
			meta, _ := json.Marshal(map[string]string{"new_name": *upd.Name})
			if err := db.CreateEditHistory(ctx, tx, db.EditHistory{
				ID: uuid.New(), TargetID: id, UserID: upd.UserID,
				Type: db.EditRename, Metadata: meta, CreatedAt: time.Now(),
			}); err != nil {
				return errors.Wrap(err, "ingestion: record rename edit history")
			}
			if err := db.RenameFolder(ctx, tx, id, *upd.Name); err != nil {
				return errors.Wrap(err, "ingestion: rename folder")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	patch := searchindex.Document{
		Type: searchindex.ItemFolder, Scope: scope, ItemID: id,
		Name: current.Name, CreatedAt: current.CreatedAt, CreatedBy: current.CreatedBy,
	}
	if upd.Name != nil {
		patch.Name = *upd.Name
	}
	if upd.NewParentID != nil {
		patch.FolderID = *upd.NewParentID
	} else if current.ParentID != nil {
		patch.FolderID = *current.ParentID
	}
	if err := c.Index.UpdateData(ctx, id, patch); err != nil {
		c.Logger.Error().Err(err).Str("id", id.String()).Msg("patch folder index")
	}
	return nil
}

// ensureNotRoot rejects an update or delete against a scope's root folder
// (spec.md §3 folder invariant: a root folder can only be removed or
// changed by deleting the whole scope). message names the rejected
// operation in the returned error.
func ensureNotRoot(f *db.Folder, message string) error {
	if f.IsRoot() {
		return errtypes.InvalidInput(message)
	}
	return nil
}

// item is one entry on the folder-delete traversal stack. A folder
// appears twice: once unresolved (push children, then re-push self as an
// empty-folder sentinel) and once as the sentinel (now safe to delete).
type item struct {
	kind        itemKind
	id          uuid.UUID
	name        string
	folderEmpty bool
}

type itemKind int

const (
	kindFolder itemKind = iota
	kindFile
	kindLink
	kindEmptyFolder
)

// DeleteFolder recursively deletes a folder and everything beneath it,
// using an explicit stack rather than Go call-stack recursion so
// arbitrarily deep trees don't risk stack exhaustion (spec.md §4.6
// "Folder delete"). The scope's root folder can only be removed through
// scope deletion (pkg/docbox), never directly.
func (c *Coordinator) DeleteFolder(ctx context.Context, scope string, folderID uuid.UUID) error {
	root, err := db.FindFolder(ctx, c.Pool.DB, scope, folderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("folder")
		}
		return errors.Wrap(err, "ingestion: find folder")
	}
	if err := ensureNotRoot(root, "the scope root folder can only be removed by deleting the scope"); err != nil {
		return err
	}

	stack := []item{{kind: kindFolder, id: folderID, name: root.Name}}
	return c.drainDeleteStack(ctx, scope, stack)
}

// DeleteScopeRoot deletes a scope's root folder and everything beneath it,
// including the root folder's own row, emitting FolderDeleted for it like
// any other folder. Unlike DeleteFolder, it does not refuse a root folder:
// it exists solely for pkg/docbox's scope-delete path (spec.md §4.8
// "Delete"), which is the one caller allowed to remove a scope's root,
// grounded on original_source's delete_document_box calling the same
// delete_folder used for ordinary folders directly against the root.
func (c *Coordinator) DeleteScopeRoot(ctx context.Context, scope string, folderID uuid.UUID) error {
	root, err := db.FindFolder(ctx, c.Pool.DB, scope, folderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "ingestion: find root folder")
	}
	stack := []item{{kind: kindFolder, id: folderID, name: root.Name}}
	return c.drainDeleteStack(ctx, scope, stack)
}

// expandFolderFrame returns the stack frames pushed when a folder is popped
// during delete traversal: the folder's own empty-folder sentinel (pushed
// first, so LIFO pop order visits it last) followed by its children, files,
// and links in listing order. A pure function of one folder's listing, so
// the resulting pop order is unit-testable without a database.
func expandFolderFrame(id uuid.UUID, name string, children []db.Folder, files []db.File, links []db.Link) []item {
	frames := []item{{kind: kindEmptyFolder, id: id, name: name}}
	for _, f := range children {
		frames = append(frames, item{kind: kindFolder, id: f.ID, name: f.Name})
	}
	for _, f := range files {
		frames = append(frames, item{kind: kindFile, id: f.ID, name: f.Name})
	}
	for _, l := range links {
		frames = append(frames, item{kind: kindLink, id: l.ID, name: l.Name})
	}
	return frames
}

func (c *Coordinator) drainDeleteStack(ctx context.Context, scope string, stack []item) error {
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.kind {
		case kindFolder:
			children, err := db.FolderChildren(ctx, c.Pool.DB, scope, cur.id)
			if err != nil {
				return errors.Wrap(err, "ingestion: list child folders")
			}
			files, err := db.FilesInFolder(ctx, c.Pool.DB, cur.id)
			if err != nil {
				return errors.Wrap(err, "ingestion: list folder files")
			}
			links, err := db.LinksInFolder(ctx, c.Pool.DB, cur.id)
			if err != nil {
				return errors.Wrap(err, "ingestion: list folder links")
			}

			stack = append(stack, expandFolderFrame(cur.id, cur.name, children, files, links)...)

		case kindFile:
			if err := c.DeleteFile(ctx, scope, cur.id); err != nil {
				return errors.Wrapf(err, "ingestion: delete file %s during folder delete", cur.id)
			}

		case kindLink:
			if err := c.DeleteLink(ctx, scope, cur.id); err != nil {
				return errors.Wrapf(err, "ingestion: delete link %s during folder delete", cur.id)
			}

		case kindEmptyFolder:
			if err := c.Index.DeleteData(ctx, cur.id); err != nil {
				c.Logger.Error().Err(err).Str("id", cur.id.String()).Msg("delete folder search document")
			}
			affected, err := db.DeleteFolderRow(ctx, c.Pool.DB, cur.id)
			if err != nil {
				return errors.Wrapf(err, "ingestion: delete folder row %s", cur.id)
			}
			if affected > 0 {
				c.Events.Publish(ctx, events.Event{
					Type: events.TypeFolderDeleted,
					Data: events.FolderDeleted{Scope: scope, ID: cur.id, Name: cur.name},
				})
			}
		}
	}
	return nil
}
