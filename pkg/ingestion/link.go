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

// LinkInput describes a link to be created.
type LinkInput struct {
	Scope     string
	FolderID  uuid.UUID
	Name      string
	Value     string
	CreatedBy *string
}

// CreateLink inserts the link row, indexes it, and publishes LinkCreated.
func (c *Coordinator) CreateLink(ctx context.Context, in LinkInput) (*db.Link, error) {
	id := uuid.New()
	row := db.Link{
		ID: id, FolderID: in.FolderID, Name: in.Name, Value: in.Value,
		CreatedAt: time.Now(), CreatedBy: in.CreatedBy,
	}

	err := c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.CreateLink(ctx, tx, row); err != nil {
			return errors.Wrap(err, "ingestion: insert link row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	content := in.Value
	doc := searchindex.Document{
		Type: searchindex.ItemLink, FolderID: in.FolderID, Scope: in.Scope,
		ItemID: id, Name: in.Name, Content: &content, CreatedAt: row.CreatedAt, CreatedBy: in.CreatedBy,
	}
	if err := c.Index.AddData(ctx, doc); err != nil {
		c.Logger.Error().Err(err).Str("id", id.String()).Msg("index link")
	}

	c.Events.Publish(ctx, events.Event{
		Type: events.TypeLinkCreated,
		Data: events.LinkCreated{Scope: in.Scope, ID: id, Name: in.Name, Value: in.Value},
	})
	return &row, nil
}

// LinkUpdate describes the requested change to an existing link.
type LinkUpdate struct {
	Name        *string
	Value       *string
	NewFolderID *uuid.UUID
	UserID      *string
}

// UpdateLink appends edit history per changed field, applies the change,
// commits, then patches the search index (spec.md §4.6 "Link update").
func (c *Coordinator) UpdateLink(ctx context.Context, scope string, id uuid.UUID, upd LinkUpdate) error {
	current, err := db.FindLink(ctx, c.Pool.DB, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("link")
		}
		return errors.Wrap(err, "ingestion: find link")
	}

	if upd.NewFolderID != nil {
		if _, err := db.FindFolder(ctx, c.Pool.DB, scope, *upd.NewFolderID); err != nil {
			if err == sql.ErrNoRows {
				return errtypes.InvalidInput("target folder does not exist in this scope")
			}
			return errors.Wrap(err, "ingestion: find target folder")
		}
	}

	err = c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if upd.NewFolderID != nil {
			meta, _ := json.Marshal(map[string]uuid.UUID{"new_parent_id": *upd.NewFolderID})
			if err := db.CreateEditHistory(ctx, tx, db.EditHistory{
				ID: uuid.New(), TargetID: id, UserID: upd.UserID,
				Type: db.EditMoveToFolder, Metadata: meta, CreatedAt: time.Now(),
			}); err != nil {
				return errors.Wrap(err, "ingestion: record move edit history")
			}
			if err := db.MoveLink(ctx, tx, id, *upd.NewFolderID); err != nil {
				return errors.Wrap(err, "ingestion: move link")
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
			if err := db.RenameLink(ctx, tx, id, *upd.Name); err != nil {
				return errors.Wrap(err, "ingestion: rename link")
			}
		}
		if upd.Value != nil {
			meta, _ := json.Marshal(map[string]string{"new_value": *upd.Value})
			if err := db.CreateEditHistory(ctx, tx, db.EditHistory{
				ID: uuid.New(), TargetID: id, UserID: upd.UserID,
				Type: db.EditLinkValue, Metadata: meta, CreatedAt: time.Now(),
			}); err != nil {
				return errors.Wrap(err, "ingestion: record link value edit history")
			}
			if err := db.RenameLinkValue(ctx, tx, id, *upd.Value); err != nil {
				return errors.Wrap(err, "ingestion: update link value")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	name := current.Name
	value := current.Value
	folderID := current.FolderID
	if upd.Name != nil {
		name = *upd.Name
	}
	if upd.Value != nil {
		value = *upd.Value
	}
	if upd.NewFolderID != nil {
		folderID = *upd.NewFolderID
	}
	patch := searchindex.Document{
		Type: searchindex.ItemLink, Scope: scope, ItemID: id, FolderID: folderID,
		Name: name, Content: &value, CreatedAt: current.CreatedAt, CreatedBy: current.CreatedBy,
	}
	if err := c.Index.UpdateData(ctx, id, patch); err != nil {
		c.Logger.Error().Err(err).Str("id", id.String()).Msg("patch link index")
	}
	return nil
}

// DeleteLink removes a link's search document and row, publishing
// LinkDeleted only if the row delete affected a row.
func (c *Coordinator) DeleteLink(ctx context.Context, scope string, linkID uuid.UUID) error {
	l, err := db.FindLink(ctx, c.Pool.DB, linkID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("link")
		}
		return errors.Wrap(err, "ingestion: find link")
	}

	if err := c.Index.DeleteData(ctx, linkID); err != nil {
		c.Logger.Error().Err(err).Str("id", linkID.String()).Msg("delete link search document")
	}

	affected, err := db.DeleteLinkRow(ctx, c.Pool.DB, linkID)
	if err != nil {
		return errors.Wrap(err, "ingestion: delete link row")
	}
	if affected == 0 {
		return nil
	}

	c.Events.Publish(ctx, events.Event{
		Type: events.TypeLinkDeleted,
		Data: events.LinkDeleted{Scope: scope, ID: linkID, Name: l.Name},
	})
	return nil
}
