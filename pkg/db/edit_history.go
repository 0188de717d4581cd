package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EditHistoryType enumerates the kinds of append-only edit recorded against
// a file/folder/link (spec.md §3).
type EditHistoryType string

const (
	EditMoveToFolder EditHistoryType = "MoveToFolder"
	EditRename       EditHistoryType = "Rename"
	EditLinkValue    EditHistoryType = "LinkValue"
)

// EditHistory is an immutable row recording one change to a target entity.
type EditHistory struct {
	ID        uuid.UUID
	TargetID  uuid.UUID
	UserID    *string
	Type      EditHistoryType
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// CreateEditHistory appends an edit-history row. Never updated or deleted.
func CreateEditHistory(ctx context.Context, q Querier, e EditHistory) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO edit_history (id, target_id, user_id, type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.TargetID.String(), NullString(e.UserID), string(e.Type), string(e.Metadata), e.CreatedAt)
	return err
}
