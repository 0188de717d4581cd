package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DocumentBox is a scope row: a named container holding exactly one root
// Folder (spec.md §3).
type DocumentBox struct {
	Scope string
}

// CreateDocumentBox inserts a scope row. The scope column carries a UNIQUE
// constraint so concurrent creates with the same scope race safely: exactly
// one insert succeeds (testable property 10).
func CreateDocumentBox(ctx context.Context, q Querier, scope string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO document_boxes (scope) VALUES (?)`, scope)
	return err
}

// FindDocumentBox looks up a scope row by name.
func FindDocumentBox(ctx context.Context, q Querier, scope string) (*DocumentBox, error) {
	row := q.QueryRowContext(ctx, `SELECT scope FROM document_boxes WHERE scope = ?`, scope)
	var b DocumentBox
	if err := row.Scan(&b.Scope); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteDocumentBox removes the scope row. Returns the number of rows
// affected so callers can decide whether to publish a deletion event.
func DeleteDocumentBox(ctx context.Context, q Querier, scope string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM document_boxes WHERE scope = ?`, scope)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RootFolderID finds the id of scope's root folder (the one with a NULL
// parent_id), if any.
func RootFolderID(ctx context.Context, q Querier, scope string) (*uuid.UUID, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id FROM folders WHERE scope = ? AND parent_id IS NULL LIMIT 1`, scope)
	var idStr string
	if err := row.Scan(&idStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
