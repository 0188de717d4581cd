package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Link is a row from the links table (spec.md §3).
type Link struct {
	ID        uuid.UUID
	FolderID  uuid.UUID
	Name      string
	Value     string
	CreatedAt time.Time
	CreatedBy *string
	Pinned    bool
}

// CreateLink inserts a link row.
func CreateLink(ctx context.Context, q Querier, l Link) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO links (id, folder_id, name, value, created_at, created_by, pinned)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.FolderID.String(), l.Name, l.Value, l.CreatedAt, NullString(l.CreatedBy), l.Pinned)
	return err
}

// FindLink looks up a link by id.
func FindLink(ctx context.Context, q Querier, id uuid.UUID) (*Link, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, folder_id, name, value, created_at, created_by, pinned FROM links WHERE id = ?`, id.String())
	return scanLink(row)
}

// LinksInFolder lists the links directly within a folder.
func LinksInFolder(ctx context.Context, q Querier, folderID uuid.UUID) ([]Link, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, folder_id, name, value, created_at, created_by, pinned FROM links WHERE folder_id = ?`, folderID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Link
	for rows.Next() {
		l, err := scanLinkRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// RenameLinkValue updates a link's value (URL).
func RenameLinkValue(ctx context.Context, q Querier, id uuid.UUID, value string) error {
	_, err := q.ExecContext(ctx, `UPDATE links SET value = ? WHERE id = ?`, value, id.String())
	return err
}

// RenameLink updates a link's name.
func RenameLink(ctx context.Context, q Querier, id uuid.UUID, name string) error {
	_, err := q.ExecContext(ctx, `UPDATE links SET name = ? WHERE id = ?`, name, id.String())
	return err
}

// MoveLink reparents a link to a different folder.
func MoveLink(ctx context.Context, q Querier, id uuid.UUID, folderID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `UPDATE links SET folder_id = ? WHERE id = ?`, folderID.String(), id.String())
	return err
}

// DeleteLinkRow removes a link row by id. Returns affected row count.
func DeleteLinkRow(ctx context.Context, q Querier, id uuid.UUID) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLink(row *sql.Row) (*Link, error)       { return scanLinkAny(row) }
func scanLinkRows(rows *sql.Rows) (*Link, error) { return scanLinkAny(rows) }

func scanLinkAny(s scannable) (*Link, error) {
	var l Link
	var id, folderID string
	var createdBy sql.NullString
	if err := s.Scan(&id, &folderID, &l.Name, &l.Value, &l.CreatedAt, &createdBy, &l.Pinned); err != nil {
		return nil, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedFolder, err := uuid.Parse(folderID)
	if err != nil {
		return nil, err
	}
	l.ID = parsedID
	l.FolderID = parsedFolder
	l.CreatedBy = StringPtr(createdBy)
	return &l, nil
}
