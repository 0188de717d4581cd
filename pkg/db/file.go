package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// File is a row from the files table (spec.md §3).
type File struct {
	ID        uuid.UUID
	FolderID  uuid.UUID
	Name      string
	Mime      string
	Size      int64
	Hash      string
	Encrypted bool
	Pinned    bool
	FileKey   string
	ParentID  *uuid.UUID
	CreatedAt time.Time
	CreatedBy *string
}

// CreateFile inserts a file row.
func CreateFile(ctx context.Context, q Querier, f File) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO files (id, folder_id, name, mime, size, hash, encrypted, pinned, file_key, parent_id, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.FolderID.String(), f.Name, f.Mime, f.Size, f.Hash, f.Encrypted, f.Pinned,
		f.FileKey, NullUUID(f.ParentID), f.CreatedAt, NullString(f.CreatedBy))
	return err
}

// FindFile looks up a file by id.
func FindFile(ctx context.Context, q Querier, id uuid.UUID) (*File, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, folder_id, name, mime, size, hash, encrypted, pinned, file_key, parent_id, created_at, created_by
		FROM files WHERE id = ?`, id.String())
	return scanFile(row)
}

// SetFileEncrypted flips the encrypted flag, used when processing detects a
// password-protected document after the row has already been inserted
// within the same transaction (spec.md §4.6 step 4).
func SetFileEncrypted(ctx context.Context, q Querier, id uuid.UUID, encrypted bool) error {
	_, err := q.ExecContext(ctx, `UPDATE files SET encrypted = ? WHERE id = ?`, encrypted, id.String())
	return err
}

// RenameFile updates a file's name.
func RenameFile(ctx context.Context, q Querier, id uuid.UUID, name string) error {
	_, err := q.ExecContext(ctx, `UPDATE files SET name = ? WHERE id = ?`, name, id.String())
	return err
}

// MoveFile reparents a file to a different folder.
func MoveFile(ctx context.Context, q Querier, id uuid.UUID, folderID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `UPDATE files SET folder_id = ? WHERE id = ?`, folderID.String(), id.String())
	return err
}

// DeleteFileRow removes a file row by id. Returns affected row count so
// callers can decide whether to publish a deletion event.
func DeleteFileRow(ctx context.Context, q Querier, id uuid.UUID) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FilesInFolder lists the files directly within a folder, used by folder
// deletion's breadth-first traversal.
func FilesInFolder(ctx context.Context, q Querier, folderID uuid.UUID) ([]File, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, folder_id, name, mime, size, hash, encrypted, pinned, file_key, parent_id, created_at, created_by
		FROM files WHERE folder_id = ?`, folderID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// FilesWithMime pages through files whose stored mime matches m, ordered by
// id for stable pagination. Used by the octet-stream reprocessing pass
// (spec.md §4.9).
func FilesWithMime(ctx context.Context, q Querier, m string, afterID *uuid.UUID, limit int) ([]File, error) {
	var rows *sql.Rows
	var err error
	if afterID == nil {
		rows, err = q.QueryContext(ctx, `
			SELECT id, folder_id, name, mime, size, hash, encrypted, pinned, file_key, parent_id, created_at, created_by
			FROM files WHERE mime = ? ORDER BY id LIMIT ?`, m, limit)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT id, folder_id, name, mime, size, hash, encrypted, pinned, file_key, parent_id, created_at, created_by
			FROM files WHERE mime = ? AND id > ? ORDER BY id LIMIT ?`, m, afterID.String(), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// SetFileMime updates a file's stored mime type, used when reprocessing
// corrects a previously-unknown (application/octet-stream) mime.
func SetFileMime(ctx context.Context, q Querier, id uuid.UUID, m string) error {
	_, err := q.ExecContext(ctx, `UPDATE files SET mime = ? WHERE id = ?`, m, id.String())
	return err
}

func scanFile(row *sql.Row) (*File, error)       { return scanFileAny(row) }
func scanFileRows(rows *sql.Rows) (*File, error) { return scanFileAny(rows) }

func scanFileAny(s scannable) (*File, error) {
	var f File
	var id, folderID string
	var parentID, createdBy sql.NullString
	if err := s.Scan(&id, &folderID, &f.Name, &f.Mime, &f.Size, &f.Hash, &f.Encrypted, &f.Pinned,
		&f.FileKey, &parentID, &f.CreatedAt, &createdBy); err != nil {
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
	f.ID = parsedID
	f.FolderID = parsedFolder
	pid, err := UUIDPtr(parentID)
	if err != nil {
		return nil, err
	}
	f.ParentID = pid
	f.CreatedBy = StringPtr(createdBy)
	return &f, nil
}
