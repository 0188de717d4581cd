package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Folder is a row from the folders table (spec.md §3).
type Folder struct {
	ID        uuid.UUID
	Scope     string
	ParentID  *uuid.UUID
	Name      string
	CreatedAt time.Time
	CreatedBy *string
	Pinned    bool
}

// IsRoot reports whether f is the root folder of its scope.
func (f Folder) IsRoot() bool { return f.ParentID == nil }

// CreateFolder inserts a folder row.
func CreateFolder(ctx context.Context, q Querier, f Folder) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO folders (id, scope, parent_id, name, created_at, created_by, pinned)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.Scope, NullUUID(f.ParentID), f.Name, f.CreatedAt, NullString(f.CreatedBy), f.Pinned)
	return err
}

// FindFolder looks up a folder by id within a scope.
func FindFolder(ctx context.Context, q Querier, scope string, id uuid.UUID) (*Folder, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, scope, parent_id, name, created_at, created_by, pinned
		FROM folders WHERE scope = ? AND id = ?`, scope, id.String())
	return scanFolder(row)
}

// FindFolderByID looks up a folder by id alone, without knowing its scope
// up front — used to resolve a file's enclosing scope from its folder_id
// (spec.md §4.9 reprocessing pass, which only has a file row in hand).
func FindFolderByID(ctx context.Context, q Querier, id uuid.UUID) (*Folder, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, scope, parent_id, name, created_at, created_by, pinned
		FROM folders WHERE id = ?`, id.String())
	return scanFolder(row)
}

// FolderChildren returns the immediate sub-folders of a folder.
func FolderChildren(ctx context.Context, q Querier, scope string, parent uuid.UUID) ([]Folder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, scope, parent_id, name, created_at, created_by, pinned
		FROM folders WHERE scope = ? AND parent_id = ?`, scope, parent.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Folder
	for rows.Next() {
		f, err := scanFolderRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// RenameFolder updates a folder's name.
func RenameFolder(ctx context.Context, q Querier, id uuid.UUID, name string) error {
	_, err := q.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id.String())
	return err
}

// MoveFolder reparents a folder.
func MoveFolder(ctx context.Context, q Querier, id uuid.UUID, newParent uuid.UUID) error {
	_, err := q.ExecContext(ctx, `UPDATE folders SET parent_id = ? WHERE id = ?`, newParent.String(), id.String())
	return err
}

// DeleteFolderRow removes a folder row by id. Returns affected row count.
func DeleteFolderRow(ctx context.Context, q Querier, id uuid.UUID) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IsDescendantOf walks parent_id links from candidate up to root, reporting
// whether ancestor is found along the way. Bounded recursive DB query per
// spec.md §9 ("resolve_path is a bounded recursive DB query, not a graph
// walk in memory") — here expressed as an iterative walk issuing one query
// per level, which is the same access pattern without needing a recursive
// CTE every MySQL-compatible target supports.
func IsDescendantOf(ctx context.Context, q Querier, scope string, candidate, ancestor uuid.UUID) (bool, error) {
	current := candidate
	for i := 0; i < 10000; i++ {
		if current == ancestor {
			return true, nil
		}
		f, err := FindFolder(ctx, q, scope, current)
		if err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, err
		}
		if f.ParentID == nil {
			return false, nil
		}
		current = *f.ParentID
	}
	return false, errCycleBound
}

// ResolveFolderPath walks parent_id links from id up to the scope root,
// returning path segments ordered root-first. Used by search-result
// enrichment (C8) to compute a breadcrumb.
func ResolveFolderPath(ctx context.Context, q Querier, scope string, id uuid.UUID) ([]Folder, error) {
	var reversed []Folder
	current := id
	for i := 0; i < 10000; i++ {
		f, err := FindFolder(ctx, q, scope, current)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, *f)
		if f.ParentID == nil {
			break
		}
		current = *f.ParentID
	}
	// reverse in place: reversed was built leaf-first.
	out := make([]Folder, len(reversed))
	for i, f := range reversed {
		out[len(reversed)-1-i] = f
	}
	return out, nil
}

// DescendantFolderIDs returns id and every transitive sub-folder id,
// expanding depth-first. Used to scope a folder-filtered search (spec.md
// §4.3, §4.8).
func DescendantFolderIDs(ctx context.Context, q Querier, scope string, id uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{id}
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children, err := FolderChildren(ctx, q, scope, cur)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			ids = append(ids, c.ID)
			stack = append(stack, c.ID)
		}
	}
	return ids, nil
}

var errCycleBound = errBoundExceeded("folder ancestry walk exceeded bound; likely cycle")

type errBoundExceeded string

func (e errBoundExceeded) Error() string { return string(e) }

func scanFolder(row *sql.Row) (*Folder, error) { return scanFolderAny(row) }

func scanFolderRows(rows *sql.Rows) (*Folder, error) { return scanFolderAny(rows) }

func scanFolderAny(s scannable) (*Folder, error) {
	var f Folder
	var id string
	var parentID, createdBy sql.NullString
	if err := s.Scan(&id, &f.Scope, &parentID, &f.Name, &f.CreatedAt, &createdBy, &f.Pinned); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	f.ID = parsed
	pid, err := UUIDPtr(parentID)
	if err != nil {
		return nil, err
	}
	f.ParentID = pid
	f.CreatedBy = StringPtr(createdBy)
	return &f, nil
}
