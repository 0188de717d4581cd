package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// GeneratedFileType enumerates the derived-artifact kinds (spec.md §3).
type GeneratedFileType string

const (
	GeneratedPdf             GeneratedFileType = "Pdf"
	GeneratedCoverPage       GeneratedFileType = "CoverPage"
	GeneratedSmallThumbnail  GeneratedFileType = "SmallThumbnail"
	GeneratedLargeThumbnail  GeneratedFileType = "LargeThumbnail"
	GeneratedTextContent     GeneratedFileType = "TextContent"
	GeneratedHtmlContent     GeneratedFileType = "HtmlContent"
	GeneratedMetadata        GeneratedFileType = "Metadata"
)

// GeneratedFile is a row from the generated_files table. Each type appears
// at most once per file (enforced by a UNIQUE(file_id, type) constraint).
type GeneratedFile struct {
	ID      uuid.UUID
	FileID  uuid.UUID
	Type    GeneratedFileType
	Mime    string
	Hash    string
	FileKey string
}

// CreateGeneratedFile inserts a generated-file row.
func CreateGeneratedFile(ctx context.Context, q Querier, g GeneratedFile) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO generated_files (id, file_id, type, mime, hash, file_key)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.FileID.String(), string(g.Type), g.Mime, g.Hash, g.FileKey)
	return err
}

// GeneratedFilesForFile lists every generated artifact belonging to a file.
func GeneratedFilesForFile(ctx context.Context, q Querier, fileID uuid.UUID) ([]GeneratedFile, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_id, type, mime, hash, file_key FROM generated_files WHERE file_id = ?`, fileID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GeneratedFile
	for rows.Next() {
		g, err := scanGeneratedFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// CountGeneratedFiles reports how many generated rows reference fileID.
// File deletion is blocked while this is non-zero (spec.md §3, testable
// property 3).
func CountGeneratedFiles(ctx context.Context, q Querier, fileID uuid.UUID) (int, error) {
	row := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_files WHERE file_id = ?`, fileID.String())
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteGeneratedFileRow removes a single generated-file row by id.
func DeleteGeneratedFileRow(ctx context.Context, q Querier, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM generated_files WHERE id = ?`, id.String())
	return err
}

func scanGeneratedFileRows(rows *sql.Rows) (*GeneratedFile, error) {
	var g GeneratedFile
	var id, fileID, ty string
	if err := rows.Scan(&id, &fileID, &ty, &g.Mime, &g.Hash, &g.FileKey); err != nil {
		return nil, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedFile, err := uuid.Parse(fileID)
	if err != nil {
		return nil, err
	}
	g.ID = parsedID
	g.FileID = parsedFile
	g.Type = GeneratedFileType(ty)
	return &g, nil
}
