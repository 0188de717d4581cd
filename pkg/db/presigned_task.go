package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PresignedTaskStatus is the state-machine status of a PresignedUploadTask
// (spec.md §3): Pending -> Completed{file_id} or Pending -> Failed{msg}.
type PresignedTaskStatus string

const (
	PresignedPending   PresignedTaskStatus = "Pending"
	PresignedCompleted PresignedTaskStatus = "Completed"
	PresignedFailed    PresignedTaskStatus = "Failed"
)

// PresignedUploadTask is a row from the presigned_upload_tasks table.
type PresignedUploadTask struct {
	ID               uuid.UUID
	Status           PresignedTaskStatus
	FileID           *uuid.UUID // set once Status == Completed
	FailureMessage   *string    // set once Status == Failed
	Name             string
	Mime             string
	Size             int64
	Scope            string
	FolderID         uuid.UUID
	FileKey          string
	ExpiresAt        time.Time
	CreatedBy        *string
	ParentID         *uuid.UUID
	ProcessingConfig json.RawMessage
}

// CreatePresignedTask inserts a new Pending task row.
func CreatePresignedTask(ctx context.Context, q Querier, t PresignedUploadTask) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO presigned_upload_tasks
			(id, status, file_id, failure_message, name, mime, size, scope, folder_id, file_key, expires_at, created_by, parent_id, processing_config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), string(t.Status), NullUUID(t.FileID), NullString(t.FailureMessage),
		t.Name, t.Mime, t.Size, t.Scope, t.FolderID.String(), t.FileKey, t.ExpiresAt,
		NullString(t.CreatedBy), NullUUID(t.ParentID), string(t.ProcessingConfig))
	return err
}

// FindPresignedTaskByFileKey looks up a task by its blob-store key. A nil
// result (no error, nil task) means the uploaded object wasn't a presigned
// upload (e.g. a generated file), per spec.md §4.7 "Complete".
func FindPresignedTaskByFileKey(ctx context.Context, q Querier, fileKey string) (*PresignedUploadTask, error) {
	row := q.QueryRowContext(ctx, presignedSelectCols+` WHERE file_key = ?`, fileKey)
	t, err := scanPresignedTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// FindExpiredPresignedTasks returns tasks whose expires_at has passed.
func FindExpiredPresignedTasks(ctx context.Context, q Querier, now time.Time) ([]PresignedUploadTask, error) {
	rows, err := q.QueryContext(ctx, presignedSelectCols+` WHERE expires_at < ?`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PresignedUploadTask
	for rows.Next() {
		t, err := scanPresignedTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// MarkPresignedCompleted transitions a task to Completed{file_id}.
func MarkPresignedCompleted(ctx context.Context, q Querier, id uuid.UUID, fileID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `
		UPDATE presigned_upload_tasks SET status = ?, file_id = ? WHERE id = ?`,
		string(PresignedCompleted), fileID.String(), id.String())
	return err
}

// MarkPresignedFailed transitions a task to Failed{msg}.
func MarkPresignedFailed(ctx context.Context, q Querier, id uuid.UUID, msg string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE presigned_upload_tasks SET status = ?, failure_message = ? WHERE id = ?`,
		string(PresignedFailed), msg, id.String())
	return err
}

// DeletePresignedTask removes a task row by id.
func DeletePresignedTask(ctx context.Context, q Querier, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM presigned_upload_tasks WHERE id = ?`, id.String())
	return err
}

const presignedSelectCols = `
	SELECT id, status, file_id, failure_message, name, mime, size, scope, folder_id, file_key, expires_at, created_by, parent_id, processing_config
	FROM presigned_upload_tasks`

func scanPresignedTask(row *sql.Row) (*PresignedUploadTask, error) { return scanPresignedTaskAny(row) }
func scanPresignedTaskRows(rows *sql.Rows) (*PresignedUploadTask, error) {
	return scanPresignedTaskAny(rows)
}

func scanPresignedTaskAny(s scannable) (*PresignedUploadTask, error) {
	var t PresignedUploadTask
	var id, folderID, status string
	var fileID, failureMsg, createdBy, parentID sql.NullString
	var processingConfig sql.NullString
	if err := s.Scan(&id, &status, &fileID, &failureMsg, &t.Name, &t.Mime, &t.Size, &t.Scope,
		&folderID, &t.FileKey, &t.ExpiresAt, &createdBy, &parentID, &processingConfig); err != nil {
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
	t.ID = parsedID
	t.Status = PresignedTaskStatus(status)
	t.FolderID = parsedFolder
	if fid, err := UUIDPtr(fileID); err != nil {
		return nil, err
	} else {
		t.FileID = fid
	}
	if pid, err := UUIDPtr(parentID); err != nil {
		return nil, err
	} else {
		t.ParentID = pid
	}
	t.FailureMessage = StringPtr(failureMsg)
	t.CreatedBy = StringPtr(createdBy)
	if processingConfig.Valid {
		t.ProcessingConfig = json.RawMessage(processingConfig.String)
	}
	return &t, nil
}
