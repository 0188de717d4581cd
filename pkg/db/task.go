package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the state of an asynchronous upload-completion task, polled
// by clients that uploaded through a presigned URL (spec.md §3, §4.7).
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskCompleted TaskStatus = "Completed"
	TaskFailed    TaskStatus = "Failed"
)

// Task is a row from the tasks table. Output carries the serialized
// completion payload (the created file/folder id, or nothing) once the
// task leaves Pending.
type Task struct {
	ID          uuid.UUID
	Scope       string
	Status      TaskStatus
	Output      json.RawMessage
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// CreateTask inserts a new Pending task row.
func CreateTask(ctx context.Context, q Querier, t Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, scope, status, output, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Scope, string(t.Status), string(t.Output), t.CreatedAt, nullTime(t.CompletedAt))
	return err
}

// FindTask looks up a task by id.
func FindTask(ctx context.Context, q Querier, id uuid.UUID) (*Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, scope, status, output, created_at, completed_at FROM tasks WHERE id = ?`, id.String())
	return scanTask(row)
}

// SetTaskCompleted transitions a task to Completed with the given output
// payload, stamping completed_at.
func SetTaskCompleted(ctx context.Context, q Querier, id uuid.UUID, output json.RawMessage, completedAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET status = ?, output = ?, completed_at = ? WHERE id = ?`,
		string(TaskCompleted), string(output), completedAt, id.String())
	return err
}

// SetTaskFailed transitions a task to Failed, recording the error as output.
func SetTaskFailed(ctx context.Context, q Querier, id uuid.UUID, output json.RawMessage, completedAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET status = ?, output = ?, completed_at = ? WHERE id = ?`,
		string(TaskFailed), string(output), completedAt, id.String())
	return err
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var id, status string
	var output sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(&id, &t.Scope, &status, &output, &t.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	t.ID = parsedID
	t.Status = TaskStatus(status)
	if output.Valid {
		t.Output = json.RawMessage(output.String)
	}
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
