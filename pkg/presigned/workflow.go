// Package presigned implements the three-phase presigned-upload workflow
// (spec.md §4.7): create issues the upload URL, a storage notification
// signals the object landed, and complete folds the uploaded bytes into the
// normal ingestion path.
package presigned

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/processing"
)

// uploadExpiry is how long an issued presigned URL remains valid before
// C9's purge sweep reclaims the task and any bytes already written
// (spec.md §5).
const uploadExpiry = 30 * time.Minute

// Workflow drives presigned uploads for one tenant.
type Workflow struct {
	Pool        *db.Pool
	Blobs       *blobstore.Layer
	Coordinator *ingestion.Coordinator
	Logger      *log.Logger
}

// New builds a Workflow. logger may be nil.
func New(pool *db.Pool, blobs *blobstore.Layer, coord *ingestion.Coordinator, logger *log.Logger) *Workflow {
	if logger == nil {
		logger = log.Nop()
	}
	return &Workflow{Pool: pool, Blobs: blobs, Coordinator: coord, Logger: logger}
}

// CreateInput describes a requested presigned upload.
type CreateInput struct {
	Scope            string
	FolderID         uuid.UUID
	Name             string
	Mime             string
	Size             int64
	CreatedBy        *string
	ParentID         *uuid.UUID
	ProcessingConfig *processing.Config
}

// CreateResult is handed back to the client to perform the actual upload.
type CreateResult struct {
	TaskID    uuid.UUID
	URL       string
	ExpiresAt time.Time
}

// Create computes the file_key, requests a presigned upload URL from blob
// storage, and persists a Pending PresignedUploadTask recording everything
// Complete will need later (spec.md §4.7 "Create").
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	id := uuid.New()
	fileKey := blobstore.CreateFileKey(in.Scope, in.Name, in.Mime, id)

	presigned, err := w.Blobs.CreatePresignedUpload(ctx, fileKey, in.Size)
	if err != nil {
		return nil, errtypes.Upstream{Op: "create presigned upload", Cause: err}
	}

	var procCfg json.RawMessage
	if in.ProcessingConfig != nil {
		procCfg, err = json.Marshal(in.ProcessingConfig)
		if err != nil {
			return nil, errors.Wrap(err, "presigned: marshal processing config")
		}
	}

	task := db.PresignedUploadTask{
		ID: id, Status: db.PresignedPending, Name: in.Name, Mime: in.Mime, Size: in.Size,
		Scope: in.Scope, FolderID: in.FolderID, FileKey: fileKey, ExpiresAt: presigned.ExpiresAt,
		CreatedBy: in.CreatedBy, ParentID: in.ParentID, ProcessingConfig: procCfg,
	}
	if task.ExpiresAt.IsZero() {
		task.ExpiresAt = time.Now().Add(uploadExpiry)
	}
	if err := db.CreatePresignedTask(ctx, w.Pool.DB, task); err != nil {
		return nil, errors.Wrap(err, "presigned: insert task row")
	}

	return &CreateResult{TaskID: id, URL: presigned.URL, ExpiresAt: task.ExpiresAt}, nil
}

// Complete looks up the task by fileKey once a storage notification reports
// the object landed, fetches the bytes back, and runs the normal file
// ingestion path with FileKey pre-set so CreateFile does not re-upload
// (spec.md §4.7 "Complete"). A nil, nil result means fileKey does not
// belong to a presigned upload (e.g. it's a generated file) or its task is
// no longer Pending, and the caller should ignore the notification.
func (w *Workflow) Complete(ctx context.Context, fileKey string) (*db.File, error) {
	task, err := db.FindPresignedTaskByFileKey(ctx, w.Pool.DB, fileKey)
	if err != nil {
		return nil, errors.Wrap(err, "presigned: find task by file key")
	}
	if task == nil {
		return nil, nil
	}
	if task.Status != db.PresignedPending {
		return nil, nil
	}

	stream, err := w.Blobs.GetFile(ctx, fileKey)
	if err != nil {
		if ferr := w.fail(ctx, task.ID, err); ferr != nil {
			return nil, ferr
		}
		return nil, errtypes.Upstream{Op: "fetch presigned upload", Cause: err}
	}
	bytes, err := stream.CollectBytes(task.Size + 1)
	if err != nil {
		if ferr := w.fail(ctx, task.ID, err); ferr != nil {
			return nil, ferr
		}
		return nil, errtypes.Upstream{Op: "collect presigned upload bytes", Cause: err}
	}

	var procCfg *processing.Config
	if len(task.ProcessingConfig) > 0 {
		procCfg = &processing.Config{}
		if err := json.Unmarshal(task.ProcessingConfig, procCfg); err != nil {
			procCfg = nil
		}
	}

	file, err := w.Coordinator.CreateFile(ctx, ingestion.FileInput{
		Scope: task.Scope, FolderID: task.FolderID, Name: task.Name, Mime: task.Mime,
		Bytes: bytes, CreatedBy: task.CreatedBy, ParentID: task.ParentID,
		ProcessingConfig: procCfg, FileKey: fileKey,
	})
	if err != nil {
		if ferr := w.fail(ctx, task.ID, err); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	if err := db.MarkPresignedCompleted(ctx, w.Pool.DB, task.ID, file.ID); err != nil {
		return nil, errors.Wrap(err, "presigned: mark task completed")
	}
	return file, nil
}

// fail records a Failed status for a task whose finalization errored with
// cause. A non-nil return here is an error in the status update itself,
// which spec.md §4.7 requires be surfaced to the caller rather than
// swallowed like the finalization error it's reporting.
func (w *Workflow) fail(ctx context.Context, taskID uuid.UUID, cause error) error {
	if err := db.MarkPresignedFailed(ctx, w.Pool.DB, taskID, cause.Error()); err != nil {
		return errors.Wrap(err, "presigned: mark task failed")
	}
	return nil
}
