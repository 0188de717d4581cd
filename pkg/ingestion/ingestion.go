// Package ingestion is the central state machine driving file, folder, and
// link create/update/delete (spec.md §4.6): a DB transaction for the
// relational rows plus best-effort compensation for the blob/search side
// effects no single transaction can span, grounded on
// original_source/packages/docbox-core/src/services/files/mod.rs and the
// sibling folders/links update/delete modules.
package ingestion

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/events"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/processing"
	"github.com/docboxhq/docbox/pkg/searchindex"
)

// Coordinator is a tenant's bound file/folder/link orchestrator: one
// instance per request-scoped (or long-lived, for a daemon) tenant
// resolution, wrapping that tenant's DB pool, bucket, and search index.
type Coordinator struct {
	Pool      *db.Pool
	Blobs     *blobstore.Layer
	Index     *searchindex.Index
	Events    *events.Publisher
	Pipeline  *processing.Pipeline
	Logger    *log.Logger
}

// New builds a Coordinator. logger may be nil.
func New(pool *db.Pool, blobs *blobstore.Layer, index *searchindex.Index, pub *events.Publisher, pipeline *processing.Pipeline, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{Pool: pool, Blobs: blobs, Index: index, Events: pub, Pipeline: pipeline, Logger: logger}
}

// compensation accumulates blob keys and search item ids created during an
// in-flight transaction so a failure can clean them up afterward (spec.md
// §4.6 "Failure semantics"). Compensation is retry-free and best-effort: it
// logs failures rather than propagating them.
type compensation struct {
	blobKeys []string
	docIDs   []uuid.UUID
}

// compensate deletes every recorded blob key and search document. Run from
// a detached goroutine so a caller's error return is never blocked on it.
func (c *Coordinator) compensate(comp compensation) {
	if len(comp.blobKeys) == 0 && len(comp.docIDs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, key := range comp.blobKeys {
			if err := c.Blobs.DeleteFile(ctx, key); err != nil {
				c.Logger.Error().Err(err).Str("key", key).Msg("compensation: delete blob key")
			}
		}
		for _, id := range comp.docIDs {
			if err := c.Index.DeleteData(ctx, id); err != nil {
				c.Logger.Error().Err(err).Str("item_id", id.String()).Msg("compensation: delete search document")
			}
		}
	}()
}

func hashContents(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FileInput describes a file to be created by CreateFile.
type FileInput struct {
	Scope            string
	FolderID         uuid.UUID
	Name             string
	Mime             string
	Bytes            []byte
	CreatedBy        *string
	ParentID         *uuid.UUID
	FixedID          *uuid.UUID
	ProcessingConfig *processing.Config
	// FileKey, when set, means the bytes are already present in blob
	// storage under this key (the pre-signed upload path) and step 6 of
	// §4.6 must not re-upload them.
	FileKey string
}

// CreateFile runs the full file-upload state machine (spec.md §4.6 steps
// 1-10). On success it returns the committed File row; the FileCreated
// event has already been published.
func (c *Coordinator) CreateFile(ctx context.Context, in FileInput) (*db.File, error) {
	var created *db.File
	var comp compensation

	err := c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		f, err := c.createFileTx(ctx, tx, in, &comp)
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		c.compensate(comp)
		return nil, err
	}

	c.Events.Publish(ctx, events.Event{
		Type: events.TypeFileCreated,
		Data: events.FileCreated{Scope: in.Scope, ID: created.ID, Name: created.Name, Mime: created.Mime},
	})
	return created, nil
}

func (c *Coordinator) createFileTx(ctx context.Context, tx *sql.Tx, in FileInput, comp *compensation) (*db.File, error) {
	id := uuid.New()
	if in.FixedID != nil {
		id = *in.FixedID
	}

	fileKey := in.FileKey
	if fileKey == "" {
		fileKey = blobstore.CreateFileKey(in.Scope, in.Name, in.Mime, id)
	}
	hash := hashContents(in.Bytes)

	row := db.File{
		ID: id, FolderID: in.FolderID, Name: in.Name, Mime: in.Mime,
		Size: int64(len(in.Bytes)), Hash: hash, FileKey: fileKey,
		ParentID: in.ParentID, CreatedAt: time.Now(), CreatedBy: in.CreatedBy,
	}
	if err := db.CreateFile(ctx, tx, row); err != nil {
		return nil, errors.Wrap(err, "ingestion: insert file row")
	}

	output, procErr := c.Pipeline.Process(ctx, in.ProcessingConfig, in.Bytes, in.Mime)
	if procErr != nil {
		return nil, classifyProcessingError(procErr)
	}

	if output != nil {
		if output.Encrypted {
			if err := db.SetFileEncrypted(ctx, tx, id, true); err != nil {
				return nil, errors.Wrap(err, "ingestion: mark file encrypted")
			}
		}

		for _, upload := range output.UploadQueue {
			genKey := blobstore.CreateGeneratedFileKey(fileKey, upload.Mime)
			if err := c.Blobs.UploadFile(ctx, genKey, upload.Mime, upload.Contents); err != nil {
				return nil, errtypes.Upstream{Op: "upload generated file", Cause: err}
			}
			comp.blobKeys = append(comp.blobKeys, genKey)

			genRow := db.GeneratedFile{
				ID: uuid.New(), FileID: id, Type: upload.Type, Mime: upload.Mime,
				Hash: hashContents(upload.Contents), FileKey: genKey,
			}
			if err := db.CreateGeneratedFile(ctx, tx, genRow); err != nil {
				return nil, errors.Wrap(err, "ingestion: insert generated file row")
			}
		}
	}

	if in.FileKey == "" {
		if err := c.Blobs.UploadFile(ctx, fileKey, in.Mime, in.Bytes); err != nil {
			return nil, errtypes.Upstream{Op: "upload file", Cause: err}
		}
		comp.blobKeys = append(comp.blobKeys, fileKey)
	}

	doc := searchindex.Document{
		Type: searchindex.ItemFile, FolderID: in.FolderID, Scope: in.Scope,
		ItemID: id, Name: in.Name, Mime: &in.Mime, CreatedAt: row.CreatedAt, CreatedBy: in.CreatedBy,
	}
	if output != nil && output.Index != nil {
		doc.Pages = toSearchPages(output.Index.Pages)
	}
	if err := c.Index.AddData(ctx, doc); err != nil {
		return nil, errtypes.Upstream{Op: "index file", Cause: err}
	}
	comp.docIDs = append(comp.docIDs, id)

	if output != nil {
		for _, add := range output.AdditionalFiles {
			addIn := FileInput{
				Scope: in.Scope, FolderID: in.FolderID, Name: add.Name, Mime: add.Mime,
				Bytes: add.Bytes, CreatedBy: in.CreatedBy, ParentID: &id,
			}
			if add.FixedID != nil {
				fixedID, parseErr := uuid.Parse(*add.FixedID)
				if parseErr == nil {
					addIn.FixedID = &fixedID
				}
			}
			if _, err := c.createFileTx(ctx, tx, addIn, comp); err != nil {
				return nil, err
			}
		}
	}

	return &row, nil
}

func toSearchPages(pages []processing.IndexPage) []searchindex.DocumentPage {
	out := make([]searchindex.DocumentPage, len(pages))
	for i, p := range pages {
		out[i] = searchindex.DocumentPage{Page: p.Page, Content: p.Content}
	}
	return out
}

func classifyProcessingError(err error) error {
	var pe *processing.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case processing.ErrMalformed:
			return errtypes.ProcessingMalformed(pe.Error())
		case processing.ErrEncrypted:
			return errtypes.Encrypted(pe.Error())
		default:
			return errtypes.Internal{Cause: pe}
		}
	}
	return errtypes.Internal{Cause: err}
}

// DeleteFile runs the non-transactional file-delete path (spec.md §4.6
// "File delete"): blob/search cleanup happens before the row delete, and
// nothing here is rolled back on partial failure, since S3-level changes
// are permanent once made.
func (c *Coordinator) DeleteFile(ctx context.Context, scope string, fileID uuid.UUID) error {
	f, err := db.FindFile(ctx, c.Pool.DB, fileID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("file")
		}
		return errors.Wrap(err, "ingestion: find file")
	}

	generated, err := db.GeneratedFilesForFile(ctx, c.Pool.DB, fileID)
	if err != nil {
		return errors.Wrap(err, "ingestion: list generated files")
	}
	for _, g := range generated {
		if err := c.Blobs.DeleteFile(ctx, g.FileKey); err != nil {
			c.Logger.Error().Err(err).Str("key", g.FileKey).Msg("delete generated blob")
		}
		if err := db.DeleteGeneratedFileRow(ctx, c.Pool.DB, g.ID); err != nil {
			c.Logger.Error().Err(err).Str("id", g.ID.String()).Msg("delete generated file row")
		}
	}

	if err := c.Blobs.DeleteFile(ctx, f.FileKey); err != nil {
		c.Logger.Error().Err(err).Str("key", f.FileKey).Msg("delete file blob")
	}
	if err := c.Index.DeleteData(ctx, fileID); err != nil {
		c.Logger.Error().Err(err).Str("item_id", fileID.String()).Msg("delete search document")
	}

	affected, err := db.DeleteFileRow(ctx, c.Pool.DB, fileID)
	if err != nil {
		return errors.Wrap(err, "ingestion: delete file row")
	}
	if affected == 0 {
		return nil
	}

	c.Events.Publish(ctx, events.Event{
		Type: events.TypeFileDeleted,
		Data: events.FileDeleted{Scope: scope, ID: fileID, Name: f.Name},
	})
	return nil
}
