package ingestion

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
	"github.com/docboxhq/docbox/pkg/searchindex"
)

// maxReprocessFetch caps how many bytes Reprocess will pull back from blob
// storage for a file being re-typed.
const maxReprocessFetch = 512 << 20

// Reprocess re-runs the processing pipeline for an existing file whose
// mime has just been corrected (spec.md §4.9 "reprocessing pass"): it does
// not touch the file's folder_id, name, or key, only its stored mime and
// any derivatives the pipeline now produces. Unlike CreateFile, the
// original bytes are never re-uploaded — they already sit under the file's
// existing file_key.
func (c *Coordinator) Reprocess(ctx context.Context, scope string, fileID uuid.UUID, newMime string) error {
	f, err := db.FindFile(ctx, c.Pool.DB, fileID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errtypes.NotFound("file")
		}
		return errors.Wrap(err, "ingestion: find file for reprocess")
	}

	stream, err := c.Blobs.GetFile(ctx, f.FileKey)
	if err != nil {
		return errtypes.Upstream{Op: "fetch file for reprocess", Cause: err}
	}
	bytes, err := stream.CollectBytes(maxReprocessFetch)
	if err != nil {
		return errtypes.Upstream{Op: "collect file bytes for reprocess", Cause: err}
	}

	output, procErr := c.Pipeline.Process(ctx, nil, bytes, newMime)
	if procErr != nil {
		return classifyProcessingError(procErr)
	}

	var comp compensation
	err = c.Pool.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.SetFileMime(ctx, tx, fileID, newMime); err != nil {
			return errors.Wrap(err, "ingestion: update reprocessed file mime")
		}
		if output != nil && output.Encrypted {
			if err := db.SetFileEncrypted(ctx, tx, fileID, true); err != nil {
				return errors.Wrap(err, "ingestion: mark reprocessed file encrypted")
			}
		}
		if output != nil {
			for _, upload := range output.UploadQueue {
				genKey := blobstore.CreateGeneratedFileKey(f.FileKey, upload.Mime)
				if err := c.Blobs.UploadFile(ctx, genKey, upload.Mime, upload.Contents); err != nil {
					return errtypes.Upstream{Op: "upload reprocessed generated file", Cause: err}
				}
				comp.blobKeys = append(comp.blobKeys, genKey)

				genRow := db.GeneratedFile{
					ID: db.NewID(), FileID: fileID, Type: upload.Type, Mime: upload.Mime,
					Hash: hashContents(upload.Contents), FileKey: genKey,
				}
				if err := db.CreateGeneratedFile(ctx, tx, genRow); err != nil {
					return errors.Wrap(err, "ingestion: insert reprocessed generated file row")
				}
			}
		}
		return nil
	})
	if err != nil {
		c.compensate(comp)
		return err
	}

	doc := searchindex.Document{
		Type: searchindex.ItemFile, FolderID: f.FolderID, Scope: scope,
		ItemID: fileID, Name: f.Name, Mime: &newMime, CreatedAt: f.CreatedAt, CreatedBy: f.CreatedBy,
	}
	if output != nil && output.Index != nil {
		doc.Pages = toSearchPages(output.Index.Pages)
	}
	if err := c.Index.UpdateData(ctx, fileID, doc); err != nil {
		c.Logger.Error().Err(err).Str("id", fileID.String()).Msg("patch reprocessed file index")
	}
	return nil
}
