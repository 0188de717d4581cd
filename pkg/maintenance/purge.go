// Package maintenance is the periodic background driver (spec.md §4.9):
// expiring stale presigned-upload tasks and re-typing files that landed
// under the catch-all application/octet-stream mime. Both passes are
// grounded on original_source/.../purge/purge_expired_presigned_tasks.rs
// and original_source/.../files/reprocess_octet_stream_files.rs, iterating
// every tenant the way cs3org-reva's storage-provider "tree time scrubber"
// walks every registered space.
package maintenance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/blobstore"
	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/log"
)

// PurgeExpiredPresignedTasks deletes every PresignedUploadTask past
// expiresAt. A Pending or Failed task never had a file row take ownership
// of the uploaded object, so its blob key is deleted first; a Completed
// task's object belongs to its File row and is left alone (spec.md §4.7
// "Expiry"). FindExpiredPresignedTasks returns tasks of every status, and
// the task row itself is deleted whatever its status.
func PurgeExpiredPresignedTasks(ctx context.Context, pool *db.Pool, blobs *blobstore.Layer, logger *log.Logger) error {
	tasks, err := db.FindExpiredPresignedTasks(ctx, pool.DB, time.Now())
	if err != nil {
		return errors.Wrap(err, "maintenance: list expired presigned tasks")
	}

	for _, t := range tasks {
		if shouldReclaimObject(t.Status) {
			if err := blobs.DeleteFile(ctx, t.FileKey); err != nil {
				logger.Error().Err(err).Str("task_id", t.ID.String()).Str("key", t.FileKey).
					Msg("purge expired presigned task: delete blob")
			}
		}
		// The task row is removed in both cases: a Completed task's object
		// now belongs to a File row, but the task itself has served its
		// purpose either way (spec.md §4.7 "Expiry").
		if err := db.DeletePresignedTask(ctx, pool.DB, t.ID); err != nil {
			logger.Error().Err(err).Str("task_id", t.ID.String()).Msg("purge expired presigned task: delete row")
		}
	}
	return nil
}

// shouldReclaimObject reports whether an expired task's blob object was
// never claimed by a file row and is safe to delete. Only Pending and
// Failed qualify; a Completed task's object now belongs to a File row
// and is left alone (spec.md §4.7 "Expiry").
func shouldReclaimObject(status db.PresignedTaskStatus) bool {
	return status == db.PresignedPending || status == db.PresignedFailed
}
