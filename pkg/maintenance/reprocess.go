package maintenance

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/ingestion"
	"github.com/docboxhq/docbox/pkg/log"
	"github.com/docboxhq/docbox/pkg/mime"
)

// octetStreamMime is the catch-all mime a file lands under when it was
// uploaded without a recognizable Content-Type (spec.md §4.9).
const octetStreamMime = "application/octet-stream"

// ReprocessOctetStreamFiles pages through every file in scope whose stored
// mime is still application/octet-stream, re-guesses the mime from the
// file's name, and re-runs the processing pipeline for any file whose
// guess improved (spec.md §4.9). Pages are pageSize rows (spec default
// 1000) and each page's re-guessed files are reprocessed with at most
// concurrency in flight (spec default 50); an error on one file is logged
// and does not stop the pass.
func ReprocessOctetStreamFiles(ctx context.Context, pool *db.Pool, coord *ingestion.Coordinator, pageSize, concurrency int, logger *log.Logger) error {
	var afterID *uuid.UUID
	for {
		files, err := db.FilesWithMime(ctx, pool.DB, octetStreamMime, afterID, pageSize)
		if err != nil {
			return errors.Wrap(err, "maintenance: list octet-stream files")
		}
		if len(files) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, f := range files {
			f := f
			guess := mime.DetectFromName(f.Name)
			if guess == octetStreamMime {
				continue
			}
			g.Go(func() error {
				folder, err := db.FindFolderByID(gctx, pool.DB, f.FolderID)
				if err != nil {
					logger.Error().Err(err).Str("file_id", f.ID.String()).Msg("resolve scope for reprocess")
					return nil
				}
				if err := coord.Reprocess(gctx, folder.Scope, f.ID, guess); err != nil {
					logger.Error().Err(err).Str("file_id", f.ID.String()).Str("mime", guess).
						Msg("reprocess octet-stream file")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		last := files[len(files)-1].ID
		afterID = &last
		if len(files) < pageSize {
			return nil
		}
	}
}
