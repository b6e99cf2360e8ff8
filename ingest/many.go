package ingest

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"record-mapper/record"
)

// IngestMany ingests rows concurrently with at most workers goroutines
// (GOMAXPROCS when workers <= 0). Results keep the order of rows. The first
// usage error or a cancelled ctx stops the batch.
func (e *Engine) IngestMany(ctx context.Context, t *record.Type, rows []map[string]string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := e.Ingest(t, row)
			if err != nil {
				return fmt.Errorf("failed to ingest row %d: %w", i, err)
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
