package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
)

// IngestBatch ingests every bundle and returns one result per input, in
// input order. With concurrency <= 1 bundles run one at a time so that the
// narration stays ordered. A failing bundle never stops its siblings.
func (s *IngestService) IngestBatch(ctx context.Context, inputs []models.BundleInput, concurrency int, observers ...progress.Sink) []Result {
	results := make([]Result, len(inputs))
	if concurrency <= 1 {
		for i, in := range inputs {
			results[i] = s.Ingest(ctx, in, observers...)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = s.Ingest(ctx, in, observers...)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// BatchSummary counts terminal states of a batch.
type BatchSummary struct {
	Committed int
	Skipped   int
	Failed    int
}

func Summarize(results []Result) BatchSummary {
	var sum BatchSummary
	for _, r := range results {
		switch r.State {
		case models.StateCommitted:
			sum.Committed++
		case models.StateSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	return sum
}
