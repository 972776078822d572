package search

import (
	"context"

	"github.com/trylook/searchd/internal/domain"
)

// Index defines the vector index contract for search operations.
type Index interface {
	Query(
		ctx context.Context, vector []float32, k, numCandidates int,
		category string, boosts []domain.Boost,
	) ([]domain.Hit, error)

	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Syncer backfills the index from the system of record. Used for the
// lazy empty-index backfill; optional.
type Syncer interface {
	Sync(ctx context.Context) (domain.SyncSummary, error)
}
