package sync

import (
	"context"

	"github.com/trylook/searchd/internal/domain"
)

// CatalogReader fetches the full product set from the system of record.
type CatalogReader interface {
	FetchAll(ctx context.Context) ([]domain.Product, error)
}

// BatchEmbedder vectorizes corpus texts in bulk.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexWriter defines the vector index contract for the backfill.
type IndexWriter interface {
	EnsureSchema(ctx context.Context) error
	BulkUpsert(ctx context.Context, products []domain.Product) (indexed int, errs []string, err error)
}
