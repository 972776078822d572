package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trylook/searchd/internal/domain"
	"github.com/trylook/searchd/internal/metrics"
)

// Service backfills the vector index from the product catalog.
type Service struct {
	catalog CatalogReader
	embed   BatchEmbedder
	index   IndexWriter
	logger  *zap.Logger
}

// New creates a sync service.
func New(catalog CatalogReader, embed BatchEmbedder, index IndexWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, embed: embed, index: index, logger: logger}
}

// Sync fetches every product, embeds the canonical text of each, and
// bulk-upserts the batch. Embedding is all-or-nothing for the run;
// indexing reports per-document failures without aborting the rest.
func (s *Service) Sync(ctx context.Context) (domain.SyncSummary, error) {
	if s.catalog == nil || s.embed == nil || s.index == nil {
		return domain.SyncSummary{}, domain.ErrNotConfigured
	}

	runID := uuid.NewString()
	log := s.logger.With(zap.String("sync_run", runID))

	products, err := s.catalog.FetchAll(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return domain.SyncSummary{}, fmt.Errorf("fetch products: %w", err)
	}

	total := len(products)
	log.Info("sync started", zap.Int("total", total))

	if total == 0 {
		metrics.SyncRunsTotal.WithLabelValues("success").Inc()
		return domain.SyncSummary{Total: 0, Indexed: 0, Skipped: 0, Errors: []string{}}, nil
	}

	texts := make([]string, total)
	for i := range products {
		text := products[i].EmbeddingText()
		if text == "" {
			// a row with every text column empty still gets indexed under its ID
			text = products[i].ID
		}
		texts[i] = text
	}

	vectors, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return domain.SyncSummary{}, fmt.Errorf("embed %d products: %w", total, err)
	}
	if len(vectors) != total {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return domain.SyncSummary{}, fmt.Errorf("got %d vectors for %d products: %w",
			len(vectors), total, domain.ErrEmbeddingCountMismatch)
	}

	for i := range products {
		products[i].Embedding = vectors[i]
	}

	if err := s.index.EnsureSchema(ctx); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return domain.SyncSummary{}, fmt.Errorf("ensure schema: %w", err)
	}

	indexed, docErrs, err := s.index.BulkUpsert(ctx, products)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return domain.SyncSummary{}, fmt.Errorf("bulk upsert: %w", err)
	}
	if docErrs == nil {
		docErrs = []string{}
	}

	summary := domain.SyncSummary{
		Indexed: indexed,
		Total:   total,
		Skipped: total - indexed - len(docErrs),
		Errors:  docErrs,
	}
	if summary.Skipped < 0 {
		summary.Skipped = 0
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncDocumentsIndexed.Add(float64(indexed))

	log.Info("sync finished",
		zap.Int("indexed", summary.Indexed),
		zap.Int("total", summary.Total),
		zap.Int("failed", len(summary.Errors)))

	return summary, nil
}
