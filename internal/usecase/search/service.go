package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trylook/searchd/internal/domain"
	"github.com/trylook/searchd/internal/metrics"
)

// Config holds the tunable ranking constants.
type Config struct {
	DefaultLimit     int
	MaxLimit         int
	CutoffFraction   float64
	NameBoost        float64
	DescriptionBoost float64
}

// DefaultConfig returns the reference deployment constants.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:     20,
		MaxLimit:         500,
		CutoffFraction:   0.4,
		NameBoost:        15,
		DescriptionBoost: 10,
	}
}

// Options holds per-request search parameters.
type Options struct {
	Limit    int    // 0 means the configured default
	Category string // exact-match pre-filter; empty means no filter
}

// Service runs the product ranking pipeline.
type Service struct {
	index  Index
	embed  Embedder
	syncer Syncer
	cfg    Config
	logger *zap.Logger
}

// New creates a search service.
func New(index Index, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:  index,
		embed:  embed,
		cfg:    DefaultConfig(),
		logger: logger,
	}
}

// WithSyncer enables the lazy empty-index backfill.
func (s *Service) WithSyncer(syncer Syncer) *Service {
	s.syncer = syncer
	return s
}

// WithConfig overrides the ranking constants.
func (s *Service) WithConfig(cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 500
	}
	s.cfg = cfg
	return s
}

// Search embeds the query, retrieves nearest products, and post-processes
// scores: per-request max-normalization to [0, 1], a relevance cutoff
// relative to the best hit, and truncation to the requested limit.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]domain.SearchResult, error) {
	if s.index == nil || s.embed == nil {
		return nil, domain.ErrNotConfigured
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidRequest)
	}

	// empty query returns nothing without touching any backend
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	limit := opts.Limit
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	s.backfillIfEmpty(ctx)

	vector, err := s.embed.Embed(ctx, query)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	fetchLimit := min(2*limit, s.cfg.MaxLimit)
	numCandidates := max(2*fetchLimit, 100)
	boosts := detectColorBoosts(query, s.cfg.NameBoost, s.cfg.DescriptionBoost)

	hits, err := s.index.Query(ctx, vector, fetchLimit, numCandidates, opts.Category, boosts)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := normalize(hits)
	results = applyCutoff(results, s.cfg.CutoffFraction)
	if len(results) > limit {
		results = results[:limit]
	}

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(results)))

	return results, nil
}

// backfillIfEmpty triggers a sync when the index has no documents. Both
// the count probe and the sync itself are best-effort: the search query
// proceeds either way and degrades to empty results.
func (s *Service) backfillIfEmpty(ctx context.Context) {
	if s.syncer == nil {
		return
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		s.logger.Warn("index count probe failed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	s.logger.Info("index is empty, triggering backfill")
	summary, err := s.syncer.Sync(ctx)
	if err != nil {
		s.logger.Warn("lazy backfill failed", zap.Error(err))
		return
	}
	s.logger.Info("lazy backfill finished",
		zap.Int("indexed", summary.Indexed),
		zap.Int("total", summary.Total))
}

// normalize maps raw scores to similarity in [0, 1] by dividing by the
// request's maximum. With a positive max, the top hit lands exactly at 1.
func normalize(hits []domain.Hit) []domain.SearchResult {
	if len(hits) == 0 {
		return []domain.SearchResult{}
	}

	var maxRaw float64
	for i := range hits {
		if hits[i].RawScore > maxRaw {
			maxRaw = hits[i].RawScore
		}
	}

	results := make([]domain.SearchResult, len(hits))
	for i := range hits {
		sim := 0.0
		if maxRaw > 0 {
			sim = hits[i].RawScore / maxRaw
		}
		results[i] = domain.SearchResult{Product: hits[i].Product, Similarity: sim}
	}
	return results
}

// applyCutoff drops results whose normalized similarity falls below the
// given fraction of the best hit. When the top similarity is zero there
// is no best hit to measure against and everything is kept.
func applyCutoff(results []domain.SearchResult, fraction float64) []domain.SearchResult {
	if fraction <= 0 || len(results) == 0 || results[0].Similarity == 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Similarity >= fraction {
			kept = append(kept, r)
		}
	}
	return kept
}
