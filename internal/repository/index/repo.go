package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/trylook/searchd/internal/db"
	"github.com/trylook/searchd/internal/domain"
)

// store is the consumer interface for the product index (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) []error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config holds index layout parameters.
type Config struct {
	KeyPrefix          string // hash key prefix, e.g. "products:"
	Dimensions         int
	HNSWM              int
	HNSWEFConstruction int
}

// Repo implements the product index over a RediSearch HASH index.
type Repo struct {
	store store
	cfg   Config
}

// New creates a product index repository.
func New(s store, cfg Config) *Repo {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "products:"
	}
	return &Repo{store: s, cfg: cfg}
}

func (r *Repo) indexName() string {
	return r.cfg.KeyPrefix + "idx"
}

func (r *Repo) docKey(id string) string {
	return r.cfg.KeyPrefix + id
}

// EnsureSchema creates the FT index if it does not exist yet. An
// already-existing index is not an error.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	def, err := db.NewIndex(r.indexName()).
		Prefix(r.cfg.KeyPrefix).
		Text("name").
		Text("description").
		Tag("category").
		Tag("brand").
		Tag("source").
		Numeric("price").
		VectorHNSW("embedding", r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruction).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.indexName(), err)
	}
	return nil
}

// Count returns the number of indexed products.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.indexName(), err)
	}
	return n, nil
}

// BulkUpsert writes products into the index in one pipelined round-trip.
// Documents with a wrong embedding dimension are rejected up front; store
// failures are reported per document. Returns the number indexed and the
// per-document error messages.
func (r *Repo) BulkUpsert(ctx context.Context, products []domain.Product) (int, []string, error) {
	if len(products) == 0 {
		return 0, nil, nil
	}

	var errs []string
	items := make([]db.HashSetItem, 0, len(products))
	ids := make([]string, 0, len(products))

	for i := range products {
		p := &products[i]
		if len(p.Embedding) != r.cfg.Dimensions {
			errs = append(errs, fmt.Sprintf("product %s: %v: got %d, want %d",
				p.ID, domain.ErrVectorDimMismatch, len(p.Embedding), r.cfg.Dimensions))
			continue
		}
		fields, err := productToFields(p)
		if err != nil {
			errs = append(errs, fmt.Sprintf("product %s: %v", p.ID, err))
			continue
		}
		items = append(items, db.HashSetItem{Key: r.docKey(p.ID), Fields: fields})
		ids = append(ids, p.ID)
	}

	indexed := 0
	for i, err := range r.store.HSetMulti(ctx, items) {
		if err != nil {
			errs = append(errs, fmt.Sprintf("product %s: %v", ids[i], err))
			continue
		}
		indexed++
	}

	return indexed, errs, nil
}

// Query runs a KNN search, optionally pre-filtered by category, and applies
// lexical boosts on top of the vector similarity. Results come back sorted
// by boosted score descending; boosted scores may exceed 1.
func (r *Repo) Query(
	ctx context.Context, vector []float32, k, numCandidates int,
	category string, boosts []domain.Boost,
) ([]domain.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		EFRuntime:    numCandidates,
		ReturnFields: []string{"name", "description", "category", "brand", "source", "price", "metadata"},
	}
	if category != "" {
		q.TagFilters = []db.TagFilter{{Field: "category", Value: category}}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", r.indexName(), err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.cfg.KeyPrefix)
		hit := domain.Hit{
			Product:  fieldsToProduct(id, entry.Fields),
			RawScore: entry.Score,
		}
		hit.RawScore += boostFor(&hit.Product, boosts)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].RawScore > hits[j].RawScore
	})

	return hits, nil
}

// boostFor sums the weights of boosts whose term occurs in the boosted field.
func boostFor(p *domain.Product, boosts []domain.Boost) float64 {
	var total float64
	for _, b := range boosts {
		switch b.Field {
		case "name":
			if containsFold(p.Name, b.Term) {
				total += b.Weight
			}
		case "description":
			if containsFold(p.Description, b.Term) {
				total += b.Weight
			}
		}
	}
	return total
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
