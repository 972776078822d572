package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trylook/searchd/internal/db"
	"github.com/trylook/searchd/internal/domain"
)

func TestEnsureSchema_CreatesIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		captured = def
		return nil
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatal("CreateIndex not called")
	}
	if captured.Name != "products:idx" {
		t.Errorf("unexpected index name: %s", captured.Name)
	}
	if len(captured.Prefixes) != 1 || captured.Prefixes[0] != "products:" {
		t.Errorf("unexpected prefixes: %v", captured.Prefixes)
	}

	var vec *db.IndexField
	fieldTypes := make(map[string]db.IndexFieldType, len(captured.Fields))
	for i := range captured.Fields {
		fieldTypes[captured.Fields[i].Name] = captured.Fields[i].Type
		if captured.Fields[i].Name == "embedding" {
			vec = &captured.Fields[i]
		}
	}
	for _, tag := range []string{"category", "brand", "source"} {
		if typ, ok := fieldTypes[tag]; !ok || typ != db.IndexFieldTag {
			t.Errorf("field %s: expected TAG, got %v (present=%v)", tag, typ, ok)
		}
	}
	if vec == nil {
		t.Fatal("embedding field missing")
	}
	if vec.VectorDim != 4 || vec.VectorAlgo != db.VectorHNSW || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestEnsureSchema_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return db.ErrIndexExists
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("existing index should not error, got %v", err)
	}
}

func TestEnsureSchema_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("boom")
	}

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		if index != "products:idx" || query != "*" {
			t.Errorf("unexpected count args: %s %s", index, query)
		}
		return 7, nil
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

func TestBulkUpsert_Success(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) []error {
		captured = items
		return make([]error, len(items))
	}

	price := 9.99
	products := []domain.Product{
		{ID: "sku-1", Name: "Blue Shirt", Category: "apparel", Price: &price, Embedding: testVector()},
		{ID: "sku-2", Name: "Red Mug", Embedding: testVector()},
	}

	indexed, errs, err := repo.BulkUpsert(context.Background(), products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", indexed)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(captured) != 2 {
		t.Fatalf("expected 2 items, got %d", len(captured))
	}
	if captured[0].Key != "products:sku-1" {
		t.Errorf("unexpected key: %s", captured[0].Key)
	}
	if captured[0].Fields["price"] != "9.99" {
		t.Errorf("unexpected price field: %q", captured[0].Fields["price"])
	}
	if len(captured[0].Fields["embedding"]) != 16 {
		t.Errorf("expected 16-byte embedding blob, got %d", len(captured[0].Fields["embedding"]))
	}
}

func TestBulkUpsert_DimensionMismatch(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) []error {
		captured = items
		return make([]error, len(items))
	}

	products := []domain.Product{
		{ID: "sku-1", Name: "OK", Embedding: testVector()},
		{ID: "sku-2", Name: "Bad", Embedding: []float32{0.1}}, // wrong dim
	}

	indexed, errs, err := repo.BulkUpsert(context.Background(), products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 1 {
		t.Errorf("expected 1 indexed, got %d", indexed)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "sku-2") {
		t.Errorf("expected one error naming sku-2, got %v", errs)
	}
	if len(captured) != 1 {
		t.Errorf("mismatched product should not reach the store, got %d items", len(captured))
	}
}

func TestBulkUpsert_PartialStoreFailure(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) []error {
		errs := make([]error, len(items))
		errs[1] = errors.New("write failed")
		return errs
	}

	products := []domain.Product{
		{ID: "sku-1", Name: "A", Embedding: testVector()},
		{ID: "sku-2", Name: "B", Embedding: testVector()},
		{ID: "sku-3", Name: "C", Embedding: testVector()},
	}

	indexed, errs, err := repo.BulkUpsert(context.Background(), products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", indexed)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "sku-2") {
		t.Errorf("expected one error naming sku-2, got %v", errs)
	}
}

func TestBulkUpsert_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	indexed, errs, err := repo.BulkUpsert(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexed != 0 || errs != nil {
		t.Errorf("expected zero result, got %d %v", indexed, errs)
	}
}

func TestQuery_BuildsKNNQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		captured = q
		return &db.SearchResult{}, nil
	}

	_, err := repo.Query(context.Background(), testVector(), 40, 100, "shoes", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.IndexName != "products:idx" {
		t.Errorf("unexpected index: %s", captured.IndexName)
	}
	if captured.K != 40 || captured.EFRuntime != 100 {
		t.Errorf("unexpected k/efRuntime: %d/%d", captured.K, captured.EFRuntime)
	}
	if len(captured.TagFilters) != 1 || captured.TagFilters[0] != (db.TagFilter{Field: "category", Value: "shoes"}) {
		t.Errorf("unexpected tag filters: %v", captured.TagFilters)
	}
}

func TestQuery_NoCategoryNoFilter(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if len(q.TagFilters) != 0 {
			t.Errorf("expected no tag filters, got %v", q.TagFilters)
		}
		return &db.SearchResult{}, nil
	}

	if _, err := repo.Query(context.Background(), testVector(), 10, 0, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuery_ParsesHits(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "products:sku-1",
					Score: 0.9,
					Fields: map[string]string{
						"name": "Blue Shirt", "category": "apparel",
						"price": "19.99", "metadata": `{"size":"M"}`,
					},
				},
				{
					Key:    "products:sku-2",
					Score:  0.8,
					Fields: map[string]string{"name": "Mug", "price": "not-a-number"},
				},
			},
		}, nil
	}

	hits, err := repo.Query(context.Background(), testVector(), 10, 0, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	first := hits[0]
	if first.Product.ID != "sku-1" || first.Product.Name != "Blue Shirt" {
		t.Errorf("unexpected first hit: %+v", first.Product)
	}
	if first.Product.Price == nil || *first.Product.Price != 19.99 {
		t.Errorf("unexpected price: %v", first.Product.Price)
	}
	if first.Product.Metadata["size"] != "M" {
		t.Errorf("unexpected metadata: %v", first.Product.Metadata)
	}
	if hits[1].Product.Price != nil {
		t.Error("unparseable price should be dropped")
	}
}

func TestQuery_AppliesBoostsAndResorts(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "products:sku-1", Score: 0.9, Fields: map[string]string{"name": "Plain Shirt"}},
				{Key: "products:sku-2", Score: 0.8, Fields: map[string]string{
					"name": "Bright RED Mug", "description": "a red ceramic mug",
				}},
			},
		}, nil
	}

	boosts := []domain.Boost{
		{Field: "name", Term: "red", Weight: 15},
		{Field: "description", Term: "red", Weight: 10},
	}

	hits, err := repo.Query(context.Background(), testVector(), 10, 0, "", boosts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].Product.ID != "sku-2" {
		t.Fatalf("boosted product should rank first, got %s", hits[0].Product.ID)
	}
	// 0.8 + 15 (name, case-insensitive) + 10 (description)
	if hits[0].RawScore < 25.79 || hits[0].RawScore > 25.81 {
		t.Errorf("expected boosted score ~25.8, got %f", hits[0].RawScore)
	}
	if hits[1].RawScore != 0.9 {
		t.Errorf("unboosted score should be untouched, got %f", hits[1].RawScore)
	}
}

func TestQuery_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("boom")
	}

	if _, err := repo.Query(context.Background(), testVector(), 10, 0, "", nil); err == nil {
		t.Fatal("expected error")
	}
}
