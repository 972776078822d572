package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trylook/searchd/internal/domain"
	"github.com/trylook/searchd/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&Config{
		URL:              url,
		APIKey:           "test-key",
		Model:            "test-model",
		ColdStartBackoff: 10 * time.Millisecond,
		Logger:           zap.NewNop(),
	})
}

func TestEmbed_SearchMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Input     string `json:"input"`
			InputType string `json:"input_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input != "blue jeans" {
			t.Errorf("unexpected input: %q", req.Input)
		}
		if req.InputType != "SEARCH" {
			t.Errorf("unexpected input_type: %q", req.InputType)
		}

		fmt.Fprint(w, `[{"embedding":[0.1,0.2,0.3]}]`)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	vec, err := emb.Embed(context.Background(), "  blue jeans  ")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestEmbed_EmptyInputBecomesPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Input != " " {
			t.Errorf("expected single-space placeholder, got %q", req.Input)
		}
		fmt.Fprint(w, `[{"embedding":[0.1]}]`)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	if _, err := emb.Embed(context.Background(), "   "); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}

func TestEmbedBatch_IngestModeAndChunking(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		var req struct {
			Input     []string `json:"input"`
			InputType string   `json:"input_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.InputType != "INGEST" {
			t.Errorf("unexpected input_type: %q", req.InputType)
		}
		if len(req.Input) > 2 {
			t.Errorf("chunk exceeds batch size: %d", len(req.Input))
		}

		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{float32(i)}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		URL:       server.URL,
		Model:     "test-model",
		BatchSize: 2,
		Logger:    zap.NewNop(),
	})

	vectors, err := emb.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vectors))
	}
	if calls != 3 {
		t.Errorf("expected 3 chunks, got %d", calls)
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	emb := newTestEmbedder("http://unused")
	vectors, err := emb.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil, got %v", vectors)
	}
}

func TestEmbedBatch_FailFastAbortsBatch(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{0.1}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		URL:       server.URL,
		Model:     "test-model",
		BatchSize: 1,
		Logger:    zap.NewNop(),
	})

	_, err := emb.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if calls != 2 {
		t.Errorf("failure should abort remaining chunks, got %d calls", calls)
	}
}

func TestEmbed_ColdStartRetriesOnce(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":"model is warming up"}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"embedding":[0.1,0.2]}]`)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)

	start := time.Now()
	vec, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
	if len(vec) != 2 {
		t.Errorf("unexpected vector: %v", vec)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("retry should wait out the backoff")
	}
}

func TestEmbed_ColdStartBodyMarker(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			// non-503 status, but a recognizable warm-up body
			http.Error(w, `{"detail":"deployment is loading"}`, http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"embedding":[0.1]}]`)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	if _, err := emb.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestEmbed_ColdStartSecondFailurePropagates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, `{"error":"model is warming up"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrColdStart) {
		t.Fatalf("expected ErrColdStart, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 calls (no retry loop), got %d", calls)
	}
}

func TestEmbed_ColdStartBackoffRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		URL:              server.URL,
		Model:            "test-model",
		ColdStartBackoff: 10 * time.Second,
		Logger:           zap.NewNop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := emb.Embed(ctx, "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff should be interrupted by context cancellation")
	}
}

func TestEmbed_NonColdStartErrorNoRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestEmbed_ShapeMismatchSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"vector":[0.1]}]`)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestEmbed_TruncatesLongInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 10 {
			t.Errorf("expected input truncated to 10 chars, got %d", len(req.Input))
		}
		fmt.Fprint(w, `[{"embedding":[0.1]}]`)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		URL:        server.URL,
		Model:      "test-model",
		MaxTextLen: 10,
		Logger:     zap.NewNop(),
	})
	if _, err := emb.Embed(context.Background(), strings.Repeat("x", 100)); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
}
