package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/trylook/searchd/internal/domain"
	"github.com/trylook/searchd/internal/metrics"
)

const providerName = "inference"

// Embedder calls a managed text-embedding inference endpoint over HTTP.
// The endpoint distinguishes SEARCH (query) from INGEST (corpus) calls
// and may need a warm-up period after scale-from-zero.
type Embedder struct {
	url              string
	apiKey           string
	model            string
	batchSize        int
	maxTextLen       int
	coldStartBackoff time.Duration
	http             *http.Client
	logger           *zap.Logger
}

// Config holds the inference endpoint settings.
type Config struct {
	URL              string
	APIKey           string
	Model            string
	BatchSize        int
	MaxTextLen       int
	Timeout          time.Duration
	ColdStartBackoff time.Duration
	Logger           *zap.Logger
}

// NewEmbedder creates an inference-endpoint embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxTextLen := cfg.MaxTextLen
	if maxTextLen <= 0 {
		maxTextLen = 8191
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		// generous: a cold endpoint can take most of a minute to answer
		timeout = 120 * time.Second
	}
	backoff := cfg.ColdStartBackoff
	if backoff <= 0 {
		backoff = 45 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		url:              cfg.URL,
		apiKey:           cfg.APIKey,
		model:            cfg.Model,
		batchSize:        batchSize,
		maxTextLen:       maxTextLen,
		coldStartBackoff: backoff,
		http:             &http.Client{Timeout: timeout},
		logger:           logger,
	}
}

// request is the wire body for the embedding path.
type request struct {
	Input     any    `json:"input"`
	InputType string `json:"input_type"`
}

// Embed implements domain.Embedder (SEARCH mode).
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := domain.NormalizeInput(text, e.maxTextLen)
	vectors, err := e.call(ctx, &request{Input: normalized, InputType: string(domain.ModeSearch)}, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements domain.BatchEmbedder (INGEST mode). Inputs are
// chunked; chunks run sequentially and the first failure aborts the
// whole batch. The result always has exactly one vector per input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = domain.NormalizeInput(t, e.maxTextLen)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(normalized); start += e.batchSize {
		end := min(start+e.batchSize, len(normalized))
		chunk := normalized[start:end]
		got, err := e.call(ctx, &request{Input: chunk, InputType: string(domain.ModeIngest)}, len(chunk))
		if err != nil {
			return nil, fmt.Errorf("batch chunk %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, got...)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("got %d vectors for %d texts: %w",
			len(vectors), len(texts), domain.ErrEmbeddingCountMismatch)
	}
	return vectors, nil
}

// HealthCheck probes the endpoint with a minimal SEARCH call.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	return nil
}

// call sends one request, retrying exactly once after the configured
// backoff when the endpoint reports a cold start. Any other error, or
// a second failure, propagates.
func (e *Embedder) call(ctx context.Context, req *request, want int) ([][]float32, error) {
	vectors, err := e.doOnce(ctx, req, want)
	if err == nil {
		return vectors, nil
	}
	if !errors.Is(err, domain.ErrColdStart) {
		return nil, err
	}

	metrics.EmbeddingColdStartsTotal.WithLabelValues(providerName, e.model).Inc()
	e.logger.Warn("embedding endpoint cold start, retrying after backoff",
		zap.Duration("backoff", e.coldStartBackoff),
		zap.Error(err))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("cold-start backoff interrupted: %w", ctx.Err())
	case <-time.After(e.coldStartBackoff):
	}

	return e.doOnce(ctx, req, want)
}

func (e *Embedder) doOnce(ctx context.Context, req *request, want int) ([][]float32, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	start := time.Now()
	resp, err := e.http.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "transport").Inc()
		return nil, fmt.Errorf("embedding request failed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		return nil, fmt.Errorf("read embedding response: %w: %w", domain.ErrEmbeddingProviderError, err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		if isColdStart(resp.StatusCode, data) {
			return nil, fmt.Errorf("endpoint warming up (status %d): %w", resp.StatusCode, domain.ErrColdStart)
		}
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		return nil, fmt.Errorf("embedding API error %d: %s: %w",
			resp.StatusCode, truncate(data, 256), domain.ErrEmbeddingProviderError)
	}

	vectors, err := parseVectors(data, want)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "shape_mismatch").Inc()
		return nil, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return vectors, nil
}

// cold-start signatures seen in the wild: 503 from the gateway, or an
// error body naming model loading / warm-up
var coldStartMarkers = []string{"warming up", "cold start", "loading", "not ready", "scaled to zero"}

func isColdStart(status int, body []byte) bool {
	if status == http.StatusServiceUnavailable {
		return true
	}
	lower := bytes.ToLower(body)
	for _, marker := range coldStartMarkers {
		if bytes.Contains(lower, []byte(marker)) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
