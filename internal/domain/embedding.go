package domain

import (
	"context"
	"strings"
)

// Mode selects the inference profile. Some backends weight query and
// corpus embeddings differently, so callers must pass the right one.
type Mode string

const (
	// ModeSearch embeds a single retrieval query.
	ModeSearch Mode = "SEARCH"
	// ModeIngest embeds corpus documents for indexing.
	ModeIngest Mode = "INGEST"
)

// Embedder vectorizes a single query text in search mode.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder vectorizes a corpus batch in ingest mode. Output order
// and cardinality match the input exactly; any mismatch is an error,
// never a partial result.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NormalizeInput trims whitespace and truncates to maxLen runes to
// respect backend limits. Input that is empty after trimming becomes a
// single space so no call carries a truly empty payload.
func NormalizeInput(text string, maxLen int) string {
	t := strings.TrimSpace(text)
	if maxLen > 0 {
		if r := []rune(t); len(r) > maxLen {
			t = string(r[:maxLen])
		}
	}
	if t == "" {
		return " "
	}
	return t
}
