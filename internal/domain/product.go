package domain

import "strings"

// Product is a catalog row mirrored into the vector index. The ID is
// stable across re-syncs and serves as the upsert key. Description,
// category, and brand may be absent (empty). Metadata is opaque to the
// ranking pipeline.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	Source      string         `json:"source,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Embedding   []float32      `json:"-"`
}

// EmbeddingText builds the canonical embedding input: brand, name,
// category, description joined with single spaces, absent fields
// dropped. May return "" when every field is empty; the sync pipeline
// falls back to the product ID in that case.
func (p *Product) EmbeddingText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Brand, p.Name, p.Category, p.Description} {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
