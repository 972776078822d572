package domain

// Boost is a lexical should-clause: documents whose field contains the
// term get the weight added to their raw score. Compensates for
// embeddings under-weighting exact color mentions.
type Boost struct {
	Field  string
	Term   string
	Weight float64
}

// Hit is a raw index hit before per-request normalization. RawScore
// may exceed 1 when lexical boosts apply.
type Hit struct {
	Product  Product
	RawScore float64
}

// SearchResult is a ranked product hit. Similarity is normalized per
// request to [0, 1] and is never persisted.
type SearchResult struct {
	Product
	Similarity float64 `json:"similarity"`
}
