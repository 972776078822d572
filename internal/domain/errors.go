package domain

import "errors"

var (
	// ErrNotConfigured signals that a required backend (index, catalog,
	// or embedding provider) is missing from the configuration.
	ErrNotConfigured = errors.New("search backend not configured")
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrColdStart signals that the embedding model is still loading.
	// Recovered locally by the provider's single-retry policy.
	ErrColdStart = errors.New("embedding model cold start")
	// ErrShapeMismatch signals an embedding response that matches none
	// of the known envelope shapes.
	ErrShapeMismatch = errors.New("unrecognized embedding response shape")
	// ErrEmbeddingCountMismatch signals a batch whose returned vector
	// count differs from the input text count.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
