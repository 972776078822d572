package client

import "fmt"

// SearchRequest holds the parameters for a product search.
type SearchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Category string `json:"category,omitempty"`
}

// SearchResult is one ranked product.
type SearchResult struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	Source      string         `json:"source,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Similarity  float64        `json:"similarity"`
}

// SearchResponse is the ranked result list.
type SearchResponse struct {
	Items []SearchResult `json:"items"`
	Total int            `json:"total"`
}

// SyncSummary reports the outcome of a catalog sync run.
type SyncSummary struct {
	Indexed int      `json:"indexed"`
	Total   int      `json:"total"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Health is the aggregated service health.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("searchd: %s (%d): %s", e.Code, e.Status, e.Message)
}
