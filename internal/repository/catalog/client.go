package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trylook/searchd/internal/domain"
)

// Config holds connection parameters for the product catalog (a
// PostgREST-compatible endpoint, e.g. Supabase).
type Config struct {
	BaseURL  string
	APIKey   string
	Table    string
	PageSize int
	Timeout  time.Duration
}

// Client reads products from the system of record over REST.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a catalog client.
func New(cfg Config) *Client {
	if cfg.Table == "" {
		cfg.Table = "products"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// row mirrors the catalog's column names.
type row struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Brand       string         `json:"brand"`
	Source      string         `json:"source"`
	Price       *float64       `json:"price"`
	Metadata    map[string]any `json:"metadata"`
}

// FetchAll pages through the catalog with Range headers until a short
// page signals the end. Order is stable (id ascending) so pages do not
// overlap under concurrent writes.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product

	for offset := 0; ; offset += c.cfg.PageSize {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		for i := range page {
			products = append(products, toProduct(&page[i]))
		}
		if len(page) < c.cfg.PageSize {
			return products, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]row, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=*&order=id.asc", c.cfg.BaseURL, c.cfg.Table)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+c.cfg.PageSize-1))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	defer resp.Body.Close()

	// PostgREST answers 206 for ranged reads
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch products: status %d: %s", resp.StatusCode, body)
	}

	var page []row
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return page, nil
}

func toProduct(r *row) domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Brand:       r.Brand,
		Source:      r.Source,
		Price:       r.Price,
		Metadata:    r.Metadata,
	}
}
