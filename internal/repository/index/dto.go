package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/trylook/searchd/internal/domain"
)

// productToFields flattens a product into hash fields. The embedding is
// stored as a little-endian float32 blob, metadata as JSON.
func productToFields(p *domain.Product) (map[string]string, error) {
	fields := map[string]string{
		"name":      p.Name,
		"embedding": vectorToBytes(p.Embedding),
	}
	if p.Description != "" {
		fields["description"] = p.Description
	}
	if p.Category != "" {
		fields["category"] = p.Category
	}
	if p.Brand != "" {
		fields["brand"] = p.Brand
	}
	if p.Source != "" {
		fields["source"] = p.Source
	}
	if p.Price != nil {
		fields["price"] = strconv.FormatFloat(*p.Price, 'f', -1, 64)
	}
	if len(p.Metadata) > 0 {
		data, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		fields["metadata"] = string(data)
	}
	return fields, nil
}

// fieldsToProduct reconstructs a product from hash fields. Unparseable
// price or metadata values are dropped rather than failing the hit.
func fieldsToProduct(id string, fields map[string]string) domain.Product {
	p := domain.Product{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Category:    fields["category"],
		Brand:       fields["brand"],
		Source:      fields["source"],
	}
	if v, ok := fields["price"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.Price = &f
		}
	}
	if v, ok := fields["metadata"]; ok && v != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			p.Metadata = m
		}
	}
	return p
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
