package inference

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/trylook/searchd/internal/domain"
)

// Known envelope keys wrapping the embedding list, in priority order.
var envelopeKeys = []string{"data", "embeddings", "output", "predictions"}

// parseVectors decodes an embedding response without trusting a single
// wire contract. The payload is either a bare JSON array or an object
// wrapping one under a known key; the array itself is tried against
// each known element shape in priority order. A shape only wins if its
// element count matches want; otherwise the parse fails with a
// descriptive error instead of guessing.
func parseVectors(data []byte, want int) ([][]float32, error) {
	arr, keys, err := unwrapArray(data)
	if err != nil {
		return nil, err
	}

	// shape 1: [{"embedding": [...]}, ...]
	if vectors, ok := parseObjectList(arr, "embedding", want); ok {
		return vectors, nil
	}

	// shape 2: [[0.1, 0.2, ...], ...]
	if vectors, ok := parseBareVectors(arr, want); ok {
		return vectors, nil
	}

	// shape 3: [{"inferred_value": [...]}, ...]
	if vectors, ok := parseObjectList(arr, "inferred_value", want); ok {
		return vectors, nil
	}

	return nil, shapeMismatch(arr, keys, want)
}

// unwrapArray returns the embedding list and, for diagnostics, the keys
// of the envelope object if there was one.
func unwrapArray(data []byte) ([]json.RawMessage, []string, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, fmt.Errorf("response is neither array nor object: %w", domain.ErrShapeMismatch)
	}

	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range envelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr, keys, nil
		}
	}

	return nil, nil, fmt.Errorf("no embedding list under keys [%s]: %w",
		strings.Join(keys, " "), domain.ErrShapeMismatch)
}

// parseObjectList tries [{<field>: [...floats]}, ...].
func parseObjectList(arr []json.RawMessage, field string, want int) ([][]float32, bool) {
	if len(arr) != want {
		return nil, false
	}
	vectors := make([][]float32, len(arr))
	for i, raw := range arr {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, false
		}
		vecRaw, ok := item[field]
		if !ok {
			return nil, false
		}
		var vec []float32
		if err := json.Unmarshal(vecRaw, &vec); err != nil || len(vec) == 0 {
			return nil, false
		}
		vectors[i] = vec
	}
	return vectors, true
}

// parseBareVectors tries [[...floats], ...].
func parseBareVectors(arr []json.RawMessage, want int) ([][]float32, bool) {
	if len(arr) != want {
		return nil, false
	}
	vectors := make([][]float32, len(arr))
	for i, raw := range arr {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
			return nil, false
		}
		vectors[i] = vec
	}
	return vectors, true
}

// shapeMismatch builds an error naming what was actually observed so
// the response can be diagnosed from logs alone.
func shapeMismatch(arr []json.RawMessage, envelopeKeys []string, want int) error {
	detail := fmt.Sprintf("%d elements, want %d", len(arr), want)
	if len(envelopeKeys) > 0 {
		detail += fmt.Sprintf(", envelope keys [%s]", strings.Join(envelopeKeys, " "))
	}
	if len(arr) > 0 {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(arr[0], &item); err == nil {
			keys := make([]string, 0, len(item))
			for k := range item {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			detail += fmt.Sprintf(", element keys [%s]", strings.Join(keys, " "))
		}
	}
	return fmt.Errorf("unrecognized embedding response (%s): %w", detail, domain.ErrShapeMismatch)
}
