package inference

import (
	"errors"
	"strings"
	"testing"

	"github.com/trylook/searchd/internal/domain"
)

func TestParseVectors_EmbeddingObjects(t *testing.T) {
	data := []byte(`[{"embedding":[0.1,0.2]},{"embedding":[0.3,0.4]}]`)
	vectors, err := parseVectors(data, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 0.1 || vectors[1][1] != 0.4 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}

func TestParseVectors_BareList(t *testing.T) {
	data := []byte(`[[0.1,0.2],[0.3,0.4]]`)
	vectors, err := parseVectors(data, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 0.3 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}

func TestParseVectors_InferredValueObjects(t *testing.T) {
	data := []byte(`[{"inferred_value":[0.5,0.6]}]`)
	vectors, err := parseVectors(data, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 || vectors[0][1] != 0.6 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}

func TestParseVectors_DataEnvelope(t *testing.T) {
	data := []byte(`{"object":"list","data":[{"embedding":[0.1]},{"embedding":[0.2]}]}`)
	vectors, err := parseVectors(data, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}

func TestParseVectors_EmbeddingsEnvelope(t *testing.T) {
	data := []byte(`{"embeddings":[[0.1,0.2]]}`)
	vectors, err := parseVectors(data, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 || vectors[0][0] != 0.1 {
		t.Errorf("unexpected vectors: %v", vectors)
	}
}

func TestParseVectors_CountMismatchIsShapeError(t *testing.T) {
	data := []byte(`[{"embedding":[0.1]}]`)
	_, err := parseVectors(data, 2)
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestParseVectors_UnknownShapeListsKeys(t *testing.T) {
	data := []byte(`[{"vector":[0.1],"token_count":3}]`)
	_, err := parseVectors(data, 1)
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "token_count") || !strings.Contains(msg, "vector") {
		t.Errorf("error should name observed keys: %s", msg)
	}
}

func TestParseVectors_UnknownEnvelope(t *testing.T) {
	data := []byte(`{"result":"ok"}`)
	_, err := parseVectors(data, 1)
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "result") {
		t.Errorf("error should name envelope keys: %s", err.Error())
	}
}

func TestParseVectors_NotJSON(t *testing.T) {
	_, err := parseVectors([]byte(`<html>bad gateway</html>`), 1)
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestParseVectors_PriorityOverBareList(t *testing.T) {
	// elements parse as {"embedding"} objects; that shape wins
	data := []byte(`[{"embedding":[1,2]}]`)
	vectors, err := parseVectors(data, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors[0][0] != 1 {
		t.Errorf("unexpected vector: %v", vectors[0])
	}
}
