package search

import (
	"testing"

	"github.com/trylook/searchd/internal/domain"
)

func TestDetectColorBoosts_SingleColor(t *testing.T) {
	boosts := detectColorBoosts("blue jeans", 15, 10)
	if len(boosts) != 2 {
		t.Fatalf("expected 2 boosts, got %d", len(boosts))
	}
	want := []domain.Boost{
		{Field: "name", Term: "blue", Weight: 15},
		{Field: "description", Term: "blue", Weight: 10},
	}
	for i, b := range boosts {
		if b != want[i] {
			t.Errorf("boost[%d] = %+v, want %+v", i, b, want[i])
		}
	}
}

func TestDetectColorBoosts_NoColor(t *testing.T) {
	if boosts := detectColorBoosts("running sneakers", 15, 10); boosts != nil {
		t.Errorf("expected no boosts, got %v", boosts)
	}
}

func TestDetectColorBoosts_CaseFolded(t *testing.T) {
	boosts := detectColorBoosts("NAVY Blazer", 15, 10)
	if len(boosts) != 2 || boosts[0].Term != "navy" {
		t.Errorf("unexpected boosts: %v", boosts)
	}
}

func TestDetectColorBoosts_Dedupes(t *testing.T) {
	boosts := detectColorBoosts("red shirt red", 15, 10)
	if len(boosts) != 2 {
		t.Errorf("duplicate color should emit one boost pair, got %d", len(boosts))
	}
}

func TestDetectColorBoosts_MultipleColorsInQueryOrder(t *testing.T) {
	boosts := detectColorBoosts("green and gold scarf", 15, 10)
	if len(boosts) != 4 {
		t.Fatalf("expected 4 boosts, got %d", len(boosts))
	}
	if boosts[0].Term != "green" || boosts[2].Term != "gold" {
		t.Errorf("boosts should preserve query order: %v", boosts)
	}
}

func TestDetectColorBoosts_PunctuationBoundaries(t *testing.T) {
	boosts := detectColorBoosts("t-shirt, black/white", 15, 10)
	if len(boosts) != 4 {
		t.Fatalf("expected 4 boosts, got %d", len(boosts))
	}
	if boosts[0].Term != "black" || boosts[2].Term != "white" {
		t.Errorf("unexpected terms: %v", boosts)
	}
}

func TestDetectColorBoosts_NoSubstringMatches(t *testing.T) {
	// "blues" and "redwood" are not color tokens
	if boosts := detectColorBoosts("blues redwood", 15, 10); boosts != nil {
		t.Errorf("expected no boosts for non-exact tokens, got %v", boosts)
	}
}
