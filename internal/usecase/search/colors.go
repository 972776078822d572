package search

import (
	"strings"
	"unicode"

	"github.com/trylook/searchd/internal/domain"
)

// colorTerms is the dictionary of color words that trigger lexical
// boosting. Embeddings alone rank a red and a blue variant of the same
// product nearly identically, so an explicit color mention in the query
// gets a lexical nudge.
var colorTerms = map[string]struct{}{
	"black": {}, "white": {}, "gray": {}, "grey": {}, "silver": {},
	"red": {}, "crimson": {}, "scarlet": {}, "maroon": {}, "burgundy": {},
	"pink": {}, "rose": {}, "fuchsia": {}, "magenta": {},
	"orange": {}, "coral": {}, "peach": {}, "apricot": {},
	"yellow": {}, "gold": {}, "golden": {}, "mustard": {}, "amber": {},
	"green": {}, "olive": {}, "lime": {}, "emerald": {}, "mint": {}, "sage": {},
	"teal": {}, "turquoise": {}, "cyan": {}, "aqua": {},
	"blue": {}, "navy": {}, "cobalt": {}, "azure": {}, "indigo": {}, "denim": {},
	"purple": {}, "violet": {}, "lavender": {}, "lilac": {}, "plum": {},
	"brown": {}, "tan": {}, "beige": {}, "khaki": {}, "taupe": {},
	"cream": {}, "ivory": {}, "charcoal": {}, "bronze": {}, "copper": {},
}

// detectColorBoosts scans the query for color words and emits a pair of
// boost clauses per distinct color, in query order: a strong one on the
// product name and a weaker one on the description.
func detectColorBoosts(query string, nameWeight, descriptionWeight float64) []domain.Boost {
	var boosts []domain.Boost
	seen := make(map[string]struct{})

	for _, token := range tokenize(query) {
		if _, ok := colorTerms[token]; !ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		boosts = append(boosts,
			domain.Boost{Field: "name", Term: token, Weight: nameWeight},
			domain.Boost{Field: "description", Term: token, Weight: descriptionWeight},
		)
	}

	return boosts
}

// tokenize lower-cases the query and splits on anything that is not a
// letter or digit.
func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
