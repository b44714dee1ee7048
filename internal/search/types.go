package search

import (
	"context"

	"github.com/mpatel-dev/cardvault/internal/models"
)

// Query is one hybrid search request. Text and Image are both optional; with
// neither set the search degrades to a pure metadata-filter lookup.
type Query struct {
	Text    string  `json:"text_query,omitempty"`
	Image   string  `json:"image_query,omitempty"` // URL, data URI, or raw base64
	Filters Filters `json:"filters,omitempty"`
	Weights Weights `json:"weights,omitempty"`
	// Limit caps the result count. Zero (or an omitted JSON field) means
	// DefaultLimit; explicitly requesting zero results is not supported.
	Limit int `json:"limit,omitempty"`
}

// Weights controls how the two modality similarities are fused. The zero
// value means "use the defaults" (0.5 / 0.5).
type Weights struct {
	Text  float64 `json:"text"`
	Image float64 `json:"image"`
}

func (w Weights) isZero() bool { return w.Text == 0 && w.Image == 0 }

// ScoredCard is one search hit: the card plus its fused score in [0,1].
// In fallback (no-vector) mode the score is exactly 1.0.
type ScoredCard struct {
	models.Card
	Score float64 `json:"score"`
}

// RankedResult is a row from the store's ranked query. A nil similarity
// means the card has no embedding for that modality (or the modality was
// not queried). No signal, distinct from zero similarity.
type RankedResult struct {
	Card            models.Card
	TextSimilarity  *float64
	ImageSimilarity *float64
}

// CardStore executes filtered, ranked nearest-neighbor queries over the card
// set. Read-only: nothing in the search path mutates card state.
//
// With both vectors nil the store returns cards matching the filters in
// creation order (fallback mode). With one or both vectors set it returns
// cards ordered by fused similarity descending, cards lacking every queried
// embedding sorting below all scored cards. Ties always break by created_at
// then id, so identical queries against an unchanged store return identical
// orderings.
type CardStore interface {
	RankedSearch(ctx context.Context, textVec, imageVec []float32, filters Filters, weights Weights, limit int) ([]RankedResult, error)
}
