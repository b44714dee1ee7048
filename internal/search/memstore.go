package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mpatel-dev/cardvault/internal/models"
	"github.com/mpatel-dev/cardvault/internal/vectormath"
)

// MemoryStore is an in-memory CardStore for environments without a
// vector-capable database. It applies the same predicate, fusion convention,
// and tie-break ordering as the Postgres store, computing cosine similarity
// client-side.
type MemoryStore struct {
	mu    sync.RWMutex
	cards []models.Card
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends cards to the store.
func (m *MemoryStore) Add(cards ...models.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, cards...)
}

func (m *MemoryStore) RankedSearch(_ context.Context, textVec, imageVec []float32, filters Filters, weights Weights, limit int) ([]RankedResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type rankedRow struct {
		RankedResult
		rank   float64
		scored bool
	}

	var rows []rankedRow
	for _, c := range m.cards {
		if !filters.Matches(c) {
			continue
		}

		row := rankedRow{RankedResult: RankedResult{Card: c}}

		if textVec != nil && c.TextEmbedding != nil {
			sim, err := vectormath.CosineSimilarity(textVec, c.TextEmbedding)
			if err != nil {
				return nil, fmt.Errorf("%w: text similarity for card %s: %v", ErrDimensionMismatch, c.ID, err)
			}
			row.TextSimilarity = &sim
		}
		if imageVec != nil && c.ImageEmbedding != nil {
			sim, err := vectormath.CosineSimilarity(imageVec, c.ImageEmbedding)
			if err != nil {
				return nil, fmt.Errorf("%w: image similarity for card %s: %v", ErrDimensionMismatch, c.ID, err)
			}
			row.ImageSimilarity = &sim
		}

		var scores []vectormath.WeightedScore
		var presentWeight float64
		if row.TextSimilarity != nil {
			scores = append(scores, vectormath.WeightedScore{Value: *row.TextSimilarity, Weight: weights.Text})
			presentWeight += weights.Text
		}
		if row.ImageSimilarity != nil {
			scores = append(scores, vectormath.WeightedScore{Value: *row.ImageSimilarity, Weight: weights.Image})
			presentWeight += weights.Image
		}
		// A row ranks as scored only when its present modalities carry
		// weight; the SQL path agrees because its NULLIF denominator turns
		// a zero weight sum into NULL and the row sorts NULLS LAST.
		if presentWeight > 0 {
			row.rank = vectormath.FuseScores(scores)
			row.scored = true
		}

		rows = append(rows, row)
	}

	ranking := textVec != nil || imageVec != nil
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ranking {
			// Scored rows sort above unscored ones, then by fused score.
			if a.scored != b.scored {
				return a.scored
			}
			if a.rank != b.rank {
				return a.rank > b.rank
			}
		}
		if !a.Card.CreatedAt.Equal(b.Card.CreatedAt) {
			return a.Card.CreatedAt.Before(b.Card.CreatedAt)
		}
		return strings.Compare(a.Card.ID.String(), b.Card.ID.String()) < 0
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}

	results := make([]RankedResult, len(rows))
	for i, r := range rows {
		results[i] = r.RankedResult
	}
	return results, nil
}

var _ CardStore = (*MemoryStore)(nil)
