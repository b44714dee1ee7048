package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mpatel-dev/cardvault/internal/models"
	"github.com/mpatel-dev/cardvault/internal/vectormath"
)

// TextEmbedder turns a free-text query into its 768-dim embedding.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ImageEmbedder turns an image reference (URL, data URI, or raw base64)
// into its 512-dim embedding.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, imageRef string) ([]float32, error)
}

// EmbeddingCache is an optional best-effort cache for text query embeddings.
// A miss or a cache failure falls through to the embedder; the cache never
// turns into an error.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	PutEmbedding(ctx context.Context, text string, vec []float32)
}

const (
	DefaultLimit       = 10
	DefaultTextWeight  = 0.5
	DefaultImageWeight = 0.5
)

// Service orchestrates a hybrid search: obtain query embeddings, build the
// filter predicate, run the ranked store query, fuse the final scores. Each
// call is stateless; the service holds no mutable state and is safe for
// concurrent use.
type Service struct {
	store CardStore
	text  TextEmbedder
	image ImageEmbedder
	cache EmbeddingCache
}

type Option func(*Service)

// WithEmbeddingCache enables the text query embedding cache.
func WithEmbeddingCache(c EmbeddingCache) Option {
	return func(s *Service) { s.cache = c }
}

func NewService(store CardStore, text TextEmbedder, image ImageEmbedder, opts ...Option) *Service {
	s := &Service{store: store, text: text, image: image}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one hybrid query and returns cards ordered by fused score
// descending (creation order in fallback mode). Results arrive in store
// order; the displayed score uses the same fusion convention as the store's
// ranking, so no re-sorting happens here.
func (s *Service) Search(ctx context.Context, q Query) ([]ScoredCard, error) {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, q.Limit)
	}

	weights := q.Weights
	if weights.isZero() {
		weights = Weights{Text: DefaultTextWeight, Image: DefaultImageWeight}
	}
	if weights.Text < 0 || weights.Image < 0 {
		return nil, fmt.Errorf("%w: weights must be non-negative", ErrInvalidQuery)
	}

	textVec, imageVec, err := s.embedQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	results, err := s.store.RankedSearch(ctx, textVec, imageVec, q.Filters, weights, limit)
	if err != nil {
		// A dimension mismatch is its own error kind, not a store outage.
		if errors.Is(err, ErrDimensionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	scored := make([]ScoredCard, len(results))
	for i, r := range results {
		scored[i] = ScoredCard{Card: r.Card, Score: s.finalScore(r, textVec, imageVec, weights)}
	}

	slog.Debug("hybrid search completed",
		"text_query", q.Text != "",
		"image_query", q.Image != "",
		"results", len(scored),
	)
	return scored, nil
}

// embedQuery fetches the requested query embeddings. The two collaborator
// calls are independent and run concurrently; either failure aborts the
// search with ErrEmbeddingUnavailable rather than degrading to a zero
// vector.
func (s *Service) embedQuery(ctx context.Context, q Query) (textVec, imageVec []float32, err error) {
	g, gctx := errgroup.WithContext(ctx)

	if q.Text != "" {
		g.Go(func() error {
			vec, err := s.embedText(gctx, q.Text)
			if err != nil {
				return fmt.Errorf("%w: text query: %v", ErrEmbeddingUnavailable, err)
			}
			if len(vec) != models.TextEmbeddingDim {
				return fmt.Errorf("%w: text embedder returned %d dims, want %d",
					ErrEmbeddingUnavailable, len(vec), models.TextEmbeddingDim)
			}
			textVec = vec
			return nil
		})
	}

	if q.Image != "" {
		g.Go(func() error {
			vec, err := s.image.EmbedImage(gctx, q.Image)
			if err != nil {
				return fmt.Errorf("%w: image query: %v", ErrEmbeddingUnavailable, err)
			}
			if len(vec) != models.ImageEmbeddingDim {
				return fmt.Errorf("%w: image embedder returned %d dims, want %d",
					ErrEmbeddingUnavailable, len(vec), models.ImageEmbeddingDim)
			}
			imageVec = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return textVec, imageVec, nil
}

func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.cache != nil {
		if vec, ok := s.cache.GetEmbedding(ctx, text); ok {
			return vec, nil
		}
	}

	vec, err := s.text.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.PutEmbedding(ctx, text, vec)
	}
	return vec, nil
}

// finalScore recomputes the fused score for display. A missing similarity
// contributes neither value nor weight (the store ranks with the identical
// convention). Fallback mode has no ranking signal at all: every metadata
// match scores exactly 1.0.
func (s *Service) finalScore(r RankedResult, textVec, imageVec []float32, weights Weights) float64 {
	if textVec == nil && imageVec == nil {
		return 1.0
	}

	var scores []vectormath.WeightedScore
	if textVec != nil && r.TextSimilarity != nil {
		scores = append(scores, vectormath.WeightedScore{Value: *r.TextSimilarity, Weight: weights.Text})
	}
	if imageVec != nil && r.ImageSimilarity != nil {
		scores = append(scores, vectormath.WeightedScore{Value: *r.ImageSimilarity, Weight: weights.Image})
	}
	return vectormath.FuseScores(scores)
}
