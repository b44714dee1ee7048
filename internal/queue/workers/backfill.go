package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mpatel-dev/cardvault/internal/cards"
	"github.com/mpatel-dev/cardvault/internal/embedding"
	"github.com/mpatel-dev/cardvault/internal/queue"
	"github.com/mpatel-dev/cardvault/internal/search"
)

// EmbeddingBackfillWorker regenerates embeddings for cards that were stored
// with a NULL embedding column after an ingest-time embedding failure.
type EmbeddingBackfillWorker struct {
	cardSvc *cards.Service
	text    search.TextEmbedder
	image   search.ImageEmbedder
}

func NewEmbeddingBackfillWorker(cardSvc *cards.Service, text search.TextEmbedder, image search.ImageEmbedder) *EmbeddingBackfillWorker {
	return &EmbeddingBackfillWorker{
		cardSvc: cardSvc,
		text:    text,
		image:   image,
	}
}

func (w *EmbeddingBackfillWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.EmbedBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	cardID, err := uuid.Parse(payload.CardID)
	if err != nil {
		return fmt.Errorf("parse card ID: %w", err)
	}

	cand, err := w.cardSvc.BackfillCandidateByID(ctx, cardID)
	if err != nil {
		if err == cards.ErrNotFound {
			slog.Info("card deleted before backfill, skipping", "card_id", cardID)
			return nil
		}
		return fmt.Errorf("load card: %w", err)
	}

	if err := w.backfill(ctx, *cand); err != nil {
		return err
	}

	slog.Info("embeddings backfilled", "card_id", cardID)
	return nil
}

// Sweep backfills every card currently missing an embedding. Run on a worker
// schedule; it catches cards whose enqueue itself was lost.
func (w *EmbeddingBackfillWorker) Sweep(ctx context.Context, batchSize int) error {
	candidates, err := w.cardSvc.ListMissingEmbeddings(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("list backfill candidates: %w", err)
	}

	var failed int
	for _, cand := range candidates {
		if err := w.backfill(ctx, cand); err != nil {
			failed++
			slog.Warn("backfill failed", "card_id", cand.Card.ID, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("backfill sweep: %d of %d cards failed", failed, len(candidates))
	}
	return nil
}

func (w *EmbeddingBackfillWorker) backfill(ctx context.Context, cand cards.BackfillCandidate) error {
	if cand.NeedsText {
		if cardText := embedding.CardText(cards.Metadata(cand.Card)); cardText != "" {
			vec, err := w.text.EmbedText(ctx, cardText)
			if err != nil {
				return fmt.Errorf("embed text: %w", err)
			}
			if err := w.cardSvc.UpdateTextEmbedding(ctx, cand.Card.ID, vec); err != nil {
				return fmt.Errorf("update text embedding: %w", err)
			}
		}
	}

	if cand.NeedsImage {
		vec, err := w.image.EmbedImage(ctx, cand.Card.ImageURL)
		if err != nil {
			return fmt.Errorf("embed image: %w", err)
		}
		if err := w.cardSvc.UpdateImageEmbedding(ctx, cand.Card.ID, vec); err != nil {
			return fmt.Errorf("update image embedding: %w", err)
		}
	}

	return nil
}
