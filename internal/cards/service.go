// Package cards implements card ingestion and retrieval: vision validation,
// image storage, embedding generation, and the cards table CRUD surface.
package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mpatel-dev/cardvault/internal/embedding"
	"github.com/mpatel-dev/cardvault/internal/models"
	"github.com/mpatel-dev/cardvault/internal/queue"
	"github.com/mpatel-dev/cardvault/internal/search"
	"github.com/mpatel-dev/cardvault/internal/storage"
	"github.com/mpatel-dev/cardvault/internal/vision"
)

// ErrInvalidCard marks an image the vision model rejected (not a PSA graded
// NBA card). The wrapped message carries the model's reason.
var ErrInvalidCard = errors.New("invalid card")

// ErrNotFound marks a card id with no matching row.
var ErrNotFound = errors.New("card not found")

type Service struct {
	db       *pgxpool.Pool
	storage  storage.Storage
	bucket   string
	analyzer *vision.Analyzer
	text     search.TextEmbedder
	image    search.ImageEmbedder
	queue    *queue.Client
}

func NewService(db *pgxpool.Pool, store storage.Storage, bucket string, analyzer *vision.Analyzer, text search.TextEmbedder, image search.ImageEmbedder, q *queue.Client) *Service {
	return &Service{
		db:       db,
		storage:  store,
		bucket:   bucket,
		analyzer: analyzer,
		text:     text,
		image:    image,
		queue:    q,
	}
}

type CreateRequest struct {
	// ImageBase64 is the card photo, raw base64 or a data URI.
	ImageBase64 string
}

// Create ingests one card photo. The image must pass vision validation; an
// embedding failure does not abort ingestion, it leaves the column NULL and
// schedules a backfill so the card stays searchable by metadata meanwhile.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Card, error) {
	if req.ImageBase64 == "" {
		return nil, fmt.Errorf("%w: image data is required", ErrInvalidCard)
	}

	meta, err := s.analyzer.AnalyzeCard(ctx, req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("analyze card: %w", err)
	}
	if !meta.IsValid {
		reason := meta.Error
		if reason == "" {
			reason = "image rejected by card validation"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCard, reason)
	}

	imageURL, err := storage.UploadCardImage(ctx, s.storage, s.bucket, req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("store card image: %w", err)
	}

	cardID := uuid.New()

	var textVec []float32
	if cardText := embedding.CardText(*meta); cardText != "" {
		textVec, err = s.text.EmbedText(ctx, cardText)
		if err != nil {
			slog.Warn("text embedding failed, scheduling backfill", "card_id", cardID, "error", err)
			textVec = nil
		}
	}

	// The image embedding comes from the stored URL, the same reference the
	// backfill worker uses, so both paths produce identical vectors.
	imageVec, err := s.image.EmbedImage(ctx, imageURL)
	if err != nil {
		slog.Warn("image embedding failed, scheduling backfill", "card_id", cardID, "error", err)
		imageVec = nil
	}

	var card models.Card
	err = s.db.QueryRow(ctx,
		`INSERT INTO cards (id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, text_embedding, image_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, created_at`,
		cardID,
		nullable(meta.Player), nullable(meta.Year), nullable(meta.Brand), nullable(meta.CardNumber),
		nullable(meta.PSAGrade), nullable(meta.CertificationNumber), nullable(meta.Sport),
		imageURL, vectorOrNull(textVec), vectorOrNull(imageVec),
	).Scan(
		&card.ID, &card.Player, &card.Year, &card.Brand, &card.CardNumber,
		&card.PSAGrade, &card.CertificationNumber, &card.Sport, &card.ImageURL, &card.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	if (textVec == nil || imageVec == nil) && s.queue != nil {
		if err := s.queue.EnqueueEmbedBackfill(queue.EmbedBackfillPayload{CardID: card.ID.String()}); err != nil {
			slog.Warn("enqueue embedding backfill failed", "card_id", card.ID, "error", err)
		}
	}

	return &card, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	err := s.db.QueryRow(ctx,
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, created_at
		 FROM cards WHERE id = $1`,
		id,
	).Scan(
		&card.ID, &card.Player, &card.Year, &card.Brand, &card.CardNumber,
		&card.PSAGrade, &card.CertificationNumber, &card.Sport, &card.ImageURL, &card.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &card, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Card, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, created_at
		 FROM cards ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(
			&c.ID, &c.Player, &c.Year, &c.Brand, &c.CardNumber,
			&c.PSAGrade, &c.CertificationNumber, &c.Sport, &c.ImageURL, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM cards WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) UpdateTextEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error {
	if len(vec) != models.TextEmbeddingDim {
		return fmt.Errorf("text embedding has %d dims, want %d", len(vec), models.TextEmbeddingDim)
	}
	_, err := s.db.Exec(ctx, "UPDATE cards SET text_embedding = $1 WHERE id = $2", pgvector.NewVector(vec), id)
	return err
}

func (s *Service) UpdateImageEmbedding(ctx context.Context, id uuid.UUID, vec []float32) error {
	if len(vec) != models.ImageEmbeddingDim {
		return fmt.Errorf("image embedding has %d dims, want %d", len(vec), models.ImageEmbeddingDim)
	}
	_, err := s.db.Exec(ctx, "UPDATE cards SET image_embedding = $1 WHERE id = $2", pgvector.NewVector(vec), id)
	return err
}

// BackfillCandidate is a stored card with at least one embedding missing.
type BackfillCandidate struct {
	Card       models.Card
	NeedsText  bool
	NeedsImage bool
}

// ListMissingEmbeddings returns cards missing at least one embedding, oldest
// first, for the backfill worker.
func (s *Service) ListMissingEmbeddings(ctx context.Context, limit int) ([]BackfillCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url,
		        text_embedding IS NULL, image_embedding IS NULL, created_at
		 FROM cards
		 WHERE text_embedding IS NULL OR image_embedding IS NULL
		 ORDER BY created_at ASC, id ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cards missing embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []BackfillCandidate
	for rows.Next() {
		var cand BackfillCandidate
		c := &cand.Card
		if err := rows.Scan(
			&c.ID, &c.Player, &c.Year, &c.Brand, &c.CardNumber,
			&c.PSAGrade, &c.CertificationNumber, &c.Sport, &c.ImageURL,
			&cand.NeedsText, &cand.NeedsImage, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		candidates = append(candidates, cand)
	}
	return candidates, rows.Err()
}

// BackfillCandidateByID loads one card together with its missing-embedding
// flags. Returns ErrNotFound when the card was deleted since enqueueing.
func (s *Service) BackfillCandidateByID(ctx context.Context, id uuid.UUID) (*BackfillCandidate, error) {
	var cand BackfillCandidate
	c := &cand.Card
	err := s.db.QueryRow(ctx,
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url,
		        text_embedding IS NULL, image_embedding IS NULL, created_at
		 FROM cards WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.Player, &c.Year, &c.Brand, &c.CardNumber,
		&c.PSAGrade, &c.CertificationNumber, &c.Sport, &c.ImageURL,
		&cand.NeedsText, &cand.NeedsImage, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load backfill candidate: %w", err)
	}
	return &cand, nil
}

// Metadata rebuilds the vision metadata view of a stored card, used to
// regenerate its canonical text during backfill.
func Metadata(c models.Card) models.CardMetadata {
	return models.CardMetadata{
		IsValid:             true,
		Player:              deref(c.Player),
		Year:                deref(c.Year),
		Brand:               deref(c.Brand),
		CardNumber:          deref(c.CardNumber),
		PSAGrade:            deref(c.PSAGrade),
		CertificationNumber: deref(c.CertificationNumber),
		Sport:               deref(c.Sport),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func vectorOrNull(vec []float32) any {
	if vec == nil {
		return nil
	}
	return pgvector.NewVector(vec)
}
