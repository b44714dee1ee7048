package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGCardStore runs ranked card queries against Postgres with pgvector. The
// cosine computation happens inside the database via the <=> distance
// operator; similarity = 1 - distance.
type PGCardStore struct {
	db *pgxpool.Pool
}

func NewPGCardStore(db *pgxpool.Pool) *PGCardStore {
	return &PGCardStore{db: db}
}

func (s *PGCardStore) RankedSearch(ctx context.Context, textVec, imageVec []float32, filters Filters, weights Weights, limit int) ([]RankedResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Similarity expressions select NULL for a modality that was not queried
	// or for a row whose embedding is missing. NULL survives into the row so
	// the caller can distinguish "no signal" from zero similarity.
	textSim := "NULL::float8"
	var textParam string
	if textVec != nil {
		textParam = arg(pgvector.NewVector(textVec))
		textSim = fmt.Sprintf("1 - (text_embedding <=> %s)", textParam)
	}

	imageSim := "NULL::float8"
	var imageParam string
	if imageVec != nil {
		imageParam = arg(pgvector.NewVector(imageVec))
		imageSim = fmt.Sprintf("1 - (image_embedding <=> %s)", imageParam)
	}

	where := ""
	if conds := filters.conditions(&args); len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	// Ranking uses the same drop-missing-and-renormalize fusion as the
	// returned score: weighted sum over present similarities divided by the
	// weight of present modalities. Rows with no queried embedding divide by
	// NULL and sort last. Ties always break by creation order then id.
	var orderBy string
	switch {
	case textVec != nil && imageVec != nil:
		wt := arg(weights.Text)
		wi := arg(weights.Image)
		orderBy = fmt.Sprintf(
			`(COALESCE((1 - (text_embedding <=> %s)) * %s, 0) + COALESCE((1 - (image_embedding <=> %s)) * %s, 0))
			 / NULLIF((CASE WHEN text_embedding IS NOT NULL THEN %s ELSE 0 END)
			        + (CASE WHEN image_embedding IS NOT NULL THEN %s ELSE 0 END), 0)
			 DESC NULLS LAST, created_at ASC, id ASC`,
			textParam, wt, imageParam, wi, wt, wi,
		)
	case textVec != nil:
		orderBy = fmt.Sprintf("text_embedding <=> %s ASC NULLS LAST, created_at ASC, id ASC", textParam)
	case imageVec != nil:
		orderBy = fmt.Sprintf("image_embedding <=> %s ASC NULLS LAST, created_at ASC, id ASC", imageParam)
	default:
		// Fallback mode: pure metadata match in creation order.
		orderBy = "created_at ASC, id ASC"
	}

	query := fmt.Sprintf(
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, created_at,
		        %s AS text_similarity,
		        %s AS image_similarity
		 FROM cards
		 %s
		 ORDER BY %s
		 LIMIT %s`,
		textSim, imageSim, where, orderBy, arg(limit),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ranked search: %w", err)
	}
	defer rows.Close()

	var results []RankedResult
	for rows.Next() {
		var r RankedResult
		if err := rows.Scan(
			&r.Card.ID, &r.Card.Player, &r.Card.Year, &r.Card.Brand, &r.Card.CardNumber,
			&r.Card.PSAGrade, &r.Card.CertificationNumber, &r.Card.Sport, &r.Card.ImageURL,
			&r.Card.CreatedAt, &r.TextSimilarity, &r.ImageSimilarity,
		); err != nil {
			return nil, fmt.Errorf("scan ranked result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ranked results: %w", err)
	}

	return results, nil
}

var _ CardStore = (*PGCardStore)(nil)

// NearestByText returns the cards closest to the given text vector,
// restricted to cards that have a text embedding. Used by the chat
// assistant for context retrieval.
func (s *PGCardStore) NearestByText(ctx context.Context, textVec []float32, limit int) ([]RankedResult, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, player, year, brand, card_number, psa_grade, certification_number, sport, image_url, created_at,
		        1 - (text_embedding <=> $1) AS text_similarity
		 FROM cards
		 WHERE text_embedding IS NOT NULL
		 ORDER BY text_embedding <=> $1 ASC, created_at ASC, id ASC
		 LIMIT $2`,
		pgvector.NewVector(textVec), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest by text: %w", err)
	}
	defer rows.Close()

	var results []RankedResult
	for rows.Next() {
		var r RankedResult
		if err := rows.Scan(
			&r.Card.ID, &r.Card.Player, &r.Card.Year, &r.Card.Brand, &r.Card.CardNumber,
			&r.Card.PSAGrade, &r.Card.CertificationNumber, &r.Card.Sport, &r.Card.ImageURL,
			&r.Card.CreatedAt, &r.TextSimilarity,
		); err != nil {
			return nil, fmt.Errorf("scan nearest result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read nearest results: %w", err)
	}

	return results, nil
}
