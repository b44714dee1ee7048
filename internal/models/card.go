package models

import (
	"time"

	"github.com/google/uuid"
)

// Embedding dimensions are fixed by the models that produce them:
// text-embedding-004-class models emit 768 floats, CLIP ViT-B/32 emits 512.
// The vector columns in the cards table are declared with the same sizes,
// so a wrong-length vector is rejected before it ever reaches the store.
const (
	TextEmbeddingDim  = 768
	ImageEmbeddingDim = 512
)

// Card is a graded sports card in the collection. All descriptive fields are
// nullable: they come from vision extraction and any of them may be missing.
// Embeddings are nullable too: a card whose embedding generation failed is
// still a valid card, it just carries no similarity signal for that modality.
type Card struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	Player              *string   `json:"player" db:"player"`
	Year                *string   `json:"year" db:"year"`
	Brand               *string   `json:"brand" db:"brand"`
	CardNumber          *string   `json:"card_number" db:"card_number"`
	PSAGrade            *string   `json:"psa_grade" db:"psa_grade"`
	CertificationNumber *string   `json:"certification_number" db:"certification_number"`
	Sport               *string   `json:"sport" db:"sport"`
	ImageURL            string    `json:"image_url" db:"image_url"`
	TextEmbedding       []float32 `json:"-" db:"text_embedding"`
	ImageEmbedding      []float32 `json:"-" db:"image_embedding"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// CardMetadata is the structured output of vision extraction, and the input
// for building a card's canonical text representation.
type CardMetadata struct {
	IsValid             bool   `json:"is_valid"`
	Error               string `json:"error,omitempty"`
	Player              string `json:"player,omitempty"`
	Year                string `json:"year,omitempty"`
	Brand               string `json:"brand,omitempty"`
	CardNumber          string `json:"card_number,omitempty"`
	PSAGrade            string `json:"psa_grade,omitempty"`
	CertificationNumber string `json:"certification_number,omitempty"`
	Sport               string `json:"sport,omitempty"`
}
