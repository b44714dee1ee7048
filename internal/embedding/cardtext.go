package embedding

import (
	"strings"

	"github.com/mpatel-dev/cardvault/internal/models"
)

// CardText builds the canonical text representation a card's text embedding
// is derived from: the descriptive fields joined by single spaces, empty
// fields skipped. The certification number is deliberately excluded; it is
// an opaque identifier and would only add noise to the embedding.
func CardText(meta models.CardMetadata) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{meta.Player, meta.Year, meta.Brand, meta.CardNumber, meta.PSAGrade, meta.Sport} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
