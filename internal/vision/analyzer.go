// Package vision extracts structured card metadata from card photos using a
// vision-capable LLM.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mpatel-dev/cardvault/internal/llm"
	"github.com/mpatel-dev/cardvault/internal/models"
)

const analyzePrompt = `You are an expert at analyzing PSA graded sports cards. Analyze this image and determine if it is a valid NBA PSA graded card.

VALIDATION RULES:
1. The card MUST be PSA graded (look for PSA holder/slab with PSA branding)
2. The card MUST be from the NBA or feature an NBA basketball player
3. The card should have visible PSA certification details

If the image is NOT a valid NBA PSA graded card, set is_valid to false and provide a clear error message explaining why (e.g., "Not a PSA graded card", "Not an NBA card", "Image is unclear or not a sports card").

If the image IS a valid NBA PSA graded card, set is_valid to true and extract:
- player: player name
- year: year of the card
- brand: card brand/manufacturer (e.g., Topps, Upper Deck, Panini)
- card_number: card number from the set
- psa_grade: the grade label like "PSA 10" or "PSA 9"
- certification_number: PSA certification number (if visible)
- sport: should be Basketball or NBA

Respond with ONLY a valid JSON object:
{
  "is_valid": <boolean>,
  "error": <string, only when is_valid is false>,
  "player": <string>,
  "year": <string>,
  "brand": <string>,
  "card_number": <string>,
  "psa_grade": <string>,
  "certification_number": <string>,
  "sport": <string>
}

No markdown, no explanation, no text outside the JSON object.`

// Analyzer validates a card photo and extracts its metadata. The model must
// be vision-capable.
type Analyzer struct {
	gateway llm.Gateway
	model   string
}

func NewAnalyzer(gw llm.Gateway, model string) *Analyzer {
	if model == "" {
		model = "gpt-4o"
	}
	return &Analyzer{gateway: gw, model: model}
}

// AnalyzeCard sends the image to the vision model and parses the structured
// verdict. A metadata result with IsValid false is not an error: the model
// looked at the image and rejected it.
func (a *Analyzer) AnalyzeCard(ctx context.Context, imageRef string) (*models.CardMetadata, error) {
	resp, err := a.gateway.Chat(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{
				Role:    "user",
				Content: analyzePrompt,
				Images:  []string{imageRef},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("vision analyze: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var meta models.CardMetadata
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return nil, fmt.Errorf("parse card metadata: %w", err)
	}

	return &meta, nil
}
