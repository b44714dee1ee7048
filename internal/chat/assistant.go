// Package chat answers collection questions with a retrieval-augmented
// assistant: the latest user message is embedded, the closest cards are
// pulled from the store, and the model answers grounded in those cards.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpatel-dev/cardvault/internal/llm"
	"github.com/mpatel-dev/cardvault/internal/models"
	"github.com/mpatel-dev/cardvault/internal/search"
)

const contextCards = 5

const systemPrompt = `You are a knowledgeable assistant for a graded sports card collection.
Answer the user's question using the card context below. The context lists the
cards from the collection most relevant to the question. If the context does
not contain what the user asks about, say the collection has no matching card
instead of guessing. Keep answers concise and mention cards by player, year,
and grade.`

// CardRetriever supplies the cards nearest to a query embedding.
type CardRetriever interface {
	NearestByText(ctx context.Context, textVec []float32, limit int) ([]search.RankedResult, error)
}

type Assistant struct {
	gateway   llm.Gateway
	embedder  search.TextEmbedder
	retriever CardRetriever
	model     string
}

func NewAssistant(gw llm.Gateway, embedder search.TextEmbedder, retriever CardRetriever, model string) *Assistant {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Assistant{
		gateway:   gw,
		embedder:  embedder,
		retriever: retriever,
		model:     model,
	}
}

type Request struct {
	Messages []llm.Message `json:"messages"`
}

type Response struct {
	Answer string        `json:"answer"`
	Cards  []models.Card `json:"cards"`
	Model  string        `json:"model"`
	Tokens int           `json:"tokens"`
}

// Chat answers the conversation's latest user message.
func (a *Assistant) Chat(ctx context.Context, req Request) (*Response, error) {
	resolved, cards, err := a.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := a.gateway.Chat(ctx, llm.ChatRequest{Model: a.model, Messages: resolved})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return &Response{
		Answer: resp.Content,
		Cards:  cards,
		Model:  resp.Model,
		Tokens: resp.TotalTokens,
	}, nil
}

// ChatStream streams the answer token by token. The retrieved cards are not
// part of the stream; callers wanting them use Chat.
func (a *Assistant) ChatStream(ctx context.Context, req Request) (<-chan llm.StreamChunk, error) {
	resolved, _, err := a.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.gateway.ChatStream(ctx, llm.ChatRequest{Model: a.model, Messages: resolved})
}

// resolve retrieves context for the latest user message and prepends the
// grounding system prompt to the conversation.
func (a *Assistant) resolve(ctx context.Context, req Request) ([]llm.Message, []models.Card, error) {
	question := latestUserMessage(req.Messages)
	if question == "" {
		return nil, nil, fmt.Errorf("%w: conversation has no user message", search.ErrInvalidQuery)
	}

	vec, err := a.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", search.ErrEmbeddingUnavailable, err)
	}

	results, err := a.retriever.NearestByText(ctx, vec, contextCards)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", search.ErrStoreUnavailable, err)
	}

	cards := make([]models.Card, len(results))
	for i, r := range results {
		cards[i] = r.Card
	}

	resolved := make([]llm.Message, 0, len(req.Messages)+1)
	resolved = append(resolved, llm.Message{
		Role:    "system",
		Content: systemPrompt + "\n\nCard context:\n" + buildCardContext(cards),
	})
	resolved = append(resolved, req.Messages...)
	return resolved, cards, nil
}

func latestUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}

func buildCardContext(cards []models.Card) string {
	if len(cards) == 0 {
		return "(no cards in the collection match this question)"
	}
	var sb strings.Builder
	for i, c := range cards {
		fmt.Fprintf(&sb, "[Card %d] %s\n", i+1, describeCard(c))
	}
	return sb.String()
}

func describeCard(c models.Card) string {
	var parts []string
	for _, v := range []*string{c.Year, c.Brand, c.Player, c.CardNumber, c.PSAGrade} {
		if v != nil && *v != "" {
			parts = append(parts, *v)
		}
	}
	if c.CertificationNumber != nil && *c.CertificationNumber != "" {
		parts = append(parts, "cert "+*c.CertificationNumber)
	}
	if len(parts) == 0 {
		return "card " + c.ID.String()
	}
	return strings.Join(parts, " ")
}
