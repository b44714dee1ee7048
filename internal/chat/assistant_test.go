package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpatel-dev/cardvault/internal/llm"
	"github.com/mpatel-dev/cardvault/internal/models"
	"github.com/mpatel-dev/cardvault/internal/search"
)

type stubGateway struct {
	lastReq llm.ChatRequest
	content string
	err     error
}

func (g *stubGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.content, Model: req.Model, TotalTokens: 42}, nil
}

func (g *stubGateway) ChatStream(_ context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Content: g.content}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (g *stubGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("no provider") }
func (g *stubGateway) ListModels() []llm.ModelInfo           { return nil }

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return s.vec, s.err
}

type stubRetriever struct {
	results []search.RankedResult
	err     error
}

func (s *stubRetriever) NearestByText(context.Context, []float32, int) ([]search.RankedResult, error) {
	return s.results, s.err
}

func strPtr(s string) *string { return &s }

func jordanCard() models.Card {
	return models.Card{
		ID:       uuid.New(),
		Player:   strPtr("Michael Jordan"),
		Year:     strPtr("1986"),
		Brand:    strPtr("Fleer"),
		PSAGrade: strPtr("PSA 10"),
	}
}

func TestChat_GroundsAnswerInRetrievedCards(t *testing.T) {
	gw := &stubGateway{content: "You own a 1986 Fleer Jordan graded PSA 10."}
	retriever := &stubRetriever{results: []search.RankedResult{{Card: jordanCard()}}}
	a := NewAssistant(gw, &stubEmbedder{vec: []float32{0.1}}, retriever, "")

	resp, err := a.Chat(context.Background(), Request{Messages: []llm.Message{
		{Role: "user", Content: "What Jordan cards do I have?"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "You own a 1986 Fleer Jordan graded PSA 10.", resp.Answer)
	require.Len(t, resp.Cards, 1)

	require.NotEmpty(t, gw.lastReq.Messages)
	system := gw.lastReq.Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "Michael Jordan")
	assert.Contains(t, system.Content, "PSA 10")
}

func TestChat_PreservesConversationHistory(t *testing.T) {
	gw := &stubGateway{content: "answer"}
	a := NewAssistant(gw, &stubEmbedder{vec: []float32{0.1}}, &stubRetriever{}, "")

	history := []llm.Message{
		{Role: "user", Content: "Do I have any Kobe cards?"},
		{Role: "assistant", Content: "No Kobe cards in the collection."},
		{Role: "user", Content: "What about Jordan?"},
	}
	_, err := a.Chat(context.Background(), Request{Messages: history})
	require.NoError(t, err)

	require.Len(t, gw.lastReq.Messages, len(history)+1)
	assert.Equal(t, history, gw.lastReq.Messages[1:])
}

func TestChat_EmptyCollectionContext(t *testing.T) {
	gw := &stubGateway{content: "answer"}
	a := NewAssistant(gw, &stubEmbedder{vec: []float32{0.1}}, &stubRetriever{}, "")

	resp, err := a.Chat(context.Background(), Request{Messages: []llm.Message{
		{Role: "user", Content: "anything?"},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.Cards)
	assert.Contains(t, gw.lastReq.Messages[0].Content, "no cards in the collection")
}

func TestChat_NoUserMessage(t *testing.T) {
	a := NewAssistant(&stubGateway{}, &stubEmbedder{vec: []float32{0.1}}, &stubRetriever{}, "")

	_, err := a.Chat(context.Background(), Request{Messages: []llm.Message{
		{Role: "assistant", Content: "hello"},
	}})
	assert.ErrorIs(t, err, search.ErrInvalidQuery)
}

func TestChat_EmbedderFailure(t *testing.T) {
	a := NewAssistant(&stubGateway{}, &stubEmbedder{err: errors.New("quota exceeded")}, &stubRetriever{}, "")

	_, err := a.Chat(context.Background(), Request{Messages: []llm.Message{
		{Role: "user", Content: "question"},
	}})
	assert.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
}

func TestChat_RetrieverFailure(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("connection refused")}
	a := NewAssistant(&stubGateway{}, &stubEmbedder{vec: []float32{0.1}}, retriever, "")

	_, err := a.Chat(context.Background(), Request{Messages: []llm.Message{
		{Role: "user", Content: "question"},
	}})
	assert.ErrorIs(t, err, search.ErrStoreUnavailable)
}

func TestChatStream_EmitsChunks(t *testing.T) {
	gw := &stubGateway{content: "partial"}
	a := NewAssistant(gw, &stubEmbedder{vec: []float32{0.1}}, &stubRetriever{}, "")

	ch, err := a.ChatStream(context.Background(), Request{Messages: []llm.Message{
		{Role: "user", Content: "question"},
	}})
	require.NoError(t, err)

	var contents []string
	var done bool
	for chunk := range ch {
		if chunk.Done {
			done = true
			break
		}
		contents = append(contents, chunk.Content)
	}
	assert.True(t, done)
	assert.Equal(t, "partial", strings.Join(contents, ""))
}

func TestDescribeCard_FallsBackToID(t *testing.T) {
	c := models.Card{ID: uuid.New()}
	assert.Contains(t, describeCard(c), c.ID.String())
}
