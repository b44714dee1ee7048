package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpatel-dev/cardvault/internal/llm"
)

type stubGateway struct {
	content string
	err     error
	lastReq llm.ChatRequest
}

func (s *stubGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.content}, nil
}

func (s *stubGateway) ChatStream(context.Context, llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (s *stubGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("no provider") }
func (s *stubGateway) ListModels() []llm.ModelInfo           { return nil }

func TestAnalyzeCard_ValidCard(t *testing.T) {
	gw := &stubGateway{content: `{
		"is_valid": true,
		"player": "Michael Jordan",
		"year": "1986",
		"brand": "Fleer",
		"card_number": "57",
		"psa_grade": "PSA 10",
		"certification_number": "12345678",
		"sport": "Basketball"
	}`}

	a := NewAnalyzer(gw, "gpt-4o")
	meta, err := a.AnalyzeCard(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	assert.True(t, meta.IsValid)
	assert.Equal(t, "Michael Jordan", meta.Player)
	assert.Equal(t, "PSA 10", meta.PSAGrade)

	require.Len(t, gw.lastReq.Messages, 1)
	assert.Equal(t, []string{"data:image/jpeg;base64,AAAA"}, gw.lastReq.Messages[0].Images)
}

func TestAnalyzeCard_InvalidCardIsNotAnError(t *testing.T) {
	gw := &stubGateway{content: `{"is_valid": false, "error": "Not a PSA graded card"}`}

	a := NewAnalyzer(gw, "")
	meta, err := a.AnalyzeCard(context.Background(), "https://img.example/dog.jpg")
	require.NoError(t, err)

	assert.False(t, meta.IsValid)
	assert.Equal(t, "Not a PSA graded card", meta.Error)
}

func TestAnalyzeCard_StripsCodeFences(t *testing.T) {
	gw := &stubGateway{content: "```json\n{\"is_valid\": true, \"player\": \"Kobe Bryant\"}\n```"}

	a := NewAnalyzer(gw, "")
	meta, err := a.AnalyzeCard(context.Background(), "https://img.example/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Kobe Bryant", meta.Player)
}

func TestAnalyzeCard_GatewayFailure(t *testing.T) {
	gw := &stubGateway{err: errors.New("upstream 500")}

	a := NewAnalyzer(gw, "")
	_, err := a.AnalyzeCard(context.Background(), "https://img.example/card.jpg")
	require.Error(t, err)
}

func TestAnalyzeCard_MalformedJSON(t *testing.T) {
	gw := &stubGateway{content: "I think this is a Jordan card"}

	a := NewAnalyzer(gw, "")
	_, err := a.AnalyzeCard(context.Background(), "https://img.example/card.jpg")
	require.Error(t, err)
}
