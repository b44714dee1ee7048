// Package embedding provides the text and image embedding collaborators
// consumed by hybrid search and card ingestion. Both are black boxes from
// the retrieval core's perspective: text in, 768 floats out; image in, 512
// floats out.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// TextConfig configures the text embedder. BaseURL may point at any
// OpenAI-compatible embeddings endpoint (Gemini's OpenAI compatibility
// layer, a self-hosted server, or api.openai.com itself).
type TextConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAITextEmbedder produces 768-dim text embeddings from an
// OpenAI-compatible API.
type OpenAITextEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAITextEmbedder(cfg TextConfig) *OpenAITextEmbedder {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAITextEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

func (e *OpenAITextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create text embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("text embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}
