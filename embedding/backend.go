package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"
)

// OpenAIBackend calls an OpenAI-compatible embeddings endpoint (GLM's
// embedding-2 speaks this protocol).
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

var _ Backend = (*OpenAIBackend)(nil)

// NewOpenAIBackend builds an embeddings backend for the given endpoint.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// EmbedTexts embeds all texts in a single backend request.
func (b *OpenAIBackend) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(b.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// LangChainBackend adapts a langchaingo embedder to the Backend contract so
// any model langchaingo supports can serve as the embedding backend.
type LangChainBackend struct {
	embedder embeddings.Embedder
}

var _ Backend = (*LangChainBackend)(nil)

// NewLangChainBackend wraps a langchaingo embedder.
func NewLangChainBackend(embedder embeddings.Embedder) *LangChainBackend {
	return &LangChainBackend{embedder: embedder}
}

// EmbedTexts embeds texts via the wrapped langchaingo embedder.
func (b *LangChainBackend) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := b.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder failed: %w", err)
	}
	return vecs, nil
}
