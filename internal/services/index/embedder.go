package index

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultEmbeddingModel is served by Ollama's OpenAI-compatible endpoint
	DefaultEmbeddingModel = "nomic-embed-text"
	// DefaultEmbedTimeout bounds one embedding call
	DefaultEmbedTimeout = 15 * time.Second
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder implements Embedder with the embeddings API of any OpenAI-compatible endpoint
type OpenAIEmbedder struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder
func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAIEmbedder{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: DefaultEmbedTimeout,
	}
}

// Embed returns the embedding of text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding in response")
	}
	return resp.Data[0].Embedding, nil
}
