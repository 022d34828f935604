package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder turns text into a fixed-length vector. The store only needs
// deterministic similarity ranking, so the default is a local hash embedder;
// an OpenAI-backed embedder is used when an API key is configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder picks the embedder for the given config.
func NewEmbedder(cfg Config) Embedder {
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		return NewOpenAIEmbedder(cfg)
	}
	return NewLocalEmbedder()
}

const localEmbedderDim = 256

// LocalEmbedder hashes whitespace tokens into a fixed-size bag-of-words
// vector and L2-normalizes it. Identical text always embeds identically, so
// an exact re-query ranks its own document at (or tied for) the top.
type LocalEmbedder struct {
	dim int
}

func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dim: localEmbedderDim}
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32()%uint32(e.dim))]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// OpenAIEmbedder calls the embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.OpenAIAPIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := openai.NewClient(opts...)
	return &OpenAIEmbedder{
		client: &client,
		model:  strings.TrimSpace(cfg.EmbeddingModel),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response for model %s", e.model)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
