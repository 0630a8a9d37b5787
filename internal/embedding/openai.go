package embedding

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"spec-search/internal/config"
)

const (
	openaiDefaultModel      = "text-embedding-3-small"
	openaiDefaultDimensions = 1536
)

// OpenAI calls the OpenAI embeddings API (or any compatible endpoint via
// base_url). Response items carry an explicit index and are re-sorted
// into input order.
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAI(cfg config.EmbeddingConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	o := &OpenAI{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if o.model == "" {
		o.model = openaiDefaultModel
	}
	if o.dimensions == 0 {
		o.dimensions = openaiDefaultDimensions
	}
	return o
}

func (o *OpenAI) Dimensions() int { return o.dimensions }
func (o *OpenAI) Model() string   { return o.model }

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dimensions,
	})
	if err != nil {
		return nil, err
	}

	items := make([]indexedVector, len(resp.Data))
	for i, d := range resp.Data {
		items[i] = indexedVector{Index: d.Index, Embedding: d.Embedding}
	}
	return sortByIndex(len(texts), items)
}
