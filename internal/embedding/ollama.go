package embedding

import (
	"context"

	"github.com/tmc/langchaingo/llms/ollama"

	"spec-search/internal/config"
)

const (
	ollamaDefaultModel      = "nomic-embed-text"
	ollamaDefaultDimensions = 768
)

// Ollama embeds against a local Ollama server. Results come back in
// input order.
type Ollama struct {
	llm        *ollama.LLM
	model      string
	dimensions int
}

func NewOllama(cfg config.EmbeddingConfig) (*Ollama, error) {
	model := cfg.Model
	if model == "" {
		model = ollamaDefaultModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = ollamaDefaultDimensions
	}
	return &Ollama{llm: llm, model: model, dimensions: dimensions}, nil
}

func (o *Ollama) Dimensions() int { return o.dimensions }
func (o *Ollama) Model() string   { return o.model }

func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return o.llm.CreateEmbedding(ctx, texts)
}
