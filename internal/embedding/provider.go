// Package embedding converts text into fixed-dimension vectors via one of
// several interchangeable remote providers.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"spec-search/internal/config"
)

// Provider is one remote embedding backend. EmbedBatch must return one
// vector per input text, in input order, all of Dimensions() length.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

// Client wraps a Provider with sub-batch partitioning so callers can pass
// arbitrarily large input lists. Sub-batches run strictly sequentially
// with a fixed delay between them; a failed sub-batch fails the whole
// call with no partial results.
type Client struct {
	provider   Provider
	batchSize  int
	batchDelay time.Duration
}

func NewClient(provider Provider, batchSize int, batchDelay time.Duration) *Client {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Client{provider: provider, batchSize: batchSize, batchDelay: batchDelay}
}

// New builds a Client for the configured provider. The provider set is
// closed; adding one means adding a variant here and nowhere else.
func New(cfg config.EmbeddingConfig) (*Client, error) {
	var provider Provider
	var err error
	switch cfg.Provider {
	case "voyage":
		provider = NewVoyage(cfg)
	case "openai":
		provider = NewOpenAI(cfg)
	case "cohere":
		provider = NewCohere(cfg)
	case "ollama":
		provider, err = NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewClient(provider, cfg.BatchSize, time.Duration(cfg.BatchDelayMS)*time.Millisecond), nil
}

func (c *Client) Dimensions() int { return c.provider.Dimensions() }
func (c *Client) Model() string   { return c.provider.Model() }

// Embed returns the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in input order, partitioning into sub-batches
// to respect upstream request-size limits.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		if start > 0 && c.batchDelay > 0 {
			select {
			case <-time.After(c.batchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.provider.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("provider %s returned %d vectors for %d texts",
				c.provider.Model(), len(batch), end-start)
		}
		vectors = append(vectors, batch...)
		log.Debug().Int("embedded", len(vectors)).Int("total", len(texts)).Msg("embedding batch done")
	}
	return vectors, nil
}

// sortByIndex reorders an indexed provider response back into input
// order. Providers may return results in any order.
func sortByIndex(n int, items []indexedVector) ([][]float32, error) {
	vectors := make([][]float32, n)
	for _, item := range items {
		if item.Index < 0 || item.Index >= n {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding response missing vector for input %d", i)
		}
	}
	return vectors, nil
}

type indexedVector struct {
	Index     int
	Embedding []float32
}
