package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"spec-search/internal/config"
)

const (
	cohereDefaultBaseURL    = "https://api.cohere.com"
	cohereDefaultModel      = "embed-english-v3.0"
	cohereDefaultDimensions = 1024
)

// Cohere calls the Cohere embed API. The response embeds come back in
// input order already.
type Cohere struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

func NewCohere(cfg config.EmbeddingConfig) *Cohere {
	c := &Cohere{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = cohereDefaultBaseURL
	}
	if c.model == "" {
		c.model = cohereDefaultModel
	}
	if c.dimensions == 0 {
		c.dimensions = cohereDefaultDimensions
	}
	return c
}

func (c *Cohere) Dimensions() int { return c.dimensions }
func (c *Cohere) Model() string   { return c.model }

type cohereRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type cohereResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *Cohere) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(cohereRequest{
		Texts:     texts,
		Model:     c.model,
		InputType: "search_document",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cohere embed request failed: %d, %s", resp.StatusCode, string(body))
	}

	var parsed cohereResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Embeddings, nil
}
