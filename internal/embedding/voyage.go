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
	voyageDefaultBaseURL    = "https://api.voyageai.com"
	voyageDefaultModel      = "voyage-3"
	voyageDefaultDimensions = 1024
)

// Voyage calls the Voyage AI embeddings API. Response items carry an
// explicit index and are re-sorted into input order.
type Voyage struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

func NewVoyage(cfg config.EmbeddingConfig) *Voyage {
	v := &Voyage{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	if v.baseURL == "" {
		v.baseURL = voyageDefaultBaseURL
	}
	if v.model == "" {
		v.model = voyageDefaultModel
	}
	if v.dimensions == 0 {
		v.dimensions = voyageDefaultDimensions
	}
	return v
}

func (v *Voyage) Dimensions() int { return v.dimensions }
func (v *Voyage) Model() string   { return v.model }

type voyageRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (v *Voyage) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(voyageRequest{Input: texts, Model: v.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage embeddings request failed: %d, %s", resp.StatusCode, string(body))
	}

	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	items := make([]indexedVector, len(parsed.Data))
	for i, d := range parsed.Data {
		items[i] = indexedVector{Index: d.Index, Embedding: d.Embedding}
	}
	return sortByIndex(len(texts), items)
}
