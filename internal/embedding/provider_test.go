package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spec-search/internal/config"
)

// fakeProvider tags each vector with the global position of its input so
// ordering survives sub-batch concatenation checks.
type fakeProvider struct {
	calls      int
	batchSizes []int
	fail       bool
	seen       int
}

func (f *fakeProvider) Dimensions() int { return 2 }
func (f *fakeProvider) Model() string   { return "fake" }

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.fail {
		return nil, fmt.Errorf("provider exploded")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(f.seen), 1}
		f.seen++
	}
	return out, nil
}

func TestClient_EmbedBatchPartitionsAndPreservesOrder(t *testing.T) {
	provider := &fakeProvider{}
	client := NewClient(provider, 10, 0)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	vectors, err := client.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 25 {
		t.Fatalf("expected 25 vectors, got %d", len(vectors))
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 sub-batches, got %d", provider.calls)
	}
	for i, want := range []int{10, 10, 5} {
		if provider.batchSizes[i] != want {
			t.Errorf("sub-batch %d size = %d, want %d", i, provider.batchSizes[i], want)
		}
	}
	for i, v := range vectors {
		if int(v[0]) != i {
			t.Errorf("vector %d out of order (position tag %v)", i, v[0])
		}
	}
}

func TestClient_EmbedBatchFailureDropsEverything(t *testing.T) {
	client := NewClient(&fakeProvider{fail: true}, 10, 0)
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if vectors != nil {
		t.Errorf("expected no vectors on failure, got %d", len(vectors))
	}
	if !strings.Contains(err.Error(), "provider exploded") {
		t.Errorf("provider error text lost: %v", err)
	}
}

func TestClient_EmbedSingle(t *testing.T) {
	client := NewClient(&fakeProvider{}, 10, 0)
	vector, err := client.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestVoyage_ResortsShuffledIndices(t *testing.T) {
	// The remote deliberately answers in reverse order; the adapter must
	// put vectors back into input order using the index field.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req voyageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		var resp voyageResponse
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i)}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	v := NewVoyage(config.EmbeddingConfig{BaseURL: server.URL, APIKey: "k", Dimensions: 1})
	vectors, err := v.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	for i, vec := range vectors {
		if int(vec[0]) != i {
			t.Errorf("vector %d not re-sorted: %v", i, vec)
		}
	}
}

func TestVoyage_ErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	v := NewVoyage(config.EmbeddingConfig{BaseURL: server.URL, APIKey: "bad"})
	_, err := v.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("provider payload missing from error: %v", err)
	}
}

func TestSortByIndex_RejectsGaps(t *testing.T) {
	_, err := sortByIndex(2, []indexedVector{{Index: 0, Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error for missing index")
	}
	_, err = sortByIndex(2, []indexedVector{
		{Index: 0, Embedding: []float32{1}},
		{Index: 5, Embedding: []float32{2}},
	})
	if err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Provider: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
