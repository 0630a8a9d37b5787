package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spec-search/internal/config"
	"spec-search/internal/helper"
	"spec-search/internal/models"
)

type fakeEmbedder struct {
	calls [][]string
	fail  bool
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), float32(len(texts[i]))}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }
func (f *fakeEmbedder) Model() string   { return "fake-model" }

type fakeStore struct {
	inserted  []models.Chunk
	truncated bool
	insertErr error
}

func (f *fakeStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeStore) Truncate(ctx context.Context) error {
	f.truncated = true
	return nil
}

func writeArtifact(t *testing.T, dir, name string, v any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := helper.WriteJSONFile(path, v); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestChunkStage(t *testing.T) {
	dir := t.TempDir()
	sections := []models.ExtractedSection{
		{SectionID: "17.3", Title: "Paragraphs", PageStart: 250, Content: "Some paragraph content."},
		{SectionID: "17.4", Title: "Tables", PageStart: 260, Content: "Some table content."},
		{SectionID: "17.5", Title: "Empty"},
	}
	in := writeArtifact(t, dir, "sections.json", sections)
	out := filepath.Join(dir, "chunks.json")

	cfg := config.ChunkingConfig{ChunkSize: 6000, ChunkOverlap: 200}
	n, err := Chunk(cfg, 1, in, out)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if n != 2 {
		t.Fatalf("chunk count = %d, want 2 (empty section produces none)", n)
	}

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(out, &chunks); err != nil {
		t.Fatal(err)
	}
	for _, c := range chunks {
		if c.PartNumber != 1 {
			t.Errorf("chunk part = %d, want 1", c.PartNumber)
		}
	}
	if chunks[0].SectionID != "17.3" || chunks[1].SectionID != "17.4" {
		t.Errorf("section ids = %q, %q", chunks[0].SectionID, chunks[1].SectionID)
	}
}

func TestEmbedStageAttachesVectorsAndDropsEmbedText(t *testing.T) {
	dir := t.TempDir()
	in := writeArtifact(t, dir, "chunks.json", []models.Chunk{
		{PartNumber: 1, SectionID: "17.3", Content: "see [BLOCK 0]", EmbedText: "prose only"},
		{PartNumber: 1, SectionID: "17.3", Content: "<w:p/>", ContentType: models.ContentTypeXMLExample},
	})
	out := filepath.Join(dir, "embedded.json")

	emb := &fakeEmbedder{}
	if err := Embed(context.Background(), emb, in, out); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(emb.calls) != 1 {
		t.Fatalf("embedder calls = %d, want 1", len(emb.calls))
	}
	if emb.calls[0][0] != "prose only" {
		t.Errorf("first embedding input = %q, want the stripped embed text", emb.calls[0][0])
	}
	if emb.calls[0][1] != "<w:p/>" {
		t.Errorf("second embedding input = %q, want raw content", emb.calls[0][1])
	}

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(out, &chunks); err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if len(c.Embedding) != 2 {
			t.Errorf("chunk %d embedding length = %d", i, len(c.Embedding))
		}
		if c.EmbedText != "" {
			t.Errorf("chunk %d still carries embedText", i)
		}
	}
	if chunks[0].Content != "see [BLOCK 0]" {
		t.Errorf("display content changed: %q", chunks[0].Content)
	}
}

func TestEmbedStageFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := writeArtifact(t, dir, "chunks.json", []models.Chunk{
		{PartNumber: 1, Content: "text"},
	})
	out := filepath.Join(dir, "embedded.json")

	err := Embed(context.Background(), &fakeEmbedder{fail: true}, in, out)
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("embedded file written despite failure")
	}
}

func TestUploadStageForcesPartAndTruncates(t *testing.T) {
	dir := t.TempDir()
	in := writeArtifact(t, dir, "embedded.json", []models.Chunk{
		{PartNumber: 3, SectionID: "17.3", Content: "a", Embedding: []float32{1, 0}},
		{PartNumber: 0, SectionID: "17.4", Content: "b", Embedding: []float32{0, 1}},
	})

	store := &fakeStore{}
	n, err := Upload(context.Background(), store, 2, in, true)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if n != 2 {
		t.Fatalf("uploaded = %d, want 2", n)
	}
	if !store.truncated {
		t.Error("store was not truncated")
	}
	for _, c := range store.inserted {
		if c.PartNumber != 2 {
			t.Errorf("inserted chunk part = %d, want forced 2", c.PartNumber)
		}
	}
}

func TestUploadStageRejectsBadPart(t *testing.T) {
	store := &fakeStore{}
	if _, err := Upload(context.Background(), store, 5, "ignored.json", false); err == nil {
		t.Fatal("expected part range error")
	}
	if store.truncated || len(store.inserted) != 0 {
		t.Error("store touched despite invalid part")
	}
}

func TestFixPagesPatchesEmbeddedFile(t *testing.T) {
	dir := t.TempDir()
	content := "250\n**17.3** **Paragraphs**\nbody\n260\n**17.4** **Tables**\nbody\n"
	contentPath := filepath.Join(dir, "content.md")
	if err := os.WriteFile(contentPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	embeddedPath := writeArtifact(t, dir, "embedded.json", []models.Chunk{
		{PartNumber: 1, SectionID: "17.3", Content: "a", PageNumber: 999},
		{PartNumber: 1, SectionID: "17.3", Content: "b", PageNumber: 251},
		{PartNumber: 1, SectionID: "17.4", Content: "c", PageNumber: 1},
		{PartNumber: 1, SectionID: "99.9", Content: "d", PageNumber: 5},
		{PartNumber: 1, Content: "no section"},
	})

	updated, missing, err := FixPages(contentPath, embeddedPath, 250)
	if err != nil {
		t.Fatalf("FixPages: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2 (one chunk already correct)", updated)
	}
	if len(missing) != 1 || missing[0] != "99.9" {
		t.Errorf("missing = %v, want [99.9]", missing)
	}

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(embeddedPath, &chunks); err != nil {
		t.Fatal(err)
	}
	if chunks[0].PageNumber != 251 || chunks[2].PageNumber != 261 {
		t.Errorf("patched pages = %d, %d; want 251, 261", chunks[0].PageNumber, chunks[2].PageNumber)
	}
	if chunks[3].PageNumber != 5 {
		t.Errorf("unknown section page changed to %d", chunks[3].PageNumber)
	}
}
