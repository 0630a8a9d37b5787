// Package ingest implements the offline pipeline stages between the
// extracted artifacts and the chunk store: chunk, embed, upload and
// fix-pages. Stages exchange JSON files so each one can be rerun in
// isolation without repeating the expensive steps before it.
package ingest

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spec-search/internal/chunker"
	"spec-search/internal/config"
	"spec-search/internal/extract"
	"spec-search/internal/helper"
	"spec-search/internal/models"
)

// Store is the subset of the chunk store the upload stage needs.
type Store interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	Truncate(ctx context.Context) error
}

// Embedder vectorizes batches of text. Satisfied by embedding.Client.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

// stageLogger tags every log line of a stage run with a fresh run id so
// interleaved pipeline invocations can be told apart.
func stageLogger(stage string) zerolog.Logger {
	runID, err := helper.GenerateUUID()
	if err != nil {
		runID = "unknown"
	}
	return log.With().Str("stage", stage).Str("run", runID).Logger()
}

// Chunk reads a sections.json artifact and writes the chunk file the
// embed stage consumes. Returns the number of chunks produced.
func Chunk(cfg config.ChunkingConfig, part int, sectionsPath, outPath string) (int, error) {
	logger := stageLogger("chunk")

	sections, err := extract.ReadSections(sectionsPath)
	if err != nil {
		return 0, fmt.Errorf("reading sections: %w", err)
	}
	logger.Info().Int("part", part).Int("sections", len(sections)).Msg("chunking sections")

	chunks := chunker.New(cfg).ChunkSections(part, sections)
	if err := helper.WriteJSONFile(outPath, chunks); err != nil {
		return 0, fmt.Errorf("writing chunks: %w", err)
	}

	byType := make(map[string]int)
	for _, c := range chunks {
		byType[c.ContentType]++
	}
	logger.Info().Int("chunks", len(chunks)).Interface("byType", byType).
		Str("out", outPath).Msg("chunk stage done")
	return len(chunks), nil
}

// Embed vectorizes every chunk in a chunks file and writes the embedded
// file. The client handles sub-batch partitioning and the inter-batch
// delay; a single failed batch aborts the whole stage with nothing
// written.
func Embed(ctx context.Context, client Embedder, inPath, outPath string) error {
	logger := stageLogger("embed")

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(inPath, &chunks); err != nil {
		return fmt.Errorf("reading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks in %s", inPath)
	}
	logger.Info().Int("chunks", len(chunks)).Str("model", client.Model()).
		Int("dimensions", client.Dimensions()).Msg("embedding chunks")

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].EmbeddingInput()
	}

	vectors, err := client.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		chunks[i].EmbedText = ""
	}

	if err := helper.WriteJSONFile(outPath, chunks); err != nil {
		return fmt.Errorf("writing embedded chunks: %w", err)
	}
	logger.Info().Str("out", outPath).Msg("embed stage done")
	return nil
}

// Upload loads an embedded file into the store. The part number on every
// chunk is forced to the given part so a file cannot be uploaded under
// the wrong label. Without truncate the upload appends; rerunning it
// duplicates rows.
func Upload(ctx context.Context, store Store, part int, inPath string, truncate bool) (int, error) {
	logger := stageLogger("upload")

	if part < models.MinPart || part > models.MaxPart {
		return 0, fmt.Errorf("part must be between %d and %d, got %d", models.MinPart, models.MaxPart, part)
	}

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(inPath, &chunks); err != nil {
		return 0, fmt.Errorf("reading embedded chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].PartNumber = part
	}

	if truncate {
		logger.Warn().Msg("truncating chunk store before upload")
		if err := store.Truncate(ctx); err != nil {
			return 0, fmt.Errorf("truncating store: %w", err)
		}
	}

	logger.Info().Int("part", part).Int("chunks", len(chunks)).Msg("uploading chunks")
	if err := store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("inserting chunks: %w", err)
	}
	logger.Info().Msg("upload stage done")
	return len(chunks), nil
}

// FixPages re-parses a content.md for the section to page map and
// patches the page numbers of an embedded file in place. This repairs
// page drift without re-chunking or re-embedding. Returns the number of
// chunks updated and the section ids that no longer match the content.
func FixPages(contentPath, embeddedPath string, startPage int) (int, []string, error) {
	logger := stageLogger("fix-pages")

	content, err := os.ReadFile(contentPath)
	if err != nil {
		return 0, nil, fmt.Errorf("reading content: %w", err)
	}
	pages := extract.SectionPages(string(content), startPage)
	logger.Info().Int("sections", len(pages)).Msg("parsed section pages")

	var chunks []models.Chunk
	if err := helper.ReadJSONFile(embeddedPath, &chunks); err != nil {
		return 0, nil, fmt.Errorf("reading embedded chunks: %w", err)
	}

	updated := 0
	missing := make(map[string]bool)
	for i := range chunks {
		id := chunks[i].SectionID
		if id == "" {
			continue
		}
		page, ok := pages[id]
		if !ok {
			missing[id] = true
			continue
		}
		if chunks[i].PageNumber != page {
			chunks[i].PageNumber = page
			updated++
		}
	}

	if err := helper.WriteJSONFile(embeddedPath, chunks); err != nil {
		return 0, nil, fmt.Errorf("writing embedded chunks: %w", err)
	}

	var missingIDs []string
	for id := range missing {
		missingIDs = append(missingIDs, id)
	}
	sort.Strings(missingIDs)
	if len(missingIDs) > 0 {
		logger.Warn().Int("count", len(missingIDs)).Msg("sections not found in content")
	}
	logger.Info().Int("updated", updated).Msg("fix-pages stage done")
	return updated, missingIDs, nil
}
