package chunker

import (
	"fmt"
	"strings"
	"testing"

	"spec-search/internal/config"
	"spec-search/internal/models"
)

func testConfig(size, overlap int) config.ChunkingConfig {
	return config.ChunkingConfig{ChunkSize: size, ChunkOverlap: overlap}
}

func TestChunkSection_EmptyContentProducesNoChunks(t *testing.T) {
	c := New(testConfig(6000, 200))
	chunks := c.ChunkSections(1, []models.ExtractedSection{
		{SectionID: "1.1", Title: "Scope", Content: "   \n\n  "},
	})
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for blank section, got %d", len(chunks))
	}
}

func TestChunkSection_SingleSmallSection(t *testing.T) {
	c := New(testConfig(6000, 200))
	chunks := c.ChunkSections(2, []models.ExtractedSection{
		{SectionID: "3.2", Title: "Conformance", Content: "First paragraph.\n\nSecond paragraph.", PageStart: 12},
	})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if got.PartNumber != 2 || got.SectionID != "3.2" || got.PageNumber != 12 {
		t.Errorf("chunk metadata wrong: %+v", got)
	}
	if got.ContentType != models.ContentTypeText {
		t.Errorf("expected text content type, got %q", got.ContentType)
	}
	if got.Content != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("unexpected content: %q", got.Content)
	}
}

func TestChunkSection_OverlapReconstruction(t *testing.T) {
	const overlap = 20
	var paragraphs []string
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Repeat(fmt.Sprintf("p%d ", i), 30)))
	}
	content := strings.Join(paragraphs, "\n\n")

	c := New(testConfig(200, overlap))
	chunks := c.ChunkSections(1, []models.ExtractedSection{
		{SectionID: "17.3", Content: content},
	})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Trimming each follow-up chunk's seeded overlap (plus the separator)
	// and re-joining must reproduce the original paragraph sequence.
	var rebuilt strings.Builder
	for i, chunk := range chunks {
		text := chunk.Content
		if i > 0 {
			prev := chunks[i-1].Content
			seed := prev
			if len(prev) > overlap {
				seed = prev[len(prev)-overlap:]
			}
			if !strings.HasPrefix(text, seed+"\n\n") {
				t.Fatalf("chunk %d does not start with previous chunk's overlap", i)
			}
			rebuilt.WriteString("\n\n")
			text = text[len(seed)+2:]
		}
		rebuilt.WriteString(text)
	}
	if rebuilt.String() != content {
		t.Error("overlap-trimmed chunks do not reproduce original content")
	}
}

func TestChunkSection_OversizedParagraphKeptWhole(t *testing.T) {
	huge := strings.Repeat("x", 500)
	content := "intro\n\n" + huge + "\n\noutro"

	c := New(testConfig(100, 10))
	chunks := c.ChunkSections(1, []models.ExtractedSection{{SectionID: "9", Content: content}})

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Content, huge) {
			found = true
			if len(chunk.Content) < 500 {
				t.Errorf("oversized paragraph was split")
			}
		}
	}
	if !found {
		t.Fatal("oversized paragraph missing from output")
	}
}

func TestChunkSection_ChunkIndexOrdering(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 40))
	}
	c := New(testConfig(300, 20))
	chunks := c.ChunkSections(1, []models.ExtractedSection{
		{SectionID: "5.1", Content: strings.Join(paragraphs, "\n\n")},
	})
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
	}
}

func TestExtractBlocks_FencedCodeAndTables(t *testing.T) {
	content := strings.Join([]string{
		"Some prose before.",
		"",
		"```xml",
		"<w:p><w:r><w:t>hi</w:t></w:r></w:p>",
		"```",
		"",
		"| name | value |",
		"|------|-------|",
		"| a    | 1     |",
		"",
		"Some prose after.",
	}, "\n")

	prose, blocks := extractBlocks(content)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].contentType != models.ContentTypeXMLExample {
		t.Errorf("first block type = %q", blocks[0].contentType)
	}
	if blocks[1].contentType != models.ContentTypeTable {
		t.Errorf("second block type = %q", blocks[1].contentType)
	}
	if !strings.Contains(blocks[0].content, "<w:t>hi</w:t>") {
		t.Errorf("fenced content lost: %q", blocks[0].content)
	}
	if !strings.Contains(prose, "[BLOCK 1]") || !strings.Contains(prose, "[BLOCK 2]") {
		t.Errorf("placeholders missing from prose: %q", prose)
	}
	if strings.Contains(prose, "```") || strings.Contains(prose, "| name |") {
		t.Errorf("block text leaked into prose: %q", prose)
	}
}

func TestExtractBlocks_SingleTableRowStaysProse(t *testing.T) {
	prose, blocks := extractBlocks("before\n| lone | row |\nafter")
	if len(blocks) != 0 {
		t.Fatalf("lone pipe line should not become a table block")
	}
	if !strings.Contains(prose, "| lone | row |") {
		t.Errorf("lone row missing from prose: %q", prose)
	}
}

func TestChunkSection_SplitBlocksEmbedText(t *testing.T) {
	content := strings.Join([]string{
		"The element is serialized as follows.",
		"",
		"```",
		"<w:document/>",
		"```",
		"",
		"Trailing explanation.",
	}, "\n")

	c := New(config.ChunkingConfig{ChunkSize: 6000, ChunkOverlap: 200, SplitBlocks: true})
	chunks := c.ChunkSections(1, []models.ExtractedSection{{SectionID: "17.2", Content: content}})

	var narrative, example *models.Chunk
	for i := range chunks {
		switch chunks[i].ContentType {
		case models.ContentTypeText:
			narrative = &chunks[i]
		case models.ContentTypeXMLExample:
			example = &chunks[i]
		}
	}
	if narrative == nil || example == nil {
		t.Fatalf("expected narrative + example chunks, got %+v", chunks)
	}
	if !strings.Contains(narrative.Content, "[BLOCK 1]") {
		t.Errorf("narrative content should keep the placeholder: %q", narrative.Content)
	}
	embed := narrative.EmbeddingInput()
	if strings.Contains(embed, "[BLOCK") || strings.Contains(embed, "<w:document/>") {
		t.Errorf("embedding text still carries markup: %q", embed)
	}
	if !strings.Contains(embed, "Trailing explanation.") {
		t.Errorf("embedding text lost prose: %q", embed)
	}
}
