package chunker

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"spec-search/internal/config"
	"spec-search/internal/models"
)

// Chunker splits extracted sections into bounded chunks. Paragraphs are
// accumulated until adding the next one would cross the size threshold;
// the next chunk is then seeded with the trailing overlap of the closed
// one. A single paragraph larger than the threshold is kept whole, so the
// threshold is a trigger, not an upper bound.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitBlocks  bool
}

func New(cfg config.ChunkingConfig) *Chunker {
	return &Chunker{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		splitBlocks:  cfg.SplitBlocks,
	}
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// ChunkSections turns an ordered section list into a flat ordered chunk
// list for one document part. Chunks come back without embeddings.
func (c *Chunker) ChunkSections(part int, sections []models.ExtractedSection) []models.Chunk {
	var chunks []models.Chunk
	for _, section := range sections {
		chunks = append(chunks, c.chunkSection(part, section)...)
	}
	log.Debug().Int("part", part).Int("sections", len(sections)).
		Int("chunks", len(chunks)).Msg("chunked sections")
	return chunks
}

func (c *Chunker) chunkSection(part int, section models.ExtractedSection) []models.Chunk {
	content := strings.TrimSpace(section.Content)
	if content == "" {
		return nil
	}

	var blocks []extractedBlock
	if c.splitBlocks {
		content, blocks = extractBlocks(content)
	}

	chunkIndex := 0
	newChunk := func(text, contentType, embedText string) models.Chunk {
		chunk := models.Chunk{
			PartNumber:  part,
			SectionID:   section.SectionID,
			Title:       section.Title,
			Content:     text,
			ContentType: contentType,
			PageNumber:  section.PageStart,
			ChunkIndex:  chunkIndex,
			EmbedText:   embedText,
		}
		chunkIndex++
		return chunk
	}

	var chunks []models.Chunk
	for _, text := range c.split(content) {
		embedText := ""
		if c.splitBlocks {
			if stripped := stripBlockMarkup(text); stripped != text {
				embedText = stripped
			}
		}
		chunks = append(chunks, newChunk(text, models.ContentTypeText, embedText))
	}
	for _, b := range blocks {
		chunks = append(chunks, newChunk(b.content, b.contentType, ""))
	}
	return chunks
}

// split accumulates blank-line-delimited paragraphs into chunks.
func (c *Chunker) split(content string) []string {
	paragraphs := paragraphSep.Split(content, -1)

	var out []string
	var buf string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf == "" {
			buf = p
			continue
		}
		if len(buf)+len(p)+2 > c.chunkSize {
			out = append(out, buf)
			buf = overlapTail(buf, c.chunkOverlap) + "\n\n" + p
		} else {
			buf = buf + "\n\n" + p
		}
	}
	if strings.TrimSpace(buf) != "" {
		out = append(out, buf)
	}
	return out
}

// overlapTail returns the trailing n characters of s, the whole string
// when shorter.
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
