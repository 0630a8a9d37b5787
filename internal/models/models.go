package models

import "time"

// Content types attached to chunks. Narrative prose is ContentTypeText;
// the chunker may split out fenced XML examples and pipe tables when
// block splitting is enabled.
const (
	ContentTypeText       = "text"
	ContentTypeXMLExample = "xml_example"
	ContentTypeTable      = "table"
)

// MinPart and MaxPart bound the top-level divisions of the source document.
const (
	MinPart = 1
	MaxPart = 4
)

// ExtractedSection is the intermediate representation produced by the
// extract stage and consumed by the chunker. It is never persisted.
type ExtractedSection struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	PageStart int    `json:"pageStart"`
	PageEnd   int    `json:"pageEnd"`
	Content   string `json:"content"`
	Depth     int    `json:"depth"`
	ParentID  string `json:"parentId"`
}

// Chunk is a bounded span of section text. In the chunks/embedded JSON
// artifacts it carries ChunkIndex (stable ordering within a section run)
// and, for narrative chunks built with block splitting, EmbedText: the
// markup-stripped text actually sent to the embedding provider. Both are
// dropped at upload time.
type Chunk struct {
	PartNumber  int       `json:"partNumber"`
	SectionID   string    `json:"sectionId,omitempty"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	PageNumber  int       `json:"pageNumber,omitempty"`
	ChunkIndex  int       `json:"chunkIndex"`
	EmbedText   string    `json:"embedText,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// EmbeddingInput returns the text to vectorize for this chunk.
func (c *Chunk) EmbeddingInput() string {
	if c.EmbedText != "" {
		return c.EmbedText
	}
	return c.Content
}

// DefaultSearchLimit and MaxSearchLimit bound similarity queries. The
// hard cap is enforced by the protocol front door, not the store.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

// SearchFilter narrows a similarity query. Zero values mean "no
// constraint"; filters compose with AND.
type SearchFilter struct {
	Part        int
	ContentType string
	Limit       int
}

// SearchResult is a persisted chunk plus its similarity score
// (1 - cosine distance; zero for section lookups).
type SearchResult struct {
	ID          int64     `json:"id"`
	PartNumber  int       `json:"partNumber"`
	SectionID   string    `json:"sectionId,omitempty"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	PageNumber  int       `json:"pageNumber,omitempty"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// SectionRef is one distinct (sectionId, title, partNumber) triple from the
// store, used by the list-sections operations.
type SectionRef struct {
	SectionID  string `json:"sectionId"`
	Title      string `json:"title"`
	PartNumber int    `json:"partNumber"`
}

// Stats summarizes store contents.
type Stats struct {
	Total    int         `json:"total"`
	ByPart   map[int]int `json:"byPart"`
	Embedded int         `json:"embedded"`
}
