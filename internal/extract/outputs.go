package extract

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"spec-search/internal/models"
)

type sectionIndexEntry struct {
	SectionID     string `json:"sectionId"`
	Title         string `json:"title"`
	Depth         int    `json:"depth"`
	ParentID      string `json:"parentId"`
	PageStart     int    `json:"pageStart"`
	PageEnd       int    `json:"pageEnd"`
	ContentLength int    `json:"contentLength"`
}

type metadata struct {
	TotalPages    int `json:"totalPages"`
	SectionsFound int `json:"sectionsFound"`
	ContentLength int `json:"contentLength"`
}

// WriteOutputs materializes the extraction artifacts under dir. The
// content.html preview is for eyeballing extraction quality in a
// browser; the pipeline itself only reads sections.json.
func WriteOutputs(dir string, result *Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "content.md"), []byte(result.Content), 0644); err != nil {
		return err
	}

	preview, err := renderHTML(result.Content)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "content.html"), preview, 0644); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, "sections.json"), result.Sections); err != nil {
		return err
	}

	index := make([]sectionIndexEntry, len(result.Sections))
	for i, s := range result.Sections {
		index[i] = sectionIndexEntry{
			SectionID:     s.SectionID,
			Title:         s.Title,
			Depth:         s.Depth,
			ParentID:      s.ParentID,
			PageStart:     s.PageStart,
			PageEnd:       s.PageEnd,
			ContentLength: len(s.Content),
		}
	}
	if err := writeJSON(filepath.Join(dir, "section-index.json"), index); err != nil {
		return err
	}

	return writeJSON(filepath.Join(dir, "metadata.json"), metadata{
		TotalPages:    result.TotalPages,
		SectionsFound: len(result.Sections),
		ContentLength: len(result.Content),
	})
}

// ReadSections loads a sections.json produced here or by external
// extraction tooling.
func ReadSections(path string) ([]models.ExtractedSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sections []models.ExtractedSection
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func renderHTML(md string) ([]byte, error) {
	converter := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	var buf bytes.Buffer
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
