// Package extract turns a source PDF into the intermediate artifacts the
// chunk stage consumes: content.md, sections.json, section-index.json and
// metadata.json. A part can also be extracted with external tooling, as
// long as it produces the same sections.json shape.
package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"spec-search/internal/models"
)

type Result struct {
	TotalPages int
	Content    string
	Sections   []models.ExtractedSection
}

// PDF extracts page text and parses the section structure. Each page's
// text is preceded by a bare page-number line so the section parser (and
// the page fixer) can track positions the same way the source document
// prints its folios.
func PDF(path string, startPage, endPage int) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	totalPages := reader.NumPage()
	first, last := 1, totalPages
	if startPage > 0 {
		first = startPage
	}
	if endPage > 0 && endPage < last {
		last = endPage
	}
	log.Info().Str("pdf", path).Int("pages", totalPages).
		Int("from", first).Int("to", last).Msg("extracting pdf")

	var content strings.Builder
	for i := first; i <= last; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		fmt.Fprintf(&content, "%d\n", i)
		content.WriteString(strings.TrimSpace(text))
		content.WriteString("\n")
	}

	md := content.String()
	sections := ParseSections(md, first)
	log.Info().Int("sections", len(sections)).Msg("parsed section structure")

	return &Result{TotalPages: totalPages, Content: md, Sections: sections}, nil
}
