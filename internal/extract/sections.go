package extract

import (
	"regexp"
	"strconv"
	"strings"

	"spec-search/internal/models"
)

var (
	boldSectionRe = regexp.MustCompile(models.BoldSectionRegex)
	hashSectionRe = regexp.MustCompile(models.HashSectionRegex)
	annexRe       = regexp.MustCompile(models.AnnexRegex)
	tocEntryRe    = regexp.MustCompile(models.TOCEntryRegex)
	pageMarkerRe  = regexp.MustCompile(models.PageMarkerRegex)
	pageHeaderRe  = regexp.MustCompile(models.PageHeaderRegex)
)

// matchSection recognizes a section heading line and returns its id and
// title. The three patterns cover the formatting differences between the
// document parts.
func matchSection(line string) (id, title string, ok bool) {
	if m := boldSectionRe.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if m := hashSectionRe.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if m := annexRe.FindStringSubmatch(line); m != nil {
		title := strings.TrimSpace(m[3])
		if title == "" {
			title = strings.TrimSpace(m[2])
		}
		return m[1], title, true
	}
	return "", "", false
}

// ParseSections walks the extracted markdown line by line, tracking the
// current page via bare page-number lines and opening a new section at
// every heading match. TOC rows and running page headers are skipped.
func ParseSections(md string, startPage int) []models.ExtractedSection {
	var sections []models.ExtractedSection
	var current *models.ExtractedSection
	var body strings.Builder

	currentPage := startPage
	closeCurrent := func(pageEnd int) {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(body.String())
		current.PageEnd = pageEnd
		sections = append(sections, *current)
		current = nil
		body.Reset()
	}

	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimSpace(line)

		if pageHeaderRe.MatchString(stripped) {
			continue
		}
		if m := pageMarkerRe.FindStringSubmatch(stripped); m != nil {
			if page, _ := strconv.Atoi(m[1]); page != 0 && page >= currentPage && page < currentPage+50 {
				currentPage = page
				continue
			}
		}
		if tocEntryRe.MatchString(stripped) {
			continue
		}

		if id, title, ok := matchSection(stripped); ok {
			closeCurrent(currentPage)
			current = &models.ExtractedSection{
				SectionID: id,
				Title:     title,
				PageStart: currentPage,
				Depth:     sectionDepth(id),
				ParentID:  parentSection(id),
			}
			continue
		}

		if current != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	closeCurrent(currentPage)
	return sections
}

// SectionPages maps section ids to page numbers, offset by one to line
// up with the table of contents. Used by the fix-pages stage.
func SectionPages(md string, startPage int) map[string]int {
	pages := make(map[string]int)
	currentPage := startPage
	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimSpace(line)
		if pageHeaderRe.MatchString(stripped) {
			continue
		}
		if m := pageMarkerRe.FindStringSubmatch(stripped); m != nil {
			if page, _ := strconv.Atoi(m[1]); page != 0 && page >= currentPage && page < currentPage+50 {
				currentPage = page
				continue
			}
		}
		if tocEntryRe.MatchString(stripped) {
			continue
		}
		if id, _, ok := matchSection(stripped); ok {
			pages[id] = currentPage + 1
		}
	}
	return pages
}

func sectionDepth(id string) int {
	if strings.HasPrefix(id, "Annex") {
		return 1
	}
	return strings.Count(id, ".") + 1
}

func parentSection(id string) string {
	idx := strings.LastIndex(id, ".")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}

