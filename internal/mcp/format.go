package mcp

import (
	"fmt"
	"strings"

	"spec-search/internal/models"
)

// Tool results are human-readable text, not structured JSON; empty
// result sets are still successful responses with an explanatory line.

func formatSearchResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results for %q:\n", len(results), query)
	for i, r := range results {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s (%.1f%% match)\n", i+1, resultHeading(r), r.Score*100)
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func formatSectionResults(sectionID string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No chunks found for section %s.", sectionID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Section %s (%d chunks):\n", sectionID, len(results))
	for _, r := range results {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", resultHeading(r))
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func formatSectionList(refs []models.SectionRef) string {
	if len(refs) == 0 {
		return "No sections have been ingested yet."
	}

	var b strings.Builder
	currentPart := 0
	for _, ref := range refs {
		if ref.PartNumber != currentPart {
			if currentPart != 0 {
				b.WriteString("\n")
			}
			currentPart = ref.PartNumber
			fmt.Fprintf(&b, "Part %d:\n", currentPart)
		}
		fmt.Fprintf(&b, "  %s %s\n", ref.SectionID, ref.Title)
	}
	return b.String()
}

func resultHeading(r models.SearchResult) string {
	var b strings.Builder
	if r.SectionID != "" {
		fmt.Fprintf(&b, "Section %s", r.SectionID)
	} else {
		b.WriteString("Untitled chunk")
	}
	if r.Title != "" {
		fmt.Fprintf(&b, " %q", r.Title)
	}
	fmt.Fprintf(&b, " [Part %d", r.PartNumber)
	if r.PageNumber != 0 {
		fmt.Fprintf(&b, ", p.%d", r.PageNumber)
	}
	b.WriteString("]")
	return b.String()
}
