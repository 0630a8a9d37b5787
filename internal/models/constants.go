package models

// Regex source strings for section structure and block recognition.
// Section header patterns cover the formatting differences between the
// four document parts: Part 1 uses bold ids with bold titles, Parts 2-4
// use hash headings, and annexes use their own lettered form.
const (
	BoldSectionRegex = `^\*\*(\d+(?:\.\d+)*)\*\*\s*\*\*([^*]+)\*\*$`
	HashSectionRegex = `^#+\s*\*\*(\d+(?:\.\d+)*)\.?\s+([^*]+)\*\*$`
	AnnexRegex       = `^\*?\*?(Annex\s+[A-Z])\*?\*?\s*(?:\(([^)]+)\))?\s*(.*)$`

	TOCEntryRegex   = `^\d+(?:\.\d+)*\s+.+\.{2,}\s*\d+$`
	PageMarkerRegex = `^(\d+)$`
	PageHeaderRegex = `^ECMA-376 Part \d`

	FenceRegex     = "^```"
	TableRowRegex  = `^\s*\|.*\|\s*$`
	PlaceholderFmt = "[BLOCK %d]"
	PlaceholderRegex = `^\[BLOCK \d+\]$`
)
