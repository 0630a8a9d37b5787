package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"spec-search/internal/models"
)

type extractedBlock struct {
	content     string
	contentType string
}

var (
	fenceRe       = regexp.MustCompile(models.FenceRegex)
	tableRowRe    = regexp.MustCompile(models.TableRowRegex)
	placeholderRe = regexp.MustCompile(models.PlaceholderRegex)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// extractBlocks pulls fenced code blocks and pipe-table runs out of the
// text so paragraph chunking sees undisturbed prose. Each block is
// replaced by a placeholder line and returned separately; fenced blocks
// are treated as XML examples (the source document fences its markup
// listings), table runs need at least two consecutive rows.
func extractBlocks(content string) (string, []extractedBlock) {
	lines := strings.Split(content, "\n")

	var blocks []extractedBlock
	var prose []string
	placeholder := func(blockType, text string) {
		blocks = append(blocks, extractedBlock{content: text, contentType: blockType})
		prose = append(prose, fmt.Sprintf(models.PlaceholderFmt, len(blocks)))
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if fenceRe.MatchString(line) {
			end := i + 1
			for end < len(lines) && !fenceRe.MatchString(lines[end]) {
				end++
			}
			if end < len(lines) {
				placeholder(models.ContentTypeXMLExample, strings.Join(lines[i:end+1], "\n"))
				i = end
				continue
			}
			// unterminated fence, leave it as prose
		}

		if tableRowRe.MatchString(line) {
			end := i
			for end < len(lines) && tableRowRe.MatchString(lines[end]) {
				end++
			}
			if end-i >= 2 {
				placeholder(models.ContentTypeTable, strings.Join(lines[i:end], "\n"))
				i = end - 1
				continue
			}
		}

		prose = append(prose, line)
	}

	return strings.Join(prose, "\n"), blocks
}

// stripBlockMarkup derives the embedding text for a narrative chunk:
// placeholder lines, any fenced or table lines that survived chunk
// boundaries, and the resulting blank-line runs are removed so the vector
// represents prose, not markup. Returns the input unchanged when nothing
// was stripped.
func stripBlockMarkup(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	inFence := false
	stripped := false
	for _, line := range lines {
		switch {
		case fenceRe.MatchString(line):
			inFence = !inFence
			stripped = true
		case inFence, placeholderRe.MatchString(strings.TrimSpace(line)), tableRowRe.MatchString(line):
			stripped = true
		default:
			kept = append(kept, line)
		}
	}
	if !stripped {
		return text
	}
	out := strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(kept, "\n"), "\n\n"))
	if out == "" {
		return text
	}
	return out
}
