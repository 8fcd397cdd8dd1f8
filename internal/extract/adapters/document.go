package adapters

import (
	"regexp"
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var (
	// "demol-\nished" -> "demolished"
	hyphenBreak = regexp.MustCompile(`(\p{L})-\n\s*(\p{Ll})`)
	blankRun    = regexp.MustCompile(`\n{2,}`)
)

// DocumentAdapter cleans OCR output of scanned documents
type DocumentAdapter struct{}

// NewDocumentAdapter creates a new scanned document adapter
func NewDocumentAdapter() *DocumentAdapter {
	return &DocumentAdapter{}
}

// Name returns the adapter name
func (a *DocumentAdapter) Name() string {
	return "document"
}

// CanHandle accepts scanned documents
func (a *DocumentAdapter) CanHandle(sourceType model.SourceType, _ string) bool {
	return sourceType == model.SourceDocument
}

// Text rejoins hyphenated words and wrapped lines. Paragraph breaks are kept
// as single newlines.
func (a *DocumentAdapter) Text(content string) (string, error) {
	s := strings.ReplaceAll(content, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = collapseSpaces(s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")
	s = joinWrapped(s)
	s = blankRun.ReplaceAllString(s, "\n")
	return s, nil
}

// joinWrapped joins lines inside a paragraph. A single line break is layout
// unless the line already ends a sentence.
func joinWrapped(s string) string {
	lines := strings.Split(s, "\n")
	var b strings.Builder
	for i, line := range lines {
		b.WriteString(line)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		if line != "" && next != "" && !strings.ContainsAny(line[len(line)-1:], ".!?:") {
			b.WriteByte(' ')
		} else {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
