package adapters

import (
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// CaptionAdapter handles image captions, which are short and often lack
// terminal punctuation
type CaptionAdapter struct{}

// NewCaptionAdapter creates a new caption adapter
func NewCaptionAdapter() *CaptionAdapter {
	return &CaptionAdapter{}
}

// Name returns the adapter name
func (a *CaptionAdapter) Name() string {
	return "caption"
}

// CanHandle accepts image captions
func (a *CaptionAdapter) CanHandle(sourceType model.SourceType, _ string) bool {
	return sourceType == model.SourceImageCaption
}

// Text trims the caption and collapses it onto a single line
func (a *CaptionAdapter) Text(content string) (string, error) {
	return strings.Join(strings.Fields(content), " "), nil
}
