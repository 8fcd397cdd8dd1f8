package adapters

import (
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// GenericAdapter is the fallback adapter for manual entries and unknown
// sources; it only normalises line endings
type GenericAdapter struct{}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(model.SourceType, string) bool {
	return true
}

// Text returns content with CRLF line endings folded to LF
func (a *GenericAdapter) Text(content string) (string, error) {
	return strings.ReplaceAll(content, "\r\n", "\n"), nil
}
