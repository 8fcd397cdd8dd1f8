package adapters

import (
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Adapter turns the raw content of one kind of source into plain text the
// date parser can read
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given source
	CanHandle(sourceType model.SourceType, contentType string) bool

	// Text normalises content into plain text
	Text(content string) (string, error)
}

// Registry manages source adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewWebAdapter())
	registry.Register(NewCaptionAdapter())
	registry.Register(NewDocumentAdapter())

	// Manual entries and anything unrecognised pass through untouched
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given source
func (r *Registry) FindAdapter(sourceType model.SourceType, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(sourceType, contentType) {
			return adapter
		}
	}
	return r.generic
}

// Normalise runs content through the matching adapter
func (r *Registry) Normalise(sourceType model.SourceType, contentType, content string) (string, error) {
	return r.FindAdapter(sourceType, contentType).Text(content)
}

// collapseSpaces squeezes runs of spaces and tabs on each line while keeping
// line breaks, which the sentence locator treats as boundaries.
func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
