package workflow

import (
	"fmt"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Defaults for the auto-approval gate
var (
	DefaultThreshold  = 0.6
	DefaultCategories = []model.Category{
		model.CategoryBuildDate,
		model.CategoryOpening,
		model.CategoryDemolition,
	}
)

// Policy decides which pending extractions the system may approve on its own
type Policy struct {
	threshold  float64
	categories map[model.Category]bool
}

// NewPolicy creates a policy; zero values fall back to the defaults
func NewPolicy(cfg model.ApprovalConfig) *Policy {
	p := &Policy{
		threshold:  cfg.Threshold,
		categories: make(map[model.Category]bool),
	}
	if p.threshold <= 0 {
		p.threshold = DefaultThreshold
	}

	cats := cfg.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	for _, c := range cats {
		p.categories[c] = true
	}
	return p
}

// Eligible reports whether e may be auto-approved and, if so, the
// justification to record. Only pending extractions without a conflict in an
// allowed category at or above the threshold qualify. Duplicates are judged
// like primaries.
func (p *Policy) Eligible(e *model.Extraction) (string, bool) {
	switch {
	case e.Status != model.StatusPending:
		return "", false
	case e.ConflictEventID != nil:
		return "", false
	case !p.categories[e.Category]:
		return "", false
	case e.OverallConfidence < p.threshold:
		return "", false
	}
	return fmt.Sprintf("High confidence %s (%.2f >= %.2f)", e.Category, e.OverallConfidence, p.threshold), true
}
