package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// FactReader reads accepted timeline facts
type FactReader interface {
	FactsByKind(ctx context.Context, locid string, kind model.EventKind) ([]model.TimelineFact, error)
}

// ConflictDetector compares extractions against the accepted timeline
type ConflictDetector struct {
	logger *zap.Logger
}

// NewConflictDetector creates a conflict detector
func NewConflictDetector(logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{logger: logger}
}

// Detect returns the accepted fact that e contradicts, or nil. Only
// extractions with a location and a one-time category are checked. A fact
// with the same date at the coarser of the two precisions is agreement, and
// any agreeing fact clears the extraction.
func (d *ConflictDetector) Detect(ctx context.Context, facts FactReader, e *model.Extraction) (*model.TimelineFact, error) {
	info, ok := model.LookupCategory(e.Category)
	if !ok || !info.OneTime || e.LocID == nil {
		return nil, nil
	}

	existing, err := facts.FactsByKind(ctx, *e.LocID, info.Event)
	if err != nil {
		return nil, fmt.Errorf("read timeline facts for %s: %w", *e.LocID, err)
	}

	var conflict *model.TimelineFact
	for i := range existing {
		f := &existing[i]
		if f.SourceRef == e.ID {
			continue
		}
		if SameDate(e.DateStart, e.DatePrecision, f.DateStart, f.DatePrecision) {
			return nil, nil
		}
		if conflict == nil {
			conflict = f
		}
	}

	if conflict != nil {
		d.logger.Debug("date conflict",
			zap.String("extraction", e.ID),
			zap.String("fact", conflict.ID),
			zap.String("extracted", e.DateStart),
			zap.String("accepted", conflict.DateStart),
		)
	}
	return conflict, nil
}

// Flag records fact as the conflict of e
func Flag(e *model.Extraction, fact *model.TimelineFact, now time.Time) {
	id := fact.ID
	e.ConflictEventID = &id
	e.ConflictType = model.ConflictDateMismatch
	e.ConflictResolved = false
	e.UpdatedAt = now
}

// SameDate compares two YYYY-MM-DD dates at the coarser of two precisions
func SameDate(a string, pa model.DatePrecision, b string, pb model.DatePrecision) bool {
	n := comparableLen(pa)
	if m := comparableLen(pb); m < n {
		n = m
	}
	if len(a) < n || len(b) < n {
		return a == b
	}
	return a[:n] == b[:n]
}

func comparableLen(p model.DatePrecision) int {
	switch p {
	case model.PrecisionExact:
		return len("2006-01-02")
	case model.PrecisionMonth:
		return len("2006-01")
	default:
		return len("2006")
	}
}
