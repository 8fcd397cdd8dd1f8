// Package dateparse finds date mentions in free text and turns them into
// enriched, immutable spans ready for classification.
package dateparse

import (
	"context"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Parser is a date-parsing capability: given text and a reference date it
// returns every date mention it recognises. Implementations must not retain
// or mutate returned spans.
type Parser interface {
	Parse(ctx context.Context, text string, ref time.Time) ([]RawSpan, error)
}

// KnownFields records which date components were written in the text
type KnownFields struct {
	Day   bool `json:"day"`
	Month bool `json:"month"`
	Year  bool `json:"year"`
}

// Count returns how many of the three fields are known
func (k KnownFields) Count() int {
	n := 0
	for _, v := range []bool{k.Day, k.Month, k.Year} {
		if v {
			n++
		}
	}
	return n
}

// Precision derives the date precision from the known fields
func (k KnownFields) Precision() model.DatePrecision {
	switch {
	case k.Day && k.Month && k.Year:
		return model.PrecisionExact
	case k.Month && k.Year:
		return model.PrecisionMonth
	case k.Year:
		return model.PrecisionYear
	default:
		return model.PrecisionUnknown
	}
}

// RawSpan is one date mention as reported by a Parser
type RawSpan struct {
	Text   string     // Matched text
	Offset int        // Byte offset of Text in the source
	Start  time.Time  // UTC midnight
	End    *time.Time // Set for ranges and decades
	Known  KnownFields
	Decade bool // "1920s"-style mention; Start and End bound the decade
	// TwoDigitYear is set when the year was written as two digits ("'62",
	// "3/4/62") and resolved to 2000+YY
	TwoDigitYear bool

	// CategoryHint is set by custom patterns that carry a category
	CategoryHint model.Category
	// Source names the producer: "rules", "pattern:<id>" or "llm:<provider>"
	Source string
}

// Len returns the byte length of the matched text
func (s RawSpan) Len() int {
	return len(s.Text)
}

func (s RawSpan) overlaps(o RawSpan) bool {
	return s.Offset < o.Offset+o.Len() && o.Offset < s.Offset+s.Len()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
