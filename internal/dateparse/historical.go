package dateparse

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var relativeWords = regexp.MustCompile(`(?i)\b(yesterday|today|last|ago|next|this|recent\w*)\b`)

// EnrichedSpan is the adapter's immutable view of one date mention
type EnrichedSpan struct {
	Text   string
	Offset int

	Start     time.Time
	End       *time.Time
	Known     KnownFields
	Precision model.DatePrecision
	Decade    bool

	// ParserConfidence is the fraction of day/month/year written in the text
	ParserConfidence float64

	CenturyBiasApplied    bool
	OriginalYearAmbiguous bool
	Relative              bool
	AnchorDate            *time.Time // Reference date used for relative mentions

	Display string
	EDTF    string
	SortKey int

	CategoryHint model.Category
	Source       string
}

// DateStart returns the storage form of Start
func (s EnrichedSpan) DateStart() string {
	return s.Start.Format(DateLayout)
}

// DateEnd returns the storage form of End, or nil
func (s EnrichedSpan) DateEnd() *string {
	if s.End == nil {
		return nil
	}
	v := s.End.Format(DateLayout)
	return &v
}

// SkippedSpan is a span the adapter refused because it was malformed
type SkippedSpan struct {
	Text string
	Err  error
}

// ParseResult is the output of one adapter run
type ParseResult struct {
	Spans   []EnrichedSpan
	Skipped []SkippedSpan
}

// HistoricalAdapter wraps a Parser for historical-building research: bare
// two-digit years that the parser placed in the recent range are read as 19xx.
type HistoricalAdapter struct {
	parser   Parser
	patterns *PatternSource
	cfg      model.ParserConfig
}

// NewHistoricalAdapter creates an adapter around parser
func NewHistoricalAdapter(parser Parser, cfg model.ParserConfig) *HistoricalAdapter {
	if cfg.RecentFrom == 0 {
		cfg.RecentFrom = 2020
	}
	if cfg.RecentTo == 0 {
		cfg.RecentTo = 2099
	}
	return &HistoricalAdapter{parser: parser, cfg: cfg}
}

// WithPatterns returns a copy of the adapter that also runs the custom patterns
func (a *HistoricalAdapter) WithPatterns(src *PatternSource) *HistoricalAdapter {
	c := *a
	c.patterns = src
	return &c
}

// Parse finds and enriches every date mention in text. ref anchors relative
// expressions and must be supplied by the caller.
func (a *HistoricalAdapter) Parse(ctx context.Context, text string, ref time.Time) (*ParseResult, error) {
	raw, err := a.parser.Parse(ctx, text, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParseFailure, err)
	}

	var custom []RawSpan
	if a.patterns != nil {
		custom, err = a.patterns.Parse(ctx, text, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: custom patterns: %w", model.ErrParseFailure, err)
		}
	}

	result := &ParseResult{}
	var accepted []RawSpan
	for _, span := range append(custom, raw...) {
		if err := validateSpan(text, span); err != nil {
			result.Skipped = append(result.Skipped, SkippedSpan{Text: span.Text, Err: err})
			continue
		}
		if overlapsAny(span, accepted) {
			continue
		}
		accepted = append(accepted, span)
	}

	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Offset < accepted[j].Offset })
	for _, span := range accepted {
		result.Spans = append(result.Spans, a.enrich(span, ref))
	}
	return result, nil
}

func overlapsAny(span RawSpan, spans []RawSpan) bool {
	for _, s := range spans {
		if span.overlaps(s) {
			return true
		}
	}
	return false
}

func validateSpan(text string, span RawSpan) error {
	switch {
	case span.Text == "":
		return fmt.Errorf("%w: empty match", model.ErrParseFailure)
	case span.Offset < 0 || span.Offset+span.Len() > len(text):
		return fmt.Errorf("%w: offset %d out of range", model.ErrParseFailure, span.Offset)
	case text[span.Offset:span.Offset+span.Len()] != span.Text:
		return fmt.Errorf("%w: match text does not occur at offset %d", model.ErrParseFailure, span.Offset)
	case span.Start.IsZero():
		return fmt.Errorf("%w: no start date", model.ErrParseFailure)
	case span.End != nil && span.End.Before(span.Start):
		return fmt.Errorf("%w: end before start", model.ErrParseFailure)
	}
	return nil
}

func (a *HistoricalAdapter) enrich(raw RawSpan, ref time.Time) EnrichedSpan {
	span, biased, ambiguous := a.applyCenturyBias(raw)
	precision := span.Known.Precision()

	confidence := float64(span.Known.Count()) / 3
	if confidence > 1 {
		confidence = 1
	}

	out := EnrichedSpan{
		Text:                  span.Text,
		Offset:                span.Offset,
		Start:                 span.Start,
		End:                   span.End,
		Known:                 span.Known,
		Precision:             precision,
		Decade:                span.Decade,
		ParserConfidence:      confidence,
		CenturyBiasApplied:    biased,
		OriginalYearAmbiguous: ambiguous,
		Relative:              relativeWords.MatchString(span.Text),
		Display:               FormatDisplay(span.Start, span.End, precision, span.Decade),
		EDTF:                  FormatEDTF(span.Start, span.End, precision, span.Decade),
		SortKey:               SortKey(span.Start, precision),
		CategoryHint:          span.CategoryHint,
		Source:                span.Source,
	}
	if out.Relative {
		anchor := ref.UTC()
		out.AnchorDate = &anchor
	}
	return out
}

// applyCenturyBias returns a corrected copy of span. The year is shifted back
// a century when it sits in the recent window and came from a bare two-digit
// token of 20 or more. Four-digit years are never touched.
func (a *HistoricalAdapter) applyCenturyBias(span RawSpan) (RawSpan, bool, bool) {
	if !span.Known.Year || !span.TwoDigitYear {
		return span, false, false
	}
	year := span.Start.Year()
	if !a.cfg.CenturyBias || year < a.cfg.RecentFrom || year > a.cfg.RecentTo || year%100 < 20 {
		return span, false, true
	}

	span.Start = span.Start.AddDate(-100, 0, 0)
	if span.End != nil {
		end := span.End.AddDate(-100, 0, 0)
		span.End = &end
	}
	return span, true, true
}
