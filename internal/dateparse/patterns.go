package dateparse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// InvalidPatternError reports a custom pattern that failed to compile
type InvalidPatternError struct {
	PatternID string
	Name      string
	Err       error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("pattern %s (%s): %v", e.PatternID, e.Name, e.Err)
}

// Unwrap exposes both ErrInvalidPattern and the regexp error
func (e *InvalidPatternError) Unwrap() []error {
	return []error{model.ErrInvalidPattern, e.Err}
}

// CompilePattern compiles a custom pattern's regex
func CompilePattern(p model.Pattern) (*regexp.Regexp, error) {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return nil, &InvalidPatternError{PatternID: p.ID, Name: p.Name, Err: err}
	}
	return re, nil
}

type compiledPattern struct {
	pattern model.Pattern
	re      *regexp.Regexp
	year    int // Submatch indexes, -1 when absent
	month   int
	day     int
}

// PatternSource extracts dates with user-defined regexes. Patterns with
// year/month/day named groups are read directly; other matches are handed to
// the rule parser.
type PatternSource struct {
	patterns []compiledPattern
	fallback *RuleParser
}

// NewPatternSource compiles the enabled patterns. Patterns that fail to
// compile are returned separately and left out; they never affect the others.
func NewPatternSource(patterns []model.Pattern, fallback *RuleParser) (*PatternSource, []*InvalidPatternError) {
	src := &PatternSource{fallback: fallback}
	var invalid []*InvalidPatternError

	for _, p := range patterns {
		if !p.Enabled {
			continue
		}
		re, err := CompilePattern(p)
		if err != nil {
			invalid = append(invalid, err.(*InvalidPatternError))
			continue
		}
		src.patterns = append(src.patterns, compiledPattern{
			pattern: p,
			re:      re,
			year:    re.SubexpIndex("year"),
			month:   re.SubexpIndex("month"),
			day:     re.SubexpIndex("day"),
		})
	}

	return src, invalid
}

// Len returns the number of active patterns
func (s *PatternSource) Len() int {
	return len(s.patterns)
}

// Parse runs every active pattern over text
func (s *PatternSource) Parse(ctx context.Context, text string, ref time.Time) ([]RawSpan, error) {
	var cands []candidate
	for prio, cp := range s.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, idx := range cp.re.FindAllStringSubmatchIndex(text, -1) {
			if idx[1] == idx[0] {
				continue
			}
			spans, err := s.spansForMatch(ctx, cp, text, idx, ref)
			if err != nil {
				return nil, err
			}
			for _, span := range spans {
				span.Source = "pattern:" + cp.pattern.ID
				if cp.pattern.Category != nil {
					span.CategoryHint = *cp.pattern.Category
				}
				cands = append(cands, candidate{span: span, priority: prio})
			}
		}
	}
	return selectSpans(cands), nil
}

func (s *PatternSource) spansForMatch(ctx context.Context, cp compiledPattern, text string, idx []int, ref time.Time) ([]RawSpan, error) {
	match := text[idx[0]:idx[1]]

	if cp.year < 0 {
		if s.fallback == nil {
			return nil, nil
		}
		found, err := s.fallback.Parse(ctx, match, ref)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].Offset += idx[0]
		}
		return found, nil
	}

	groups := submatches(text, idx)
	span, ok := spanFromGroups(groups, cp)
	if !ok {
		return nil, nil
	}
	span.Text = match
	span.Offset = idx[0]
	return []RawSpan{span}, nil
}

func spanFromGroups(groups []string, cp compiledPattern) (RawSpan, bool) {
	year, short, ok := parseYear(groups[cp.year])
	if !ok {
		return RawSpan{}, false
	}
	span := RawSpan{TwoDigitYear: short}

	var month time.Month
	if cp.month >= 0 && groups[cp.month] != "" {
		if n, err := strconv.Atoi(groups[cp.month]); err == nil {
			month = time.Month(n)
		} else if m, ok := parseMonth(groups[cp.month]); ok {
			month = m
		}
		if month < time.January || month > time.December {
			return RawSpan{}, false
		}
	}

	if month != 0 && cp.day >= 0 && groups[cp.day] != "" {
		day, err := strconv.Atoi(groups[cp.day])
		if err != nil {
			return RawSpan{}, false
		}
		t, ok := validDay(year, month, day)
		if !ok {
			return RawSpan{}, false
		}
		span.Start, span.Known = t, KnownFields{Day: true, Month: true, Year: true}
		return span, true
	}

	if month != 0 {
		span.Start, span.Known = date(year, month, 1), KnownFields{Month: true, Year: true}
		return span, true
	}
	span.Start, span.Known = date(year, time.January, 1), KnownFields{Year: true}
	return span, true
}
