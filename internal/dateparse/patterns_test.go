package dateparse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizzlechizzle/datemine/internal/model"
)

func categoryPtr(c model.Category) *model.Category {
	return &c
}

func TestPatternSource_NamedGroups(t *testing.T) {
	patterns := []model.Pattern{{
		ID:       "p1",
		Name:     "cornerstone",
		Regex:    `(?i)cornerstone laid (?P<month>[a-z]+) (?P<year>\d{4})`,
		Category: categoryPtr(model.CategoryBuildDate),
		Enabled:  true,
	}}

	src, invalid := NewPatternSource(patterns, newTestRuleParser())
	require.Empty(t, invalid)
	require.Equal(t, 1, src.Len())

	text := "The Cornerstone laid June 1911 still stands."
	spans, err := src.Parse(context.Background(), text, ref2024)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "Cornerstone laid June 1911", span.Text)
	assert.Equal(t, 4, span.Offset)
	assert.Equal(t, "1911-06-01", span.Start.Format(DateLayout))
	assert.Equal(t, model.PrecisionMonth, span.Known.Precision())
	assert.Equal(t, model.CategoryBuildDate, span.CategoryHint)
	assert.Equal(t, "pattern:p1", span.Source)
}

func TestPatternSource_FallsBackToRules(t *testing.T) {
	patterns := []model.Pattern{{ID: "p2", Name: "circa", Regex: `circa \d{4}`, Enabled: true}}

	src, invalid := NewPatternSource(patterns, newTestRuleParser())
	require.Empty(t, invalid)

	spans, err := src.Parse(context.Background(), "Erected circa 1890.", ref2024)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "1890", spans[0].Text)
	assert.Equal(t, 14, spans[0].Offset)
	assert.Equal(t, "pattern:p2", spans[0].Source)
	assert.Empty(t, spans[0].CategoryHint)
}

func TestPatternSource_InvalidPatternIsolated(t *testing.T) {
	patterns := []model.Pattern{
		{ID: "bad", Name: "broken", Regex: `(unclosed`, Enabled: true},
		{ID: "good", Name: "year", Regex: `anno (?P<year>\d{4})`, Enabled: true},
		{ID: "off", Name: "disabled", Regex: `\d{4}`, Enabled: false},
	}

	src, invalid := NewPatternSource(patterns, newTestRuleParser())
	require.Len(t, invalid, 1)
	assert.Equal(t, "bad", invalid[0].PatternID)
	assert.True(t, errors.Is(invalid[0], model.ErrInvalidPattern))
	assert.Equal(t, 1, src.Len())

	spans, err := src.Parse(context.Background(), "anno 1850", ref2024)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "pattern:good", spans[0].Source)
}

func TestPatternSource_RejectsImpossibleGroups(t *testing.T) {
	patterns := []model.Pattern{{ID: "p3", Name: "dmy", Regex: `(?P<day>\d{2})\.(?P<month>\d{2})\.(?P<year>\d{4})`, Enabled: true}}
	src, _ := NewPatternSource(patterns, nil)

	spans, err := src.Parse(context.Background(), "stamped 31.02.1950 and 14.07.1951", ref2024)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "1951-07-14", spans[0].Start.Format(DateLayout))
}

func TestHistoricalAdapter_CustomPatternsTakePrecedence(t *testing.T) {
	patterns := []model.Pattern{{
		ID:       "p1",
		Name:     "cornerstone",
		Regex:    `cornerstone (?P<year>\d{4})`,
		Category: categoryPtr(model.CategoryBuildDate),
		Enabled:  true,
	}}
	src, invalid := NewPatternSource(patterns, newTestRuleParser())
	require.Empty(t, invalid)

	adapter := newTestAdapter().WithPatterns(src)
	result, err := adapter.Parse(context.Background(), "The cornerstone 1911 was moved in 1987.", ref2024)
	require.NoError(t, err)
	require.Len(t, result.Spans, 2)

	assert.Equal(t, "cornerstone 1911", result.Spans[0].Text)
	assert.Equal(t, model.CategoryBuildDate, result.Spans[0].CategoryHint)
	assert.Equal(t, "1987", result.Spans[1].Text)
	assert.Equal(t, "rules", result.Spans[1].Source)
}
