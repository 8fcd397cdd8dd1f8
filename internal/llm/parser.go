package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/dateparse"
)

var digitRun = regexp.MustCompile(`\d+`)

// DateParser asks a provider for the dates in a text. Only mentions whose
// text occurs verbatim in the input are returned; invented mentions are
// dropped, as are dates the model wrote in an unknown form.
type DateParser struct {
	provider Provider
	logger   *zap.Logger
}

var _ dateparse.Parser = (*DateParser)(nil)

// NewDateParser wraps provider as a dateparse.Parser
func NewDateParser(provider Provider, logger *zap.Logger) *DateParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DateParser{provider: provider, logger: logger}
}

// Name returns the source label of produced spans
func (p *DateParser) Name() string {
	return "llm:" + p.provider.Name()
}

// Parse implements dateparse.Parser
func (p *DateParser) Parse(ctx context.Context, text string, ref time.Time) ([]dateparse.RawSpan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := p.provider.Complete(ctx, CompletionRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(text, ref),
	})
	if err != nil {
		return nil, err
	}
	mentions, err := parseMentions(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	p.logger.Debug("llm dates",
		zap.String("provider", p.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("mentions", len(mentions)),
		zap.Int("tokens", resp.TokensUsed),
	)

	var spans []dateparse.RawSpan
	used := make(map[int]bool)
	for _, m := range mentions {
		offset := locate(text, m.Text, used)
		if offset < 0 {
			p.logger.Debug("dropping mention not in text", zap.String("text", m.Text))
			continue
		}
		start, known, err := parseISODate(m.Date)
		if err != nil {
			p.logger.Debug("dropping mention", zap.String("text", m.Text), zap.Error(err))
			continue
		}
		span := dateparse.RawSpan{
			Text:         m.Text,
			Offset:       offset,
			Start:        start,
			Known:        known,
			TwoDigitYear: writesShortYear(m.Text, start.Year()),
			Source:       p.Name(),
		}
		if m.End != "" {
			if end, _, err := parseISODate(m.End); err == nil && !end.Before(start) {
				span.End = &end
				span.Decade = isDecade(m.Text, start, end)
			}
		}
		used[offset] = true
		spans = append(spans, span)
	}
	return spans, nil
}

// locate finds the first occurrence of needle that no earlier mention
// claimed, or -1
func locate(text, needle string, used map[int]bool) int {
	if needle == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return -1
		}
		at := from + i
		if !used[at] {
			return at
		}
		from = at + 1
	}
}

// parseISODate reads YYYY, YYYY-MM or YYYY-MM-DD
func parseISODate(s string) (time.Time, dateparse.KnownFields, error) {
	s = strings.TrimSpace(s)
	layouts := []struct {
		layout string
		known  dateparse.KnownFields
	}{
		{"2006-01-02", dateparse.KnownFields{Day: true, Month: true, Year: true}},
		{"2006-01", dateparse.KnownFields{Month: true, Year: true}},
		{"2006", dateparse.KnownFields{Year: true}},
	}
	for _, l := range layouts {
		if len(s) != len(l.layout) {
			continue
		}
		if t, err := time.Parse(l.layout, s); err == nil {
			return t.UTC(), l.known, nil
		}
	}
	return time.Time{}, dateparse.KnownFields{}, fmt.Errorf("unrecognised date %q", s)
}

// writesShortYear reports whether text gives year only as its last two digits
func writesShortYear(text string, year int) bool {
	short := false
	for _, run := range digitRun.FindAllString(text, -1) {
		switch {
		case len(run) == 4:
			return false
		case len(run) == 2 && run == fmt.Sprintf("%02d", year%100):
			short = true
		}
	}
	return short
}

func isDecade(text string, start, end time.Time) bool {
	return start.Year()%10 == 0 && end.Year() == start.Year()+9 && strings.Contains(text, "0s")
}
