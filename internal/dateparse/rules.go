package dateparse

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

const (
	monthExpr = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	yearExpr  = `(\d{4}|['’]\d{2})`
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

// rule is one recogniser. build receives the submatches (index 0 is the whole
// match) and returns a span without Text/Offset.
type rule struct {
	name  string
	re    *regexp.Regexp
	build func(p *RuleParser, m []string, ref time.Time) (RawSpan, bool)
}

// RuleParser is the built-in English date-parsing capability. It recognises
// full dates, numeric dates, year ranges, decades, month+year, relative
// expressions, apostrophe years and bare years. Two-digit years resolve to
// 2000+YY; HistoricalAdapter corrects them for historical text.
type RuleParser struct {
	minYear int
	maxYear int
	rules   []rule
}

// NewRuleParser creates a rule parser bounded by the configured year range
func NewRuleParser(cfg model.ParserConfig) *RuleParser {
	p := &RuleParser{
		minYear: cfg.MinYear,
		maxYear: cfg.MaxYear,
	}
	if p.minYear == 0 {
		p.minYear = 1600
	}
	if p.maxYear == 0 {
		p.maxYear = 2099
	}

	// Order is the tie-break priority for candidates at the same offset and length
	p.rules = []rule{
		{name: "month_day_year", re: regexp.MustCompile(`(?i)\b` + monthExpr + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+` + yearExpr + `\b`), build: buildMonthDayYear},
		{name: "day_month_year", re: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthExpr + `,?\s+` + yearExpr + `\b`), build: buildDayMonthYear},
		{name: "iso", re: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`), build: buildISO},
		{name: "numeric", re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`), build: buildNumeric},
		{name: "year_range", re: regexp.MustCompile(`(?i)\b(?:from\s+)?(\d{4})\s*(?:-|–|—|to|until|through)\s*(\d{4})\b`), build: buildYearRange},
		{name: "between_years", re: regexp.MustCompile(`(?i)\bbetween\s+(\d{4})\s+and\s+(\d{4})\b`), build: buildYearRange},
		{name: "decade", re: regexp.MustCompile(`\b(\d{3})0s\b`), build: buildDecade},
		{name: "short_decade", re: regexp.MustCompile(`['’](\d)0s\b`), build: buildShortDecade},
		{name: "month_year", re: regexp.MustCompile(`(?i)\b` + monthExpr + `,?\s+(?:of\s+)?` + yearExpr + `\b`), build: buildMonthYear},
		{name: "relative", re: regexp.MustCompile(`(?i)\b(yesterday|today|(?:last|this|next)\s+(?:year|month)|(\d{1,3}|an?|one|two|three|four|five|six|seven|eight|nine|ten|twenty|thirty|forty|fifty)\s+years?\s+ago)\b`), build: buildRelative},
		{name: "short_year", re: regexp.MustCompile(`['’](\d{2})\b`), build: buildShortYear},
		{name: "year", re: regexp.MustCompile(`\b(\d{4})\b`), build: buildYear},
	}

	return p
}

type candidate struct {
	span     RawSpan
	priority int
}

// Parse returns every non-overlapping date mention in text
func (p *RuleParser) Parse(ctx context.Context, text string, ref time.Time) ([]RawSpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cands []candidate
	for prio, r := range p.rules {
		for _, idx := range r.re.FindAllStringSubmatchIndex(text, -1) {
			groups := submatches(text, idx)
			span, ok := r.build(p, groups, ref)
			if !ok {
				continue
			}
			span.Text = text[idx[0]:idx[1]]
			span.Offset = idx[0]
			span.Source = "rules"
			cands = append(cands, candidate{span: span, priority: prio})
		}
	}

	return selectSpans(cands), nil
}

// selectSpans keeps the earliest, longest, highest-priority candidate of every
// overlapping cluster.
func selectSpans(cands []candidate) []RawSpan {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].span, cands[j].span
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		return cands[i].priority < cands[j].priority
	})

	var spans []RawSpan
	end := -1
	for _, c := range cands {
		if c.span.Offset < end {
			continue
		}
		spans = append(spans, c.span)
		end = c.span.Offset + c.span.Len()
	}
	return spans
}

func submatches(text string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = text[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

// parseYear reads "1923", "'62" or "62". Two-digit years become 2000+YY and
// report short.
func parseYear(s string) (year int, short bool, ok bool) {
	s = strings.TrimLeft(s, "'’")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, false
	}
	switch len(s) {
	case 2:
		return 2000 + n, true, true
	case 4:
		return n, false, true
	}
	return 0, false, false
}

func parseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthsByPrefix[s[:3]]
	return m, ok
}

func (p *RuleParser) yearInRange(y int) bool {
	return y >= p.minYear && y <= p.maxYear
}

// validDay builds a date and rejects overflow such as February 30
func validDay(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	t := date(year, month, day)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func exactSpan(p *RuleParser, year int, month time.Month, day int) (RawSpan, bool) {
	if !p.yearInRange(year) {
		return RawSpan{}, false
	}
	t, ok := validDay(year, month, day)
	if !ok {
		return RawSpan{}, false
	}
	return RawSpan{Start: t, Known: KnownFields{Day: true, Month: true, Year: true}}, true
}

func buildMonthDayYear(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	month, ok := parseMonth(m[1])
	if !ok {
		return RawSpan{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, short, ok := parseYear(m[3])
	if !ok {
		return RawSpan{}, false
	}
	span, ok := exactSpan(p, year, month, day)
	span.TwoDigitYear = short
	return span, ok
}

func buildDayMonthYear(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := parseMonth(m[2])
	if !ok {
		return RawSpan{}, false
	}
	year, short, ok := parseYear(m[3])
	if !ok {
		return RawSpan{}, false
	}
	span, ok := exactSpan(p, year, month, day)
	span.TwoDigitYear = short
	return span, ok
}

func buildISO(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return exactSpan(p, year, time.Month(month), day)
}

// buildNumeric reads US-style month/day/year
func buildNumeric(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, short, ok := parseYear(m[3])
	if !ok {
		return RawSpan{}, false
	}
	span, ok := exactSpan(p, year, time.Month(month), day)
	span.TwoDigitYear = short
	return span, ok
}

func buildYearRange(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	if !p.yearInRange(from) || !p.yearInRange(to) || to <= from {
		return RawSpan{}, false
	}
	end := date(to, time.December, 31)
	return RawSpan{
		Start: date(from, time.January, 1),
		End:   &end,
		Known: KnownFields{Year: true},
	}, true
}

func buildDecade(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	prefix, _ := strconv.Atoi(m[1])
	return decadeSpan(p, prefix*10)
}

func buildShortDecade(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	d, _ := strconv.Atoi(m[1])
	span, ok := decadeSpan(p, 2000+d*10)
	span.TwoDigitYear = true
	return span, ok
}

func decadeSpan(p *RuleParser, start int) (RawSpan, bool) {
	if !p.yearInRange(start) {
		return RawSpan{}, false
	}
	end := date(start+9, time.December, 31)
	return RawSpan{
		Start:  date(start, time.January, 1),
		End:    &end,
		Known:  KnownFields{Year: true},
		Decade: true,
	}, true
}

func buildMonthYear(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	month, ok := parseMonth(m[1])
	if !ok {
		return RawSpan{}, false
	}
	year, short, ok := parseYear(m[2])
	if !ok || !p.yearInRange(year) {
		return RawSpan{}, false
	}
	return RawSpan{
		Start:        date(year, month, 1),
		Known:        KnownFields{Month: true, Year: true},
		TwoDigitYear: short,
	}, true
}

func buildRelative(p *RuleParser, m []string, ref time.Time) (RawSpan, bool) {
	ref = ref.UTC()
	phrase := strings.ToLower(strings.Join(strings.Fields(m[1]), " "))

	switch phrase {
	case "today":
		return RawSpan{Start: date(ref.Year(), ref.Month(), ref.Day()), Known: KnownFields{Day: true, Month: true, Year: true}}, true
	case "yesterday":
		y := ref.AddDate(0, 0, -1)
		return RawSpan{Start: date(y.Year(), y.Month(), y.Day()), Known: KnownFields{Day: true, Month: true, Year: true}}, true
	case "this year":
		return yearSpan(p, ref.Year())
	case "last year":
		return yearSpan(p, ref.Year()-1)
	case "next year":
		return yearSpan(p, ref.Year()+1)
	case "this month", "last month", "next month":
		first := date(ref.Year(), ref.Month(), 1)
		switch phrase {
		case "last month":
			first = first.AddDate(0, -1, 0)
		case "next month":
			first = first.AddDate(0, 1, 0)
		}
		return RawSpan{Start: first, Known: KnownFields{Month: true, Year: true}}, true
	}

	// "N years ago"
	n, err := strconv.Atoi(m[2])
	if err != nil {
		var ok bool
		n, ok = numberWords[strings.ToLower(m[2])]
		if !ok {
			return RawSpan{}, false
		}
	}
	return yearSpan(p, ref.Year()-n)
}

func yearSpan(p *RuleParser, year int) (RawSpan, bool) {
	if !p.yearInRange(year) {
		return RawSpan{}, false
	}
	return RawSpan{Start: date(year, time.January, 1), Known: KnownFields{Year: true}}, true
}

func buildShortYear(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	year, short, ok := parseYear(m[1])
	if !ok {
		return RawSpan{}, false
	}
	span, ok := yearSpan(p, year)
	span.TwoDigitYear = short
	return span, ok
}

func buildYear(p *RuleParser, m []string, _ time.Time) (RawSpan, bool) {
	year, _ := strconv.Atoi(m[1])
	return yearSpan(p, year)
}
