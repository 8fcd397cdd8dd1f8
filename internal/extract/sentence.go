package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/bizzlechizzle/datemine/internal/model"
)

const (
	// scanWindow bounds the search for a sentence boundary on each side
	scanWindow = 500
	// fallbackWindow is used on a side where no boundary was found
	fallbackWindow = 200
)

// Location places a date match inside its enclosing sentence
type Location struct {
	Sentence         string
	SentenceStart    int // Byte offset of Sentence in the full text
	OffsetInSentence int
	Position         model.SentencePosition
}

// Locate finds the sentence enclosing the match at [offset, offset+matchLen)
// and classifies where the match sits in it. Offsets are byte offsets.
func Locate(text string, offset, matchLen int) Location {
	offset = clamp(offset, 0, len(text))
	matchEnd := clamp(offset+matchLen, offset, len(text))

	start := sentenceStart(text, offset)
	end := sentenceEnd(text, matchEnd)

	// Trim surrounding whitespace without crossing the match
	for start < offset && isSpace(text[start]) {
		start++
	}
	for end > matchEnd && isSpace(text[end-1]) {
		end--
	}

	sentence := text[start:end]
	inSentence := offset - start
	return Location{
		Sentence:         sentence,
		SentenceStart:    start,
		OffsetInSentence: inSentence,
		Position:         Position(inSentence, len(sentence)),
	}
}

// Position classifies offset/length into beginning, middle or end
func Position(offsetInSentence, sentenceLen int) model.SentencePosition {
	if sentenceLen <= 0 {
		return model.PositionBeginning
	}
	ratio := float64(offsetInSentence) / float64(sentenceLen)
	switch {
	case ratio < 0.33:
		return model.PositionBeginning
	case ratio < 0.66:
		return model.PositionMiddle
	default:
		return model.PositionEnd
	}
}

func sentenceStart(text string, offset int) int {
	limit := offset - scanWindow
	for i := offset - 1; i >= 0 && i >= limit; i-- {
		if isBoundary(text, i) {
			return i + 1
		}
	}
	if limit <= 0 {
		return 0
	}
	return runeStart(text, offset-fallbackWindow)
}

func sentenceEnd(text string, from int) int {
	limit := from + scanWindow
	for i := from; i < len(text) && i < limit; i++ {
		if isBoundary(text, i) {
			if text[i] == '\n' {
				return i
			}
			return i + 1
		}
	}
	if limit >= len(text) {
		return len(text)
	}
	return runeStart(text, from+fallbackWindow)
}

// abbreviations never end a sentence when followed by a period
var abbreviations = map[string]bool{
	"St": true, "Ste": true, "Dr": true, "Mt": true, "Ft": true, "Pt": true,
	"Co": true, "Corp": true, "Inc": true, "Bros": true, "No": true,
	"Mr": true, "Mrs": true, "Ms": true, "Jr": true, "Sr": true, "Rev": true,
	"Gen": true, "Col": true, "Capt": true, "Lt": true, "Gov": true, "Sen": true,
	"Ave": true, "Rd": true, "Blvd": true,
	"Jan": true, "Feb": true, "Mar": true, "Apr": true, "Jun": true, "Jul": true,
	"Aug": true, "Sep": true, "Sept": true, "Oct": true, "Nov": true, "Dec": true,
}

// isBoundary reports whether text[i] ends a sentence. A period only counts
// when followed by whitespace or the end of text, so "St.Louis" and "3.5"
// stay whole, and not after a capitalised abbreviation or initial
// ("St. Mary's", "J. Smith").
func isBoundary(text string, i int) bool {
	switch text[i] {
	case '!', '?', '\n':
		return true
	case '.':
		if i+1 == len(text) {
			return true
		}
		return isSpace(text[i+1]) && !endsAbbreviation(text, i)
	}
	return false
}

// endsAbbreviation reports whether the word before the period at i is a
// known abbreviation or a single capital letter
func endsAbbreviation(text string, i int) bool {
	j := i
	for j > 0 && isLetter(text[j-1]) {
		j--
	}
	word := text[j:i]
	if word == "" || word[0] < 'A' || word[0] > 'Z' {
		return false
	}
	return len(word) == 1 || abbreviations[word]
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSpace(b byte) bool {
	return strings.IndexByte(" \t\r\n\f\v", b) >= 0
}

// runeStart moves i back to the start of a UTF-8 sequence
func runeStart(text string, i int) int {
	i = clamp(i, 0, len(text))
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
