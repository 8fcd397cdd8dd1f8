package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// DefaultKeywordWeight is the confidence contributed by one matched keyword
const DefaultKeywordWeight = 0.25

// Classification is the classifier's verdict for one sentence
type Classification struct {
	Category   model.Category
	Confidence float64
	Keywords   []string // Matched keywords of the winning category
	// KeywordDistance is the byte offset of the nearest matched keyword from
	// the sentence start; nil when nothing matched.
	KeywordDistance *int
}

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

type categoryMatcher struct {
	category model.Category
	keywords []keywordMatcher
}

// Classifier maps a sentence to one of the categories in model.Categories
// using keyword evidence. It is safe for concurrent use; the weight table is
// a read-only snapshot.
type Classifier struct {
	keywordWeight float64
	weights       model.WeightTable
	matchers      []categoryMatcher
}

// NewClassifier compiles the keyword table. weights may be nil.
func NewClassifier(cfg model.ClassifierConfig, weights model.WeightTable) *Classifier {
	c := &Classifier{
		keywordWeight: cfg.KeywordWeight,
		weights:       weights,
	}
	if c.keywordWeight <= 0 {
		c.keywordWeight = DefaultKeywordWeight
	}

	for _, info := range model.Categories {
		m := categoryMatcher{category: info.Category}
		for _, kw := range info.Keywords {
			m.keywords = append(m.keywords, keywordMatcher{keyword: kw, re: keywordRegexp(kw)})
		}
		c.matchers = append(c.matchers, m)
	}
	return c
}

// WithWeights returns a classifier sharing the compiled table but reading weights
func (c *Classifier) WithWeights(weights model.WeightTable) *Classifier {
	cp := *c
	cp.weights = weights
	return &cp
}

// KeywordWeight returns the base contribution of a single keyword
func (c *Classifier) KeywordWeight() float64 {
	return c.keywordWeight
}

// Classify scores every category against sentence. The highest confidence
// wins; ties keep the earlier category in the table.
func (c *Classifier) Classify(sentence string) Classification {
	best := Classification{Category: model.CategoryUnknown}

	for _, m := range c.matchers {
		var (
			matched  []string
			distance = -1
			score    float64
		)
		for _, kw := range m.keywords {
			loc := kw.re.FindStringIndex(sentence)
			if loc == nil {
				continue
			}
			matched = append(matched, kw.keyword)
			score += c.keywordWeight * c.weights.Modifier(m.category, kw.keyword)
			if distance < 0 || loc[0] < distance {
				distance = loc[0]
			}
		}
		if len(matched) == 0 {
			continue
		}

		score = math.Min(score, 1.0)
		if score > best.Confidence {
			d := distance
			best = Classification{
				Category:        m.category,
				Confidence:      score,
				Keywords:        matched,
				KeywordDistance: &d,
			}
		}
	}

	return best
}

// keywordRegexp matches kw case-insensitively on word boundaries, allowing
// any run of whitespace between the words of a phrase.
func keywordRegexp(kw string) *regexp.Regexp {
	words := strings.Fields(kw)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}
