package score

import (
	"fmt"
	"math"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Default weights of the four sub-scores
const (
	DefaultDistanceWeight = 0.3
	DefaultPositionWeight = 0.2
	DefaultCategoryWeight = 0.3
	DefaultParserWeight   = 0.2
)

// Input holds the signals gathered for one date mention
type Input struct {
	ParserConfidence   float64
	CategoryConfidence float64
	KeywordDistance    *int // nil when no keyword matched
	Position           model.SentencePosition
}

// Breakdown is the transparent result of scoring one mention
type Breakdown struct {
	DistanceScore float64             `json:"distance_score"`
	PositionScore float64             `json:"position_score"`
	CategoryScore float64             `json:"category_score"`
	ParserScore   float64             `json:"parser_score"`
	Weights       model.ScoringConfig `json:"weights"`
	Overall       float64             `json:"overall"`
	Formula       string              `json:"formula"`
}

// Scorer combines the sub-scores into an overall confidence
type Scorer struct {
	weights model.ScoringConfig
}

// NewScorer creates a new scorer. A zero config uses the default weights.
func NewScorer(cfg model.ScoringConfig) *Scorer {
	if cfg == (model.ScoringConfig{}) {
		cfg = model.ScoringConfig{
			DistanceWeight: DefaultDistanceWeight,
			PositionWeight: DefaultPositionWeight,
			CategoryWeight: DefaultCategoryWeight,
			ParserWeight:   DefaultParserWeight,
		}
	}
	return &Scorer{weights: cfg}
}

// Score calculates the overall confidence and its breakdown
func (s *Scorer) Score(in Input) Breakdown {
	b := Breakdown{
		DistanceScore: DistanceScore(in.KeywordDistance),
		PositionScore: PositionScore(in.Position),
		CategoryScore: unit(in.CategoryConfidence),
		ParserScore:   unit(in.ParserConfidence),
		Weights:       s.weights,
	}

	w := s.weights
	b.Overall = unit(w.DistanceWeight*b.DistanceScore +
		w.PositionWeight*b.PositionScore +
		w.CategoryWeight*b.CategoryScore +
		w.ParserWeight*b.ParserScore)

	b.Formula = fmt.Sprintf("%.2f*distance(%.2f) + %.2f*position(%.2f) + %.2f*category(%.2f) + %.2f*parser(%.2f) = %.4f",
		w.DistanceWeight, b.DistanceScore,
		w.PositionWeight, b.PositionScore,
		w.CategoryWeight, b.CategoryScore,
		w.ParserWeight, b.ParserScore,
		b.Overall)

	return b
}

// DistanceScore rates how close the trigger keyword sits to the sentence start
func DistanceScore(distance *int) float64 {
	switch {
	case distance == nil:
		return 0.2
	case *distance <= 10:
		return 1.0
	case *distance <= 50:
		return 0.5
	default:
		return 0.2
	}
}

// PositionScore rates where the date sits in its sentence
func PositionScore(p model.SentencePosition) float64 {
	switch p {
	case model.PositionBeginning:
		return 1.0
	case model.PositionMiddle:
		return 0.7
	default:
		return 0.5
	}
}

// unit clamps v to [0, 1]
func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
