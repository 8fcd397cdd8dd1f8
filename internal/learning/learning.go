// Package learning turns review decisions into keyword weight modifiers that
// the classifier reads on later runs.
package learning

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/cache"
	"github.com/bizzlechizzle/datemine/internal/model"
)

// Default modifier bounds
const (
	DefaultMinModifier = 0.25
	DefaultMaxModifier = 2.0
)

var snapshotKey = cache.Key(cache.NamespaceWeights, "snapshot")

// FeedbackWriter increments the counters of one (category, keyword) and
// stores the modifier computed from the new counts
type FeedbackWriter interface {
	RecordFeedback(ctx context.Context, category model.Category, keyword string, approved bool,
		modifier func(approvals, rejections int) float64, now time.Time) (*model.WeightEntry, error)
}

// WeightReader lists every stored weight entry
type WeightReader interface {
	ListWeights(ctx context.Context) ([]model.WeightEntry, error)
}

// Learner records feedback and serves read-only weight snapshots
type Learner struct {
	reader WeightReader
	cache  cache.Cache
	cfg    model.LearningConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewLearner creates a learner. c may be nil to disable snapshot caching.
func NewLearner(reader WeightReader, c cache.Cache, cfg model.LearningConfig, logger *zap.Logger, now func() time.Time) *Learner {
	if cfg.MinModifier <= 0 {
		cfg.MinModifier = DefaultMinModifier
	}
	if cfg.MaxModifier <= 0 {
		cfg.MaxModifier = DefaultMaxModifier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Learner{reader: reader, cache: c, cfg: cfg, logger: logger, now: now}
}

// Enabled reports whether adaptive weighting is on
func (l *Learner) Enabled() bool {
	return l.cfg.Enabled
}

// Modifier maps feedback counts to a multiplicative weight: more approvals
// push it above 1.0, more rejections below, bounded to [min, max].
func (l *Learner) Modifier(approvals, rejections int) float64 {
	ratio := float64(approvals+1) / float64(rejections+1)
	return math.Max(l.cfg.MinModifier, math.Min(l.cfg.MaxModifier, ratio))
}

// Record counts one approval or rejection for every keyword that matched e.
// The snapshot is not touched; call Invalidate once the write is committed.
func (l *Learner) Record(ctx context.Context, w FeedbackWriter, e *model.Extraction, approved bool) error {
	if !l.cfg.Enabled || e.Category == model.CategoryUnknown {
		return nil
	}

	now := l.now().UTC()
	for _, kw := range e.CategoryKeywords {
		entry, err := w.RecordFeedback(ctx, e.Category, kw, approved, l.Modifier, now)
		if err != nil {
			return fmt.Errorf("record feedback for %s/%s: %w", e.Category, kw, err)
		}
		l.logger.Debug("keyword weight updated",
			zap.String("category", string(entry.Category)),
			zap.String("keyword", entry.Keyword),
			zap.Int("approvals", entry.Approvals),
			zap.Int("rejections", entry.Rejections),
			zap.Float64("modifier", entry.WeightModifier),
		)
	}
	return nil
}

// Invalidate drops the cached snapshot
func (l *Learner) Invalidate() {
	if l.cache != nil {
		_ = l.cache.Delete(snapshotKey)
	}
}

// Snapshot returns the current weight table. A disabled learner returns nil,
// which the classifier reads as all modifiers 1.0.
func (l *Learner) Snapshot(ctx context.Context) (model.WeightTable, error) {
	if !l.cfg.Enabled {
		return nil, nil
	}

	if l.cache != nil {
		if table, ok := cache.GetJSON[model.WeightTable](l.cache, snapshotKey); ok {
			return table, nil
		}
	}

	entries, err := l.reader.ListWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load keyword weights: %w", err)
	}
	table := model.NewWeightTable(entries)

	if l.cache != nil {
		if err := cache.SetJSON(l.cache, snapshotKey, table, l.cfg.SnapshotTTL); err != nil {
			l.logger.Warn("cache weight snapshot", zap.Error(err))
		}
	}
	return table, nil
}
