package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizzlechizzle/datemine/internal/cache"
	"github.com/bizzlechizzle/datemine/internal/model"
)

type memWeights struct {
	entries map[string]*model.WeightEntry
	lists   int
}

func newMemWeights() *memWeights {
	return &memWeights{entries: make(map[string]*model.WeightEntry)}
}

func (m *memWeights) RecordFeedback(_ context.Context, category model.Category, keyword string, approved bool,
	modifier func(int, int) float64, now time.Time) (*model.WeightEntry, error) {
	key := string(category) + "/" + keyword
	e, ok := m.entries[key]
	if !ok {
		e = &model.WeightEntry{Category: category, Keyword: keyword}
		m.entries[key] = e
	}
	if approved {
		e.Approvals++
	} else {
		e.Rejections++
	}
	e.WeightModifier = modifier(e.Approvals, e.Rejections)
	e.UpdatedAt = now
	cp := *e
	return &cp, nil
}

func (m *memWeights) ListWeights(context.Context) ([]model.WeightEntry, error) {
	m.lists++
	var out []model.WeightEntry
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, nil
}

func enabled() model.LearningConfig {
	return model.LearningConfig{Enabled: true, SnapshotTTL: time.Minute}
}

func TestLearner_Modifier(t *testing.T) {
	l := NewLearner(newMemWeights(), nil, enabled(), nil, nil)

	assert.Equal(t, 1.0, l.Modifier(0, 0))
	assert.Greater(t, l.Modifier(3, 0), 1.0)
	assert.Less(t, l.Modifier(0, 3), 1.0)
	assert.Equal(t, 2.0, l.Modifier(50, 0))
	assert.Equal(t, 0.25, l.Modifier(0, 50))
	assert.Equal(t, 1.0, l.Modifier(4, 4))
}

func TestLearner_RecordAndSnapshot(t *testing.T) {
	store := newMemWeights()
	l := NewLearner(store, cache.NewMemoryCache(time.Minute, time.Minute), enabled(), nil, nil)
	ctx := context.Background()

	e := &model.Extraction{
		Category:         model.CategoryClosure,
		CategoryKeywords: model.StringList{"closed", "closed its doors"},
	}
	require.NoError(t, l.Record(ctx, store, e, false))
	require.NoError(t, l.Record(ctx, store, e, false))
	require.NoError(t, l.Record(ctx, store, e, true))
	l.Invalidate()

	table, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, table.Modifier(model.CategoryClosure, "closed"), 1e-9)
	assert.InDelta(t, 2.0/3, table.Modifier(model.CategoryClosure, "closed its doors"), 1e-9)
	assert.Equal(t, 1.0, table.Modifier(model.CategoryOpening, "opened"))

	// Served from cache until invalidated
	_, err = l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists)

	require.NoError(t, l.Record(ctx, store, e, true))
	cached, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, cached.Modifier(model.CategoryClosure, "closed"), 1e-9, "snapshot is frozen until invalidated")

	l.Invalidate()
	fresh, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fresh.Modifier(model.CategoryClosure, "closed"), 1e-9)
	assert.Equal(t, 2, store.lists)
}

func TestLearner_Disabled(t *testing.T) {
	store := newMemWeights()
	l := NewLearner(store, nil, model.LearningConfig{Enabled: false}, nil, nil)

	e := &model.Extraction{Category: model.CategoryBuildDate, CategoryKeywords: model.StringList{"built"}}
	require.NoError(t, l.Record(context.Background(), store, e, true))
	assert.Empty(t, store.entries)

	table, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, table)
	assert.Equal(t, 1.0, table.Modifier(model.CategoryBuildDate, "built"))
}

func TestLearner_UnknownCategoryIgnored(t *testing.T) {
	store := newMemWeights()
	l := NewLearner(store, nil, enabled(), nil, nil)

	require.NoError(t, l.Record(context.Background(), store, &model.Extraction{Category: model.CategoryUnknown}, true))
	assert.Empty(t, store.entries)
}
