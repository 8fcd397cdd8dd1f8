package resolve

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var t0 = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

type memRepo struct {
	rows    map[string]*model.Extraction
	facts   []model.TimelineFact
	updates int
	failOn  string
}

func newMemRepo(rows ...*model.Extraction) *memRepo {
	r := &memRepo{rows: make(map[string]*model.Extraction)}
	for _, e := range rows {
		r.rows[e.ID] = e.Clone()
	}
	return r
}

func (r *memRepo) ListGroup(_ context.Context, key model.GroupKey) ([]*model.Extraction, error) {
	var out []*model.Extraction
	for _, e := range r.rows {
		if e.GroupKey() == key {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) UpdateExtraction(_ context.Context, e *model.Extraction) error {
	if e.ID == r.failOn {
		return errors.New("disk full")
	}
	r.updates++
	r.rows[e.ID] = e.Clone()
	return nil
}

func (r *memRepo) FactsByKind(_ context.Context, locid string, kind model.EventKind) ([]model.TimelineFact, error) {
	var out []model.TimelineFact
	for _, f := range r.facts {
		if f.LocID == locid && f.Kind() == kind {
			out = append(out, f)
		}
	}
	return out, nil
}

func extraction(id string, confidence float64, created time.Time) *model.Extraction {
	return &model.Extraction{
		ID:                id,
		SourceType:        model.SourceWebPage,
		SourceID:          "src-" + id,
		LocID:             model.StringPtr("loc-1"),
		DateStart:         "1923-01-01",
		DatePrecision:     model.PrecisionYear,
		Category:          model.CategoryBuildDate,
		OverallConfidence: confidence,
		IsPrimary:         true,
		Status:            model.StatusPending,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func countPrimaries(rows map[string]*model.Extraction) int {
	n := 0
	for _, e := range rows {
		if e.IsPrimary {
			n++
		}
	}
	return n
}

func TestDeduplicator_LaterHigherConfidenceBecomesPrimary(t *testing.T) {
	first := extraction("aaaa", 0.55, t0)
	second := extraction("bbbb", 0.72, t0.Add(time.Hour))
	repo := newMemRepo(first, second)

	d := NewDeduplicator(nil, func() time.Time { return t0.Add(2 * time.Hour) })
	result, err := d.Resolve(context.Background(), repo, second.GroupKey())
	require.NoError(t, err)

	assert.Equal(t, "bbbb", result.Primary.ID)
	assert.True(t, result.IsDuplicate("aaaa"))
	assert.False(t, result.IsDuplicate("bbbb"))

	assert.True(t, repo.rows["bbbb"].IsPrimary)
	assert.Nil(t, repo.rows["bbbb"].DuplicateOfID)
	assert.Equal(t, model.StringList{"aaaa"}, repo.rows["bbbb"].MergedFromIDs)

	assert.False(t, repo.rows["aaaa"].IsPrimary)
	require.NotNil(t, repo.rows["aaaa"].DuplicateOfID)
	assert.Equal(t, "bbbb", *repo.rows["aaaa"].DuplicateOfID)
	assert.Equal(t, 1, countPrimaries(repo.rows))
}

func TestDeduplicator_TieBreaks(t *testing.T) {
	older := extraction("zzzz", 0.6, t0)
	newer := extraction("aaaa", 0.6, t0.Add(time.Second))
	assert.Equal(t, "zzzz", Elect([]*model.Extraction{newer, older}).ID)

	// Identical confidence and timestamp fall back to the id
	a := extraction("aaaa", 0.6, t0)
	b := extraction("bbbb", 0.6, t0)
	assert.Equal(t, "aaaa", Elect([]*model.Extraction{b, a}).ID)

	assert.Nil(t, Elect(nil))
}

func TestDeduplicator_ExactlyOnePrimaryAsMembersArrive(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduplicator(nil, nil)
	confidences := []float64{0.4, 0.8, 0.3, 0.8, 0.9, 0.1}

	var best *model.Extraction
	for i, c := range confidences {
		e := extraction(string(rune('a'+i))+"000", c, t0.Add(time.Duration(i)*time.Minute))
		repo.rows[e.ID] = e
		if best == nil || precedes(e, best) {
			best = e
		}

		result, err := d.Resolve(context.Background(), repo, e.GroupKey())
		require.NoError(t, err)
		assert.Equal(t, best.ID, result.Primary.ID)
		assert.Equal(t, 1, countPrimaries(repo.rows))

		for id, row := range repo.rows {
			if id == best.ID {
				continue
			}
			require.NotNil(t, row.DuplicateOfID)
			assert.Equal(t, best.ID, *row.DuplicateOfID)
		}
	}
	assert.Len(t, repo.rows[best.ID].MergedFromIDs, len(confidences)-1)
}

func TestDeduplicator_StableGroupWritesNothing(t *testing.T) {
	repo := newMemRepo(extraction("aaaa", 0.7, t0), extraction("bbbb", 0.5, t0))
	d := NewDeduplicator(nil, nil)

	_, err := d.Resolve(context.Background(), repo, extraction("x", 0, t0).GroupKey())
	require.NoError(t, err)
	writes := repo.updates

	result, err := d.Resolve(context.Background(), repo, extraction("x", 0, t0).GroupKey())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)
	assert.Equal(t, writes, repo.updates)
}

func TestDeduplicator_ForcePrimary(t *testing.T) {
	repo := newMemRepo(extraction("aaaa", 0.9, t0), extraction("bbbb", 0.5, t0))
	d := NewDeduplicator(nil, nil)
	key := extraction("x", 0, t0).GroupKey()

	result, err := d.ForcePrimary(context.Background(), repo, key, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "bbbb", result.Primary.ID)
	assert.True(t, repo.rows["bbbb"].IsPrimary)
	assert.Equal(t, "bbbb", *repo.rows["aaaa"].DuplicateOfID)

	_, err = d.ForcePrimary(context.Background(), repo, key, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeduplicator_PropagatesStoreErrors(t *testing.T) {
	repo := newMemRepo(extraction("aaaa", 0.4, t0), extraction("bbbb", 0.9, t0))
	repo.failOn = "aaaa"

	_, err := NewDeduplicator(nil, nil).Resolve(context.Background(), repo, extraction("x", 0, t0).GroupKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestConflictDetector_FlagsDateMismatchWithBuiltFact(t *testing.T) {
	repo := newMemRepo()
	repo.facts = []model.TimelineFact{{
		ID:            "fact-1",
		LocID:         "loc-1",
		EventType:     model.EventEstablished,
		EventSubtype:  "built",
		DateStart:     "1920-01-01",
		DatePrecision: model.PrecisionYear,
	}}

	e := extraction("aaaa", 0.95, t0)
	fact, err := NewConflictDetector(nil).Detect(context.Background(), repo, e)
	require.NoError(t, err)
	require.NotNil(t, fact)

	Flag(e, fact, t0)
	assert.Equal(t, "fact-1", *e.ConflictEventID)
	assert.Equal(t, model.ConflictDateMismatch, e.ConflictType)
	assert.False(t, e.ConflictResolved)
	assert.True(t, e.HasUnresolvedConflict())
}

func TestConflictDetector_AgreementAndScope(t *testing.T) {
	repo := newMemRepo()
	repo.facts = []model.TimelineFact{
		{ID: "f-old", LocID: "loc-1", EventType: model.EventEstablished, EventSubtype: "built", DateStart: "1920-01-01", DatePrecision: model.PrecisionYear},
		{ID: "f-match", LocID: "loc-1", EventType: model.EventEstablished, EventSubtype: "built", DateStart: "1923-06-01", DatePrecision: model.PrecisionMonth},
	}
	detector := NewConflictDetector(nil)

	// 1923 (year) agrees with June 1923 at year precision
	fact, err := detector.Detect(context.Background(), repo, extraction("aaaa", 0.9, t0))
	require.NoError(t, err)
	assert.Nil(t, fact)

	// Other location
	other := extraction("bbbb", 0.9, t0)
	other.LocID = model.StringPtr("loc-2")
	fact, err = detector.Detect(context.Background(), repo, other)
	require.NoError(t, err)
	assert.Nil(t, fact)

	// Site visits repeat and are never conflicts
	visit := extraction("cccc", 0.9, t0)
	visit.Category = model.CategorySiteVisit
	fact, err = detector.Detect(context.Background(), repo, visit)
	require.NoError(t, err)
	assert.Nil(t, fact)

	// No location
	loose := extraction("dddd", 0.9, t0)
	loose.LocID = nil
	fact, err = detector.Detect(context.Background(), repo, loose)
	require.NoError(t, err)
	assert.Nil(t, fact)
}

func TestSameDate(t *testing.T) {
	assert.True(t, SameDate("1923-01-01", model.PrecisionYear, "1923-07-04", model.PrecisionExact))
	assert.True(t, SameDate("1923-07-01", model.PrecisionMonth, "1923-07-04", model.PrecisionExact))
	assert.False(t, SameDate("1923-07-05", model.PrecisionExact, "1923-07-04", model.PrecisionExact))
	assert.False(t, SameDate("1924-01-01", model.PrecisionYear, "1923-01-01", model.PrecisionYear))
}
