package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var now = time.Date(2024, time.April, 2, 15, 4, 5, 0, time.UTC)

func pending() *model.Extraction {
	return &model.Extraction{
		ID:                "0123456789abcdef",
		LocID:             model.StringPtr("loc-1"),
		DateStart:         "1923-01-01",
		Category:          model.CategoryBuildDate,
		OverallConfidence: 0.7,
		IsPrimary:         true,
		Status:            model.StatusPending,
	}
}

func withConflict(e *model.Extraction) *model.Extraction {
	e.ConflictEventID = model.StringPtr("fact-1")
	e.ConflictType = model.ConflictDateMismatch
	return e
}

func TestStateMachine_AllowedTable(t *testing.T) {
	allowed := map[model.Status]map[model.Action]model.Status{
		model.StatusPending:      {model.ActionAutoApprove: model.StatusAutoApproved, model.ActionApprove: model.StatusUserApproved, model.ActionReject: model.StatusRejected},
		model.StatusAutoApproved: {model.ActionConvert: model.StatusConverted},
		model.StatusUserApproved: {model.ActionConvert: model.StatusConverted},
		model.StatusConverted:    {model.ActionRevert: model.StatusReverted},
	}
	actions := []model.Action{model.ActionAutoApprove, model.ActionApprove, model.ActionReject, model.ActionConvert, model.ActionRevert}

	for _, from := range model.AllStatuses {
		for _, action := range actions {
			to, ok := Next(from, action)
			want, wantOK := allowed[from][action]
			assert.Equal(t, wantOK, ok, "%s --%s-->", from, action)
			assert.Equal(t, want, to, "%s --%s-->", from, action)
		}
	}
}

func apply(e *model.Extraction, action model.Action) (*model.Extraction, error) {
	switch action {
	case model.ActionAutoApprove:
		return AutoApprove(e, "test", now)
	case model.ActionApprove:
		return Approve(e, "alice", false, now)
	case model.ActionReject:
		return Reject(e, "alice", "wrong", now)
	case model.ActionConvert:
		return Convert(e, "fact-9", now)
	default:
		return Revert(e, "alice", now)
	}
}

func TestStateMachine_InvalidTransitionsLeaveRecordUnchanged(t *testing.T) {
	actions := []model.Action{model.ActionAutoApprove, model.ActionApprove, model.ActionReject, model.ActionConvert, model.ActionRevert}

	for _, from := range model.AllStatuses {
		for _, action := range actions {
			if _, ok := Next(from, action); ok {
				continue
			}
			e := pending()
			e.Status = from
			before := e.Clone()

			out, err := apply(e, action)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, model.ErrInvalidTransition), "%s --%s--> %v", from, action, err)

			var te *model.TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, from, te.From)
			assert.Equal(t, before, e)
		}
	}
}

func TestApprove(t *testing.T) {
	e := pending()
	out, err := Approve(e, "alice", false, now)
	require.NoError(t, err)

	assert.Equal(t, model.StatusUserApproved, out.Status)
	assert.Equal(t, "alice", *out.ReviewedBy)
	assert.Equal(t, now, *out.ReviewedAt)
	assert.Equal(t, model.StatusPending, e.Status, "input must not be mutated")
}

func TestApprove_ConflictNeedsOverride(t *testing.T) {
	e := withConflict(pending())

	_, err := Approve(e, "alice", false, now)
	assert.ErrorIs(t, err, model.ErrConflictOverrideRequired)
	assert.Equal(t, model.StatusPending, e.Status)

	out, err := Approve(e, "alice", true, now)
	require.NoError(t, err)
	assert.True(t, out.ConflictResolved)
	assert.False(t, out.HasUnresolvedConflict())
	assert.False(t, e.ConflictResolved)
}

func TestAutoApprove_BlockedByConflict(t *testing.T) {
	_, err := AutoApprove(withConflict(pending()), "x", now)
	assert.ErrorIs(t, err, model.ErrConflictOverrideRequired)
}

func TestReject(t *testing.T) {
	out, err := Reject(pending(), "bob", "caption refers to a sister site", now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, out.Status)
	assert.Equal(t, "caption refers to a sister site", *out.RejectionReason)
	assert.Equal(t, "bob", *out.ReviewedBy)
}

func TestConvertAndRevert(t *testing.T) {
	approved, err := Approve(pending(), "alice", false, now)
	require.NoError(t, err)

	converted, err := Convert(approved, "fact-9", now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConverted, converted.Status)
	require.NotNil(t, converted.TimelineEventID)
	require.NotNil(t, converted.ConvertedAt)
	assert.Equal(t, "fact-9", *converted.TimelineEventID)

	later := now.Add(time.Hour)
	reverted, err := Revert(converted, "carol", later)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReverted, reverted.Status)
	assert.Nil(t, reverted.TimelineEventID)
	require.NotNil(t, reverted.RevertedAt)
	assert.Equal(t, later, *reverted.RevertedAt)
	assert.Equal(t, "carol", *reverted.RevertedBy)
	assert.Equal(t, "fact-9", *converted.TimelineEventID, "input must not be mutated")
}

func TestConvert_BlockedByUnresolvedConflict(t *testing.T) {
	e := withConflict(pending())
	e.Status = model.StatusUserApproved

	_, err := Convert(e, "fact-9", now)
	assert.ErrorIs(t, err, model.ErrConflictOverrideRequired)

	e.ConflictResolved = true
	_, err = Convert(e, "fact-9", now)
	assert.NoError(t, err)
}

func TestPolicy_Eligible(t *testing.T) {
	p := NewPolicy(model.ApprovalConfig{})

	reason, ok := p.Eligible(pending())
	assert.True(t, ok)
	assert.Contains(t, reason, "High confidence build_date")

	tests := []struct {
		name   string
		mutate func(*model.Extraction)
	}{
		{"below threshold", func(e *model.Extraction) { e.OverallConfidence = 0.59 }},
		{"category not allowed", func(e *model.Extraction) { e.Category = model.CategoryClosure }},
		{"unresolved conflict", func(e *model.Extraction) { withConflict(e) }},
		{"resolved conflict", func(e *model.Extraction) { withConflict(e).ConflictResolved = true }},
		{"not pending", func(e *model.Extraction) { e.Status = model.StatusRejected }},
	}
	for _, tt := range tests {
		e := pending()
		tt.mutate(e)
		_, ok := p.Eligible(e)
		assert.False(t, ok, tt.name)
	}

	e := pending()
	e.OverallConfidence = 0.6
	_, ok = p.Eligible(e)
	assert.True(t, ok, "threshold is inclusive")

	dup := pending()
	dup.IsPrimary = false
	dup.DuplicateOfID = model.StringPtr("fedcba9876543210")
	_, ok = p.Eligible(dup)
	assert.True(t, ok, "duplicates qualify on the same terms")
}

func TestPolicy_Configurable(t *testing.T) {
	p := NewPolicy(model.ApprovalConfig{Threshold: 0.9, Categories: []model.Category{model.CategoryClosure}})

	e := pending()
	e.Category = model.CategoryClosure
	e.OverallConfidence = 0.95
	_, ok := p.Eligible(e)
	assert.True(t, ok)

	e.Category = model.CategoryBuildDate
	_, ok = p.Eligible(e)
	assert.False(t, ok)
}
