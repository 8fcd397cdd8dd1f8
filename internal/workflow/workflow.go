// Package workflow holds the approval policy and the extraction status
// state machine. Transitions never mutate their input: they return an
// updated copy or an error.
package workflow

import (
	"fmt"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// transitions is the allowed (status, action) -> status table
var transitions = map[model.Status]map[model.Action]model.Status{
	model.StatusPending: {
		model.ActionAutoApprove: model.StatusAutoApproved,
		model.ActionApprove:     model.StatusUserApproved,
		model.ActionReject:      model.StatusRejected,
	},
	model.StatusAutoApproved: {
		model.ActionConvert: model.StatusConverted,
	},
	model.StatusUserApproved: {
		model.ActionConvert: model.StatusConverted,
	},
	model.StatusConverted: {
		model.ActionRevert: model.StatusReverted,
	},
}

// Next returns the status reached by applying action in status from
func Next(from model.Status, action model.Action) (model.Status, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

func begin(e *model.Extraction, action model.Action) (*model.Extraction, model.Status, error) {
	to, ok := Next(e.Status, action)
	if !ok {
		return nil, "", &model.TransitionError{ID: e.ID, From: e.Status, Action: action}
	}
	return e.Clone(), to, nil
}

func overrideRequired(e *model.Extraction, action model.Action) error {
	return fmt.Errorf("%s extraction %s: conflicts with timeline fact %s: %w",
		action, e.ID, *e.ConflictEventID, model.ErrConflictOverrideRequired)
}

// AutoApprove marks a pending extraction as system approved
func AutoApprove(e *model.Extraction, reason string, now time.Time) (*model.Extraction, error) {
	out, to, err := begin(e, model.ActionAutoApprove)
	if err != nil {
		return nil, err
	}
	if e.HasUnresolvedConflict() {
		return nil, overrideRequired(e, model.ActionAutoApprove)
	}
	out.Status = to
	out.AutoApproveReason = &reason
	out.UpdatedAt = now
	return out, nil
}

// Approve records a human approval. An unresolved conflict must be
// explicitly overridden, which marks it resolved.
func Approve(e *model.Extraction, reviewer string, override bool, now time.Time) (*model.Extraction, error) {
	out, to, err := begin(e, model.ActionApprove)
	if err != nil {
		return nil, err
	}
	if e.HasUnresolvedConflict() {
		if !override {
			return nil, overrideRequired(e, model.ActionApprove)
		}
		out.ConflictResolved = true
	}
	out.Status = to
	out.ReviewedBy = &reviewer
	out.ReviewedAt = &now
	out.UpdatedAt = now
	return out, nil
}

// Reject records a human rejection with its reason
func Reject(e *model.Extraction, reviewer, reason string, now time.Time) (*model.Extraction, error) {
	out, to, err := begin(e, model.ActionReject)
	if err != nil {
		return nil, err
	}
	out.Status = to
	out.ReviewedBy = &reviewer
	out.ReviewedAt = &now
	out.RejectionReason = &reason
	out.UpdatedAt = now
	return out, nil
}

// Convert links an approved extraction to a timeline fact
func Convert(e *model.Extraction, factID string, now time.Time) (*model.Extraction, error) {
	out, to, err := begin(e, model.ActionConvert)
	if err != nil {
		return nil, err
	}
	if e.HasUnresolvedConflict() {
		return nil, overrideRequired(e, model.ActionConvert)
	}
	if factID == "" {
		return nil, fmt.Errorf("convert extraction %s: empty timeline fact id", e.ID)
	}
	out.Status = to
	out.TimelineEventID = &factID
	out.ConvertedAt = &now
	out.UpdatedAt = now
	return out, nil
}

// Revert unlinks a converted extraction from its timeline fact
func Revert(e *model.Extraction, reviewer string, now time.Time) (*model.Extraction, error) {
	out, to, err := begin(e, model.ActionRevert)
	if err != nil {
		return nil, err
	}
	out.Status = to
	out.TimelineEventID = nil
	out.RevertedAt = &now
	out.RevertedBy = &reviewer
	out.UpdatedAt = now
	return out, nil
}
