package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	ErrParseFailure             = errors.New("parse failure")
	ErrPersistence              = errors.New("persistence failure")
	ErrInvalidTransition        = errors.New("invalid transition")
	ErrInvalidPattern           = errors.New("invalid pattern")
	ErrConflictOverrideRequired = errors.New("conflict override required")
	ErrNotFound                 = errors.New("not found")
)

// Action is a requested workflow change
type Action string

const (
	ActionAutoApprove Action = "auto_approve"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionConvert     Action = "convert"
	ActionRevert      Action = "revert"
)

// TransitionError describes a status change that the state machine refused
type TransitionError struct {
	ID     string
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s extraction %s in status %s", e.Action, e.ID, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
