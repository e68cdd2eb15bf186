package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidPhase      = errors.New("invalid phase")
	ErrValidation        = errors.New("validation error")
	ErrStoreFailure      = errors.New("store failure")

	// ErrTokenTaken is returned by stores when a session token collides.
	// Callers generating tokens retry on it.
	ErrTokenTaken = errors.New("token already taken")
)

// TransitionError reports a lifecycle move that was refused.
type TransitionError struct {
	SessionID int64
	From      Phase
	To        Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session %d: cannot move from %s to %s", e.SessionID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PhaseError reports an operation attempted outside its allowed phases.
type PhaseError struct {
	SessionID int64
	Op        string
	Phase     Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("session %d: %s not allowed while %s", e.SessionID, e.Op, e.Phase)
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrInvalidPhase
}

// ValidationError names one offending entry of a feedback batch, or the
// batch itself when Index is negative.
type ValidationError struct {
	Index       int
	RecipientID int64
	Field       string
	Reason      string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("entry %d (recipient %d): %s: %s", e.Index, e.RecipientID, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

func StoreFailure(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
