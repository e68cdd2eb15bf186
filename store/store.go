// Package store persists sessions, participants and feedback.
//
// Implementations enforce token uniqueness, same-session recipient
// references and all-or-nothing deletion and batch inserts. Errors are
// classified with the sentinels of package model.
package store

import (
	"context"

	"github.com/mbolis/quick-feedback/model"
)

type Store interface {
	// CreateSession inserts a session in the registration phase. It returns
	// model.ErrTokenTaken if the token is already used.
	CreateSession(ctx context.Context, token, name string) (model.Session, error)
	SessionByToken(ctx context.Context, token string) (model.Session, error)
	SessionByID(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)

	// AddParticipant registers a participant unless the session is closed.
	AddParticipant(ctx context.Context, sessionID int64, name string) (model.Participant, error)
	ListParticipants(ctx context.Context, sessionID int64) ([]model.Participant, error)

	// SetPhase moves a session from one phase to another only if it is
	// currently in from. Of two racing calls exactly one succeeds.
	SetPhase(ctx context.Context, sessionID int64, from, to model.Phase) error

	// AddFeedback inserts every entry or none. The session must be active
	// and every recipient must belong to it.
	AddFeedback(ctx context.Context, sessionID int64, entries []model.Entry) ([]model.Feedback, error)
	ListFeedback(ctx context.Context, sessionID int64) ([]model.Feedback, error)

	// DeleteSession removes a session together with its participants and
	// feedback in one step.
	DeleteSession(ctx context.Context, sessionID int64) error
}

func transitionError(sessionID int64, current, to model.Phase) error {
	return &model.TransitionError{SessionID: sessionID, From: current, To: to}
}

func recipientError(i int, e model.Entry) error {
	return &model.ValidationError{
		Index:       i,
		RecipientID: e.RecipientID,
		Field:       "recipient_id",
		Reason:      "not a participant of this session",
	}
}
