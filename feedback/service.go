// Package feedback runs peer-feedback sessions: session creation and
// registration, the registration/active/closed lifecycle, batch feedback
// recording and the completion and review projections.
//
// The Service holds no state of its own. Every call reads or writes through
// the injected store.Store, so views always reflect current contents.
package feedback

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
	"github.com/mbolis/quick-feedback/store"
	"github.com/mbolis/quick-feedback/token"
)

// maxTokenAttempts bounds the retries on token collisions.
const maxTokenAttempts = 10

type Service struct {
	store  store.Store
	tokens token.Generator
}

func NewService(s store.Store, tokens token.Generator) *Service {
	return &Service{store: s, tokens: tokens}
}

// CreateSession opens a new session in the registration phase under a
// fresh token. Token collisions are retried internally.
func (svc *Service) CreateSession(ctx context.Context, name string) (model.Session, error) {
	name = model.CleanText(name)
	if reason := model.CheckText(name, model.MaxNameLength); reason != "" {
		return model.Session{}, &model.ValidationError{Index: -1, Field: "name", Reason: reason}
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		session, err := svc.store.CreateSession(ctx, svc.tokens.Generate(), name)
		if errors.Is(err, model.ErrTokenTaken) {
			log.WithFields(log.Fields{"attempt": attempt}).Debug("session.create: token collision")
			continue
		}
		if err != nil {
			return model.Session{}, err
		}

		log.WithFields(log.Fields{"session": session.ID, "token": session.Token}).Info("session.created")
		return session, nil
	}
	return model.Session{}, model.StoreFailure("session.create", errors.Errorf("no free token after %d attempts", maxTokenAttempts))
}

func (svc *Service) SessionByToken(ctx context.Context, tok string) (model.Session, error) {
	if !token.Valid(tok) {
		return model.Session{}, errors.Wrapf(model.ErrNotFound, "session %q", tok)
	}
	return svc.store.SessionByToken(ctx, tok)
}

func (svc *Service) SessionByID(ctx context.Context, id int64) (model.Session, error) {
	return svc.store.SessionByID(ctx, id)
}

func (svc *Service) ListSessions(ctx context.Context) ([]model.Session, error) {
	return svc.store.ListSessions(ctx)
}

// RegisterParticipant adds a participant while the session is in
// registration or active. Names need not be unique.
func (svc *Service) RegisterParticipant(ctx context.Context, sessionID int64, name string) (model.Participant, error) {
	name = model.CleanText(name)
	if reason := model.CheckText(name, model.MaxNameLength); reason != "" {
		return model.Participant{}, &model.ValidationError{Index: -1, Field: "name", Reason: reason}
	}

	p, err := svc.store.AddParticipant(ctx, sessionID, name)
	if err != nil {
		return model.Participant{}, err
	}
	log.WithFields(log.Fields{"session": sessionID, "participant": p.ID}).Info("participant.registered")
	return p, nil
}

func (svc *Service) ListParticipants(ctx context.Context, sessionID int64) ([]model.Participant, error) {
	if _, err := svc.store.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.store.ListParticipants(ctx, sessionID)
}

func (svc *Service) ListFeedback(ctx context.Context, sessionID int64) ([]model.Feedback, error) {
	if _, err := svc.store.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.store.ListFeedback(ctx, sessionID)
}

// DeleteSession removes the session with all its participants and
// feedback.
func (svc *Service) DeleteSession(ctx context.Context, sessionID int64) error {
	err := svc.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"session": sessionID}).Info("session.deleted")
	return nil
}
