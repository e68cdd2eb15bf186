package feedback

import (
	"context"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
)

// StartSession opens the feedback round. Only a session still in
// registration can be started.
func (svc *Service) StartSession(ctx context.Context, sessionID int64) error {
	return svc.transition(ctx, sessionID, model.PhaseRegistration, model.PhaseActive)
}

// CloseSession ends the feedback round. Review stays available afterwards.
func (svc *Service) CloseSession(ctx context.Context, sessionID int64) error {
	return svc.transition(ctx, sessionID, model.PhaseActive, model.PhaseClosed)
}

// SessionStatus reports the phase of the session addressed by token, for
// participants waiting on the round to start.
func (svc *Service) SessionStatus(ctx context.Context, tok string) (model.Phase, error) {
	session, err := svc.SessionByToken(ctx, tok)
	if err != nil {
		return "", err
	}
	return session.Phase, nil
}

func (svc *Service) transition(ctx context.Context, sessionID int64, from, to model.Phase) error {
	err := svc.store.SetPhase(ctx, sessionID, from, to)
	if err != nil {
		log.WithFields(log.Fields{"session": sessionID, "to": to}).WithError(err).Debug("session.transition: refused")
		return err
	}
	log.WithFields(log.Fields{"session": sessionID, "from": from, "to": to}).Info("session.transition")
	return nil
}
