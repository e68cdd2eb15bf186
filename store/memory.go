package store

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-feedback/model"
)

// Memory is an in-process Store. A single mutex serializes every
// operation, which gives it the same atomicity as the SQLite store.
type Memory struct {
	mu sync.Mutex

	nextID       int64
	sessions     []model.Session
	participants []model.Participant
	feedback     []model.Feedback
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) session(id int64) (int, bool) {
	for i, s := range m.sessions {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (m *Memory) CreateSession(_ context.Context, token, name string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Token == token {
			return model.Session{}, errors.Wrapf(model.ErrTokenTaken, "token %q", token)
		}
	}
	s := model.Session{ID: m.id(), Token: token, Name: name, Phase: model.PhaseRegistration}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *Memory) SessionByToken(_ context.Context, token string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return model.Session{}, errors.Wrapf(model.ErrNotFound, "session %q", token)
}

func (m *Memory) SessionByID(_ context.Context, id int64) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.session(id)
	if !ok {
		return model.Session{}, errors.Wrapf(model.ErrNotFound, "session %d", id)
	}
	return m.sessions[i], nil
}

func (m *Memory) ListSessions(context.Context) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Session{}, m.sessions...), nil
}

func (m *Memory) AddParticipant(_ context.Context, sessionID int64, name string) (model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.session(sessionID)
	if !ok {
		return model.Participant{}, errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}
	if phase := m.sessions[i].Phase; phase == model.PhaseClosed {
		return model.Participant{}, &model.PhaseError{SessionID: sessionID, Op: "register participant", Phase: phase}
	}
	p := model.Participant{ID: m.id(), SessionID: sessionID, Name: name}
	m.participants = append(m.participants, p)
	return p, nil
}

func (m *Memory) ListParticipants(_ context.Context, sessionID int64) ([]model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	participants := []model.Participant{}
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			participants = append(participants, p)
		}
	}
	return participants, nil
}

func (m *Memory) SetPhase(_ context.Context, sessionID int64, from, to model.Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.session(sessionID)
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}
	if current := m.sessions[i].Phase; current != from {
		return transitionError(sessionID, current, to)
	}
	m.sessions[i].Phase = to
	return nil
}

func (m *Memory) AddFeedback(_ context.Context, sessionID int64, entries []model.Entry) ([]model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.session(sessionID)
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}
	if phase := m.sessions[i].Phase; phase != model.PhaseActive {
		return nil, &model.PhaseError{SessionID: sessionID, Op: "submit feedback", Phase: phase}
	}

	members := map[int64]bool{}
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			members[p.ID] = true
		}
	}
	var merr *multierror.Error
	for i, e := range entries {
		if !members[e.RecipientID] {
			merr = multierror.Append(merr, recipientError(i, e))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	created := make([]model.Feedback, 0, len(entries))
	for _, e := range entries {
		created = append(created, model.Feedback{
			ID:          m.id(),
			SessionID:   sessionID,
			RecipientID: e.RecipientID,
			Question1:   e.Question1,
			Question2:   e.Question2,
		})
	}
	m.feedback = append(m.feedback, created...)
	return created, nil
}

func (m *Memory) ListFeedback(_ context.Context, sessionID int64) ([]model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feedback := []model.Feedback{}
	for _, f := range m.feedback {
		if f.SessionID == sessionID {
			feedback = append(feedback, f)
		}
	}
	return feedback, nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.session(sessionID)
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}
	m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)

	participants := m.participants[:0]
	for _, p := range m.participants {
		if p.SessionID != sessionID {
			participants = append(participants, p)
		}
	}
	m.participants = participants

	feedback := m.feedback[:0]
	for _, f := range m.feedback {
		if f.SessionID != sessionID {
			feedback = append(feedback, f)
		}
	}
	m.feedback = feedback
	return nil
}
