package model

import (
	"github.com/pkg/errors"
)

type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseActive       Phase = "active"
	PhaseClosed       Phase = "closed"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseRegistration, PhaseActive, PhaseClosed:
		return true
	}
	return false
}

// ParsePhase accepts the persisted form of a phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", errors.Errorf("unknown phase %q", s)
	}
	return p, nil
}

type Session struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Phase Phase  `json:"phase"`
}

type Participant struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Name      string `json:"name"`
}

type Feedback struct {
	ID          int64  `json:"id"`
	SessionID   int64  `json:"session_id"`
	RecipientID int64  `json:"recipient_id"`
	Question1   string `json:"question_1"`
	Question2   string `json:"question_2"`
}

// Entry is one recipient-scoped answer pair inside a submission batch.
type Entry struct {
	RecipientID int64  `json:"recipient_id" form:"recipient_id"`
	Question1   string `json:"question_1" form:"question_1"`
	Question2   string `json:"question_2" form:"question_2"`
}

// Submission is the batch one participant sends for all recipients.
// SubmitterID is optional and never persisted.
type Submission struct {
	SubmitterID int64   `json:"submitter_id,omitempty" form:"submitter_id"`
	Entries     []Entry `json:"entries" form:"entries"`
}

type Completion struct {
	ParticipantID int64  `json:"participant_id"`
	Name          string `json:"name"`
	Submitted     int    `json:"submitted"`
	Expected      int    `json:"expected"`
}

func (c Completion) Done() bool {
	return c.Submitted >= c.Expected
}

type ReviewEntry struct {
	RecipientID int64  `json:"recipient_id"`
	Question1   string `json:"question_1"`
	Question2   string `json:"question_2"`
}

type RecipientFeedback struct {
	ParticipantID int64         `json:"participant_id"`
	Name          string        `json:"name"`
	Entries       []ReviewEntry `json:"entries"`
}
