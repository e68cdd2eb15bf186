package feedback

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-feedback/model"
)

// MonitoringView counts, for every participant, the feedback rows
// addressed to them against the number expected (everyone but themselves).
// Rows are counted, not distinct submitters.
func (svc *Service) MonitoringView(ctx context.Context, sessionID int64) ([]model.Completion, error) {
	participants, feedback, err := svc.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Monitor(participants, feedback), nil
}

// ReviewView groups feedback by recipient id, in participant order, with
// entries in submission order. Recipients without feedback are left out.
func (svc *Service) ReviewView(ctx context.Context, sessionID int64) ([]model.RecipientFeedback, error) {
	participants, feedback, err := svc.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Review(participants, feedback), nil
}

// LegacyReviewView groups feedback by recipient name, merging participants
// that share a name.
func (svc *Service) LegacyReviewView(ctx context.Context, sessionID int64) (map[string][]model.ReviewEntry, error) {
	participants, feedback, err := svc.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ReviewByName(participants, feedback), nil
}

// RecipientFeedback returns the feedback addressed to one participant.
func (svc *Service) RecipientFeedback(ctx context.Context, sessionID, participantID int64) (model.RecipientFeedback, error) {
	participants, feedback, err := svc.snapshot(ctx, sessionID)
	if err != nil {
		return model.RecipientFeedback{}, err
	}

	for _, p := range participants {
		if p.ID != participantID {
			continue
		}
		rf := model.RecipientFeedback{ParticipantID: p.ID, Name: p.Name, Entries: []model.ReviewEntry{}}
		for _, f := range feedback {
			if f.RecipientID == p.ID {
				rf.Entries = append(rf.Entries, reviewEntry(f))
			}
		}
		return rf, nil
	}
	return model.RecipientFeedback{}, errors.Wrapf(model.ErrNotFound, "participant %d in session %d", participantID, sessionID)
}

func (svc *Service) snapshot(ctx context.Context, sessionID int64) ([]model.Participant, []model.Feedback, error) {
	if _, err := svc.store.SessionByID(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	participants, err := svc.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	feedback, err := svc.store.ListFeedback(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return participants, feedback, nil
}

func Monitor(participants []model.Participant, feedback []model.Feedback) []model.Completion {
	expected := len(participants) - 1
	if expected < 0 {
		expected = 0
	}

	counts := make(map[int64]int, len(participants))
	for _, f := range feedback {
		counts[f.RecipientID]++
	}

	view := make([]model.Completion, 0, len(participants))
	for _, p := range participants {
		view = append(view, model.Completion{
			ParticipantID: p.ID,
			Name:          p.Name,
			Submitted:     counts[p.ID],
			Expected:      expected,
		})
	}
	return view
}

func Review(participants []model.Participant, feedback []model.Feedback) []model.RecipientFeedback {
	grouped := make(map[int64][]model.ReviewEntry)
	for _, f := range feedback {
		grouped[f.RecipientID] = append(grouped[f.RecipientID], reviewEntry(f))
	}

	// names are resolved last
	view := []model.RecipientFeedback{}
	for _, p := range participants {
		entries, ok := grouped[p.ID]
		if !ok {
			continue
		}
		view = append(view, model.RecipientFeedback{ParticipantID: p.ID, Name: p.Name, Entries: entries})
	}
	return view
}

func ReviewByName(participants []model.Participant, feedback []model.Feedback) map[string][]model.ReviewEntry {
	names := make(map[int64]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name
	}

	view := map[string][]model.ReviewEntry{}
	for _, f := range feedback {
		name, ok := names[f.RecipientID]
		if !ok {
			continue
		}
		view[name] = append(view[name], reviewEntry(f))
	}
	return view
}

func reviewEntry(f model.Feedback) model.ReviewEntry {
	return model.ReviewEntry{RecipientID: f.RecipientID, Question1: f.Question1, Question2: f.Question2}
}
