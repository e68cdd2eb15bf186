package feedback

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/model"
)

// SubmitFeedback records one batch of answers. Either every entry is
// stored or none is; every offending entry is reported in the returned
// error, which matches model.ErrValidation.
//
// When the submission names its submitter, entries addressed to the
// submitter are rejected. Re-submitting a batch stores it again.
func (svc *Service) SubmitFeedback(ctx context.Context, sessionID int64, sub model.Submission) ([]model.Feedback, error) {
	session, err := svc.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Phase != model.PhaseActive {
		return nil, &model.PhaseError{SessionID: sessionID, Op: "submit feedback", Phase: session.Phase}
	}

	participants, err := svc.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := validateSubmission(sub, participants)
	if err != nil {
		log.WithFields(log.Fields{"session": sessionID}).WithError(err).Debug("feedback.submit: rejected")
		return nil, err
	}

	created, err := svc.store.AddFeedback(ctx, sessionID, entries)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"session": sessionID, "entries": len(created)}).Info("feedback.submitted")
	return created, nil
}

// validateSubmission returns the cleaned entries, or all problems found.
func validateSubmission(sub model.Submission, participants []model.Participant) ([]model.Entry, error) {
	if len(sub.Entries) == 0 {
		return nil, &model.ValidationError{Index: -1, Field: "entries", Reason: "must not be empty"}
	}

	members := make(map[int64]bool, len(participants))
	for _, p := range participants {
		members[p.ID] = true
	}
	if sub.SubmitterID != 0 && !members[sub.SubmitterID] {
		return nil, &model.ValidationError{Index: -1, Field: "submitter_id", Reason: "not a participant of this session"}
	}

	var merr *multierror.Error
	invalid := func(i int, e model.Entry, field, reason string) {
		merr = multierror.Append(merr, &model.ValidationError{
			Index:       i,
			RecipientID: e.RecipientID,
			Field:       field,
			Reason:      reason,
		})
	}

	entries := make([]model.Entry, len(sub.Entries))
	for i, e := range sub.Entries {
		e.Question1 = model.CleanText(e.Question1)
		e.Question2 = model.CleanText(e.Question2)
		entries[i] = e

		switch {
		case !members[e.RecipientID]:
			invalid(i, e, "recipient_id", "not a participant of this session")
		case sub.SubmitterID != 0 && e.RecipientID == sub.SubmitterID:
			invalid(i, e, "recipient_id", "self feedback is not accepted")
		}
		if reason := model.CheckText(e.Question1, model.MaxAnswerLength); reason != "" {
			invalid(i, e, "question_1", reason)
		}
		if reason := model.CheckText(e.Question2, model.MaxAnswerLength); reason != "" {
			invalid(i, e, "question_2", reason)
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return entries, nil
}
