package store

import (
	"context"
	"database/sql"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mbolis/quick-feedback/model"
)

// SQLite is the Store backed by a migrated SQLite database. Either the
// mattn or the modernc driver may back the *sql.DB.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db}
}

func (s *SQLite) CreateSession(ctx context.Context, token, name string) (model.Session, error) {
	session := model.Session{Token: token, Name: name, Phase: model.PhaseRegistration}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO session (token, name, phase) VALUES (?, ?, ?)
		RETURNING id`,
		token,
		name,
		string(session.Phase),
	).Scan(&session.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Session{}, errors.Wrapf(model.ErrTokenTaken, "token %q", token)
		}
		return model.Session{}, model.StoreFailure("db.insert_session", err)
	}
	return session, nil
}

func (s *SQLite) SessionByToken(ctx context.Context, token string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, name, phase
		FROM session
		WHERE token = ?`,
		token,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, errors.Wrapf(model.ErrNotFound, "session %q", token)
	}
	if err != nil {
		return model.Session{}, model.StoreFailure("db.get_session_by_token", err)
	}
	return session, nil
}

func (s *SQLite) SessionByID(ctx context.Context, id int64) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, name, phase
		FROM session
		WHERE id = ?`,
		id,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, errors.Wrapf(model.ErrNotFound, "session %d", id)
	}
	if err != nil {
		return model.Session{}, model.StoreFailure("db.get_session", err)
	}
	return session, nil
}

func (s *SQLite) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, name, phase
		FROM session
		ORDER BY id`)
	if err != nil {
		return nil, model.StoreFailure("db.list_sessions", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, model.StoreFailure("db.list_sessions.scan", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("db.list_sessions", err)
	}
	return sessions, nil
}

func (s *SQLite) AddParticipant(ctx context.Context, sessionID int64, name string) (model.Participant, error) {
	p := model.Participant{SessionID: sessionID, Name: name}

	// the phase guard and the insert are one statement
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO participant (session_id, name)
		SELECT id, ? FROM session
		WHERE id = ?
			AND phase <> ?
		RETURNING id`,
		name,
		sessionID,
		string(model.PhaseClosed),
	).Scan(&p.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, model.StoreFailure("db.insert_participant", err)
	}

	session, err := s.SessionByID(ctx, sessionID)
	if err != nil {
		return model.Participant{}, err
	}
	return model.Participant{}, &model.PhaseError{SessionID: sessionID, Op: "register participant", Phase: session.Phase}
}

func (s *SQLite) ListParticipants(ctx context.Context, sessionID int64) ([]model.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name
		FROM participant
		WHERE session_id = ?
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, model.StoreFailure("db.list_participants", err)
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		p := model.Participant{}
		err = rows.Scan(&p.ID, &p.SessionID, &p.Name)
		if err != nil {
			return nil, model.StoreFailure("db.list_participants.scan", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("db.list_participants", err)
	}
	return participants, nil
}

func (s *SQLite) SetPhase(ctx context.Context, sessionID int64, from, to model.Phase) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE session
		SET phase = ?
		WHERE id = ?
			AND phase = ?`,
		string(to),
		sessionID,
		string(from),
	)
	if err != nil {
		return model.StoreFailure("db.update_phase", err)
	}
	// compare-and-set
	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreFailure("db.update_phase.verify", err)
	}
	if n > 0 {
		return nil
	}

	session, err := s.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	return transitionError(sessionID, session.Phase, to)
}

func (s *SQLite) AddFeedback(ctx context.Context, sessionID int64, entries []model.Entry) ([]model.Feedback, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.StoreFailure("db.begin_tx", err)
	}
	defer tx.Rollback()

	var rawPhase string
	err = tx.QueryRowContext(ctx, `SELECT phase FROM session WHERE id = ?`, sessionID).Scan(&rawPhase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}
	if err != nil {
		return nil, model.StoreFailure("db.insert_feedback.session", err)
	}
	phase, err := model.ParsePhase(rawPhase)
	if err != nil {
		return nil, model.StoreFailure("db.insert_feedback.session", err)
	}
	if phase != model.PhaseActive {
		return nil, &model.PhaseError{SessionID: sessionID, Op: "submit feedback", Phase: phase}
	}

	members, err := participantIDs(ctx, tx, sessionID)
	if err != nil {
		return nil, err
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feedback (session_id, recipient_id, question_1, question_2)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return nil, model.StoreFailure("db.insert_feedback.prepare", err)
	}
	defer stmt.Close()

	created := make([]model.Feedback, 0, len(entries))
	for _, e := range entries {
		f := model.Feedback{
			SessionID:   sessionID,
			RecipientID: e.RecipientID,
			Question1:   e.Question1,
			Question2:   e.Question2,
		}
		err = stmt.QueryRowContext(ctx, sessionID, e.RecipientID, e.Question1, e.Question2).Scan(&f.ID)
		if err != nil {
			return nil, model.StoreFailure("db.insert_feedback", err)
		}
		created = append(created, f)
	}

	err = tx.Commit()
	if err != nil {
		return nil, model.StoreFailure("db.insert_feedback.commit", err)
	}
	return created, nil
}

func (s *SQLite) ListFeedback(ctx context.Context, sessionID int64) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, recipient_id, question_1, question_2
		FROM feedback
		WHERE session_id = ?
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, model.StoreFailure("db.list_feedback", err)
	}
	defer rows.Close()

	feedback := []model.Feedback{}
	for rows.Next() {
		f := model.Feedback{}
		err = rows.Scan(&f.ID, &f.SessionID, &f.RecipientID, &f.Question1, &f.Question2)
		if err != nil {
			return nil, model.StoreFailure("db.list_feedback.scan", err)
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("db.list_feedback", err)
	}
	return feedback, nil
}

func (s *SQLite) DeleteSession(ctx context.Context, sessionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StoreFailure("db.begin_tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM feedback
		WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return model.StoreFailure("db.delete_session.feedback", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM participant
		WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return model.StoreFailure("db.delete_session.participants", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM session WHERE id = ?`,
		sessionID,
	)
	if err != nil {
		return model.StoreFailure("db.delete_session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StoreFailure("db.delete_session.verify", err)
	}
	if n < 1 {
		return errors.Wrapf(model.ErrNotFound, "session %d", sessionID)
	}

	err = tx.Commit()
	if err != nil {
		return model.StoreFailure("db.delete_session.commit", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.Session, error) {
	session := model.Session{}
	var phase string
	err := row.Scan(&session.ID, &session.Token, &session.Name, &phase)
	if err != nil {
		return model.Session{}, err
	}
	session.Phase, err = model.ParsePhase(phase)
	if err != nil {
		return model.Session{}, err
	}
	return session, nil
}

func participantIDs(ctx context.Context, tx *sql.Tx, sessionID int64) (map[int64]bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM participant
		WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, model.StoreFailure("db.insert_feedback.participants", err)
	}
	defer rows.Close()

	ids := map[int64]bool{}
	for rows.Next() {
		var id int64
		err = rows.Scan(&id)
		if err != nil {
			return nil, model.StoreFailure("db.insert_feedback.participants.scan", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreFailure("db.insert_feedback.participants", err)
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var moderncErr *msqlite.Error
	if errors.As(err, &moderncErr) {
		return moderncErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
