package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepforge/prepforge-backend/internal/model"
)

// SessionRepository is the durable session store. The typed question order,
// answer map, and flag map live as JSONB columns; all (de)serialization
// happens here and nowhere above this boundary.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, exam_id, mode, selection_mode, status,
	question_order, answers, flags, current_index, started_at,
	time_limit_seconds, passing_score, submitted_at, score, correct_count,
	incorrect_count, skipped_count, passed, section_scores,
	time_spent_seconds, updated_at`

// GetByID retrieves a session, or (nil, nil) when absent.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetActive retrieves the live (active or paused) session for a
// (user, exam, mode) tuple, or (nil, nil) when none exists. The partial
// unique index guarantees at most one row can match.
func (r *SessionRepository) GetActive(ctx context.Context, userID, examID uuid.UUID, mode model.SessionMode) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND exam_id = $2 AND mode = $3
		   AND status IN ('active', 'paused')`,
		userID, examID, mode)
	return scanSession(row)
}

// Create inserts a new session. The insert is the second half of the
// look-up-then-create pair: the partial unique index on
// (user_id, exam_id, mode) over live rows turns a concurrent start into a
// no-op, reported as created=false.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) (bool, error) {
	order, answers, flags, _, err := marshalSessionBlobs(s)
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (
			id, user_id, exam_id, mode, selection_mode, status,
			question_order, answers, flags, current_index, started_at,
			time_limit_seconds, passing_score
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (user_id, exam_id, mode) WHERE status IN ('active', 'paused')
		 DO NOTHING`,
		s.ID, s.UserID, s.ExamID, s.Mode, s.SelectionMode, s.Status,
		order, answers, flags, s.CurrentIndex, s.StartedAt,
		s.TimeLimitSeconds, s.PassingScore,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Update persists the mutable fields of a live session. The status guard
// makes terminal sessions immutable at the storage layer regardless of what
// the caller holds in memory.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	_, answers, flags, _, err := marshalSessionBlobs(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE sessions
		 SET answers = $2, flags = $3, current_index = $4, status = $5, updated_at = NOW()
		 WHERE id = $1 AND status IN ('active', 'paused')`,
		s.ID, answers, flags, s.CurrentIndex, s.Status,
	)
	return err
}

// Finalize writes the score fields together with the terminal status in one
// guarded statement. It returns false when the session was already terminal,
// leaving the stored result untouched (idempotent submit).
func (r *SessionRepository) Finalize(ctx context.Context, s *model.Session) (bool, error) {
	_, answers, flags, sections, err := marshalSessionBlobs(s)
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, answers = $3, flags = $4, current_index = $5,
		     submitted_at = $6, score = $7, correct_count = $8,
		     incorrect_count = $9, skipped_count = $10, passed = $11,
		     section_scores = $12, time_spent_seconds = $13, updated_at = NOW()
		 WHERE id = $1 AND status IN ('active', 'paused')`,
		s.ID, s.Status, answers, flags, s.CurrentIndex,
		s.SubmittedAt, s.Score, s.CorrectCount,
		s.IncorrectCount, s.SkippedCount, s.Passed,
		sections, s.TimeSpentSeconds,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser retrieves all sessions for a user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListByUserAndExam retrieves a user's sessions for one exam, newest first.
func (r *SessionRepository) ListByUserAndExam(ctx context.Context, userID, examID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND exam_id = $2 ORDER BY started_at DESC`,
		userID, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ─── serialization boundary ─────────────────────────────────────────

func marshalSessionBlobs(s *model.Session) (order, answers, flags, sections []byte, err error) {
	if order, err = json.Marshal(s.QuestionOrder); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal question order: %w", err)
	}
	if answers, err = json.Marshal(s.Answers); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	if flags, err = json.Marshal(s.Flags); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal flags: %w", err)
	}
	if s.SectionScores != nil {
		if sections, err = json.Marshal(s.SectionScores); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal section scores: %w", err)
		}
	}
	return order, answers, flags, sections, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	var order, answers, flags, sections []byte

	err := row.Scan(&s.ID, &s.UserID, &s.ExamID, &s.Mode, &s.SelectionMode, &s.Status,
		&order, &answers, &flags, &s.CurrentIndex, &s.StartedAt,
		&s.TimeLimitSeconds, &s.PassingScore, &s.SubmittedAt, &s.Score, &s.CorrectCount,
		&s.IncorrectCount, &s.SkippedCount, &s.Passed, &sections,
		&s.TimeSpentSeconds, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := unmarshalSessionBlobs(s, order, answers, flags, sections); err != nil {
		return nil, err
	}
	return s, nil
}

func scanSessions(rows pgx.Rows) ([]model.Session, error) {
	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func unmarshalSessionBlobs(s *model.Session, order, answers, flags, sections []byte) error {
	if err := json.Unmarshal(order, &s.QuestionOrder); err != nil {
		return fmt.Errorf("unmarshal question order: %w", err)
	}
	s.Answers = map[uuid.UUID]model.Answer{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	s.Flags = map[uuid.UUID]bool{}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &s.Flags); err != nil {
			return fmt.Errorf("unmarshal flags: %w", err)
		}
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &s.SectionScores); err != nil {
			return fmt.Errorf("unmarshal section scores: %w", err)
		}
	}
	return nil
}
