package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
)

// SessionStore is the durable record store for sessions. Implementations
// must provide atomic update semantics: Create must enforce the
// one-live-session-per-(user, exam, mode) invariant, and Finalize must be a
// single guarded transition into a terminal status.
type SessionStore interface {
	// GetByID returns (nil, nil) when no session exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// GetActive returns the active or paused session for the tuple, or
	// (nil, nil) when none exists.
	GetActive(ctx context.Context, userID, examID uuid.UUID, mode model.SessionMode) (*model.Session, error)
	// Create inserts a new session. It returns false without error when a
	// live session for the same (user, exam, mode) already exists.
	Create(ctx context.Context, s *model.Session) (bool, error)
	// Update persists the mutable fields (answers, flags, position, status)
	// of a live session.
	Update(ctx context.Context, s *model.Session) error
	// Finalize atomically writes the score fields together with the terminal
	// status. It returns false without error when the session was already
	// terminal, leaving the stored record untouched.
	Finalize(ctx context.Context, s *model.Session) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	ListByUserAndExam(ctx context.Context, userID, examID uuid.UUID) ([]model.Session, error)
}

// QuestionBank supplies question records, correct answers, and objective
// metadata.
type QuestionBank interface {
	// ListActive returns the active questions of an exam in authoring order,
	// optionally restricted to the given objectives.
	ListActive(ctx context.Context, examID uuid.UUID, objectiveIDs []uuid.UUID) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	ListObjectives(ctx context.Context, examID uuid.UUID) ([]model.Objective, error)
}

// ExamStore provides read access to the exam catalog.
type ExamStore interface {
	// GetByID returns (nil, nil) when the exam does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListActive(ctx context.Context) ([]model.Exam, error)
}

// SnapshotStore reads the daily progress rows maintained by the progress
// worker.
type SnapshotStore interface {
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.ProgressSnapshot, error)
}

// ProgressQueue receives finalized-session events for asynchronous
// aggregation. Enqueue failures must never fail the submit path.
type ProgressQueue interface {
	EnqueueFinalized(ctx context.Context, s *model.Session) error
}
