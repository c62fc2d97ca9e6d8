package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode distinguishes study sessions (immediate per-answer feedback)
// from test sessions (timed, feedback deferred to submission).
type SessionMode string

const (
	ModeStudy SessionMode = "study"
	ModeTest  SessionMode = "test"
)

// ParseSessionMode validates a raw mode string.
func ParseSessionMode(raw string) (SessionMode, bool) {
	switch SessionMode(raw) {
	case ModeStudy, ModeTest:
		return SessionMode(raw), true
	}
	return "", false
}

// SelectionMode determines how a session's question order is built.
// Irrelevant for test mode, which always uses a filtered+shuffled pool.
type SelectionMode string

const (
	SelectionSequential SelectionMode = "sequential"
	SelectionRandom     SelectionMode = "random"
	SelectionFlagged    SelectionMode = "flagged"
	SelectionIncorrect  SelectionMode = "incorrect"
	SelectionWeakAreas  SelectionMode = "weak_areas"
	SelectionReview     SelectionMode = "review"
)

// ParseSelectionMode validates a raw selection mode string.
func ParseSelectionMode(raw string) (SelectionMode, bool) {
	switch SelectionMode(raw) {
	case SelectionSequential, SelectionRandom, SelectionFlagged,
		SelectionIncorrect, SelectionWeakAreas, SelectionReview:
		return SelectionMode(raw), true
	}
	return "", false
}

// SessionStatus enumerates session lifecycle states. submitted and expired
// are terminal: no mutation of answers, flags, or position is permitted
// once either is reached.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusSubmitted SessionStatus = "submitted"
	StatusExpired   SessionStatus = "expired"
)

// Terminal reports whether the status allows no further mutation.
func (s SessionStatus) Terminal() bool {
	return s == StatusSubmitted || s == StatusExpired
}

// Answer records a user's latest response to one question. Resubmission
// overwrites the entry; there is never more than one per question.
type Answer struct {
	Selected         []int     `json:"selected"`
	IsCorrect        bool      `json:"is_correct"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// SectionScore is the per-objective breakdown of a finalized session.
type SectionScore struct {
	ObjectiveID uuid.UUID `json:"objective_id"`
	Title       string    `json:"title"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
}

// Session is one study or test attempt by a user against an exam.
//
// QuestionOrder is immutable after creation and defines the only valid
// question ids for the session. Score fields are populated exactly once,
// at finalization, together with the terminal status.
type Session struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	ExamID        uuid.UUID           `json:"exam_id"`
	Mode          SessionMode         `json:"mode"`
	SelectionMode SelectionMode       `json:"selection_mode"`
	Status        SessionStatus       `json:"status"`
	QuestionOrder []uuid.UUID         `json:"question_order"`
	Answers       map[uuid.UUID]Answer `json:"answers"`
	Flags         map[uuid.UUID]bool  `json:"flags"`
	CurrentIndex  int                 `json:"current_index"`
	StartedAt     time.Time           `json:"started_at"`

	// Test mode only; nil means unbounded (study mode).
	TimeLimitSeconds *int `json:"time_limit_seconds,omitempty"`

	// Passing score snapshot taken from the exam at creation time, so a
	// later change to the exam cannot flip an old result.
	PassingScore float64 `json:"passing_score"`

	// Result fields, set once by the scorer.
	SubmittedAt      *time.Time     `json:"submitted_at,omitempty"`
	Score            *float64       `json:"score,omitempty"`
	CorrectCount     int            `json:"correct_count"`
	IncorrectCount   int            `json:"incorrect_count"`
	SkippedCount     int            `json:"skipped_count"`
	Passed           *bool          `json:"passed,omitempty"`
	SectionScores    []SectionScore `json:"section_scores,omitempty"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Position returns the index of a question id within the order, or -1.
func (s *Session) Position(questionID uuid.UUID) int {
	for i, id := range s.QuestionOrder {
		if id == questionID {
			return i
		}
	}
	return -1
}

// Elapsed returns wall-clock time since the session started.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// ExpiredAt reports whether a timed session has exceeded its limit at the
// given instant. Sessions without a time limit never expire.
func (s *Session) ExpiredAt(now time.Time) bool {
	if s.TimeLimitSeconds == nil {
		return false
	}
	return s.Elapsed(now) >= time.Duration(*s.TimeLimitSeconds)*time.Second
}

// RemainingSeconds returns the seconds left on a timed session, floored at
// zero. Untimed sessions return -1.
func (s *Session) RemainingSeconds(now time.Time) int {
	if s.TimeLimitSeconds == nil {
		return -1
	}
	remaining := *s.TimeLimitSeconds - int(s.Elapsed(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ─── Request payloads ───────────────────────────────────────────────

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	ExamID           uuid.UUID   `json:"exam_id" binding:"required"`
	Mode             string      `json:"mode" binding:"required,oneof=study test"`
	SelectionMode    string      `json:"selection_mode" binding:"omitempty,oneof=sequential random flagged incorrect weak_areas review"`
	MaxQuestions     int         `json:"max_questions" binding:"omitempty,min=1,max=500"`
	ObjectiveIDs     []uuid.UUID `json:"objective_ids" binding:"omitempty"`
	TimeLimitSeconds int         `json:"time_limit_seconds" binding:"omitempty,min=60,max=28800"`
}

// SubmitAnswerRequest is the payload for answering one question.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	Selected         []int     `json:"selected" binding:"required,max=26,dive,min=0,max=25"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"omitempty,min=0,max=86400"`
}

// ToggleFlagRequest marks or unmarks a question for review.
type ToggleFlagRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Flagged    *bool     `json:"flagged" binding:"required"`
}

// SetPositionRequest moves the session cursor explicitly.
type SetPositionRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
