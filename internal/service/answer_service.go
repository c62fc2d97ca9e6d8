package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/rs/zerolog"
)

// AnswerFeedback is the result of recording one answer. Study mode carries
// immediate feedback; test mode is a bare acknowledgment — correct answers
// and explanations must never appear in a test-mode payload before
// submission.
type AnswerFeedback struct {
	QuestionID     uuid.UUID           `json:"question_id"`
	Recorded       bool                `json:"recorded"`
	CurrentIndex   int                 `json:"current_index"`
	IsCorrect      *bool               `json:"is_correct,omitempty"`
	CorrectAnswers []int               `json:"correct_answers,omitempty"`
	Explanation    string              `json:"explanation,omitempty"`
	NextQuestion   *model.QuestionView `json:"next_question,omitempty"`
}

// AnswerService validates and records answers, flags, and cursor moves
// against a live session.
type AnswerService struct {
	store   SessionStore
	bank    QuestionBank
	scoring *ScoringService
	log     zerolog.Logger

	now func() time.Time
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(store SessionStore, bank QuestionBank, scoring *ScoringService, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		store:   store,
		bank:    bank,
		scoring: scoring,
		log:     log.With().Str("component", "answer_service").Logger(),
		now:     time.Now,
	}
}

// SubmitAnswer records (or overwrites) the answer for one question.
// Correctness is decided by set equality against the question's correct
// answer indices. The session cursor advances only when the caller is
// answering in natural order.
func (s *AnswerService) SubmitAnswer(ctx context.Context, sessionID, callerID, questionID uuid.UUID, selected []int, timeSpentSeconds int) (*AnswerFeedback, error) {
	sess, err := s.loadLive(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}

	pos := sess.Position(questionID)
	if pos < 0 {
		return nil, ErrQuestionNotInSession
	}

	questions, err := s.bank.GetByIDs(ctx, []uuid.UUID{questionID})
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrQuestionNotInSession
	}
	question := &questions[0]

	answer := model.Answer{
		Selected:         append([]int(nil), selected...),
		IsCorrect:        question.Grade(selected),
		TimeSpentSeconds: timeSpentSeconds,
		AnsweredAt:       s.now(),
	}
	sess.Answers[questionID] = answer

	if pos == sess.CurrentIndex && sess.CurrentIndex < len(sess.QuestionOrder) {
		sess.CurrentIndex = pos + 1
	}

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	feedback := &AnswerFeedback{
		QuestionID:   questionID,
		Recorded:     true,
		CurrentIndex: sess.CurrentIndex,
	}

	if sess.Mode == model.ModeStudy {
		isCorrect := answer.IsCorrect
		feedback.IsCorrect = &isCorrect
		feedback.CorrectAnswers = question.CorrectAnswers
		feedback.Explanation = question.Explanation

		if next := s.nextQuestion(ctx, sess); next != nil {
			feedback.NextQuestion = next
		}
	}

	return feedback, nil
}

// ToggleFlag marks or unmarks a question for review. Pure metadata; no
// scoring impact.
func (s *AnswerService) ToggleFlag(ctx context.Context, sessionID, callerID, questionID uuid.UUID, flagged bool) (*model.Session, error) {
	sess, err := s.loadLive(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}

	if sess.Position(questionID) < 0 {
		return nil, ErrQuestionNotInSession
	}

	sess.Flags[questionID] = flagged
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// SetPosition moves the session cursor explicitly. The index must lie in
// [0, len(questionOrder)].
func (s *AnswerService) SetPosition(ctx context.Context, sessionID, callerID uuid.UUID, index int) (*model.Session, error) {
	sess, err := s.loadLive(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index > len(sess.QuestionOrder) {
		return nil, ErrIndexOutOfRange
	}

	sess.CurrentIndex = index
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// loadLive fetches an owned session and rejects every mutation path for
// terminal or just-expired sessions. No partial mutation happens on error.
func (s *AnswerService) loadLive(ctx context.Context, sessionID, callerID uuid.UUID) (*model.Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.UserID != callerID {
		return nil, ErrNotSessionOwner
	}
	if sess.Status.Terminal() {
		return nil, ErrSessionFinalized
	}

	if finalized, expired, err := s.scoring.ExpireIfDue(ctx, sess); err != nil {
		return nil, err
	} else if expired {
		return nil, &ExpiredError{Result: finalized}
	}

	return sess, nil
}

// nextQuestion returns the study payload for the question at the cursor, if
// any. Failures here degrade to "no next question" rather than failing a
// recorded answer.
func (s *AnswerService) nextQuestion(ctx context.Context, sess *model.Session) *model.QuestionView {
	if sess.CurrentIndex >= len(sess.QuestionOrder) {
		return nil
	}
	nextID := sess.QuestionOrder[sess.CurrentIndex]
	questions, err := s.bank.GetByIDs(ctx, []uuid.UUID{nextID})
	if err != nil || len(questions) == 0 {
		s.log.Warn().Err(err).Str("question_id", nextID.String()).Msg("Failed to load next question")
		return nil
	}
	view := questions[0].View(true)
	return &view
}
