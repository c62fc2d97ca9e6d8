package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/rs/zerolog"
)

// ScoringService finalizes sessions into immutable results. Correctness is
// always recomputed here from the question bank; a client-supplied
// is_correct flag is never trusted.
type ScoringService struct {
	store SessionStore
	bank  QuestionBank
	queue ProgressQueue
	log   zerolog.Logger

	now func() time.Time
}

// NewScoringService creates a new ScoringService. queue may be nil when no
// asynchronous aggregation is wired (tests, tooling).
func NewScoringService(store SessionStore, bank QuestionBank, queue ProgressQueue, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		store: store,
		bank:  bank,
		queue: queue,
		log:   log.With().Str("component", "scoring_service").Logger(),
		now:   time.Now,
	}
}

// Submit finalizes a session on behalf of its owner. Resubmission is
// idempotent: an already-submitted session returns the stored result with no
// recomputation. A session whose time limit lapsed is finalized as expired
// and reported through ExpiredError.
func (s *ScoringService) Submit(ctx context.Context, sessionID, callerID uuid.UUID) (*model.Session, error) {
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

	switch sess.Status {
	case model.StatusSubmitted:
		return sess, nil
	case model.StatusExpired:
		return nil, ErrSessionFinalized
	}

	if finalized, expired, err := s.ExpireIfDue(ctx, sess); err != nil {
		return nil, err
	} else if expired {
		return nil, &ExpiredError{Result: finalized}
	}

	return s.finalize(ctx, sess, model.StatusSubmitted)
}

// ExpireIfDue runs the lazy expiry check on a live test session. When the
// time limit has lapsed it auto-submits with whatever answers exist and
// returns (result, true). Study sessions and in-time test sessions return
// (nil, false).
func (s *ScoringService) ExpireIfDue(ctx context.Context, sess *model.Session) (*model.Session, bool, error) {
	if sess.Status.Terminal() || !sess.ExpiredAt(s.now()) {
		return nil, false, nil
	}

	result, err := s.finalize(ctx, sess, model.StatusExpired)
	if err != nil {
		return nil, false, err
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", sess.UserID.String()).
		Int("time_limit_seconds", *sess.TimeLimitSeconds).
		Msg("Test session auto-submitted after time limit")

	return result, true, nil
}

// finalize computes the result over the full question order and writes it
// atomically with the terminal status transition.
func (s *ScoringService) finalize(ctx context.Context, sess *model.Session, terminal model.SessionStatus) (*model.Session, error) {
	questions, err := s.bank.GetByIDs(ctx, sess.QuestionOrder)
	if err != nil {
		return nil, fmt.Errorf("load questions for scoring: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	objectives, err := s.bank.ListObjectives(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load objectives: %w", err)
	}
	objectiveTitles := make(map[uuid.UUID]string, len(objectives))
	for _, obj := range objectives {
		objectiveTitles[obj.ID] = obj.Title
	}

	type bucket struct {
		correct int
		total   int
	}
	sections := make(map[uuid.UUID]*bucket)

	correct, incorrect, skipped := 0, 0, 0
	for _, qid := range sess.QuestionOrder {
		q := byID[qid]

		// Bucket by objective; questions without resolvable objective
		// metadata fall back to the exam-level bucket.
		bucketID := sess.ExamID
		if q != nil && q.ObjectiveID != uuid.Nil {
			bucketID = q.ObjectiveID
		}
		sec := sections[bucketID]
		if sec == nil {
			sec = &bucket{}
			sections[bucketID] = sec
		}
		sec.total++

		ans, answered := sess.Answers[qid]
		if !answered {
			skipped++
			continue
		}
		if q != nil && q.Grade(ans.Selected) {
			correct++
			sec.correct++
		} else {
			incorrect++
		}
	}

	total := len(sess.QuestionOrder)
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}
	passed := score >= sess.PassingScore

	now := s.now()
	timeSpent := 0
	if sess.Mode == model.ModeTest && sess.TimeLimitSeconds != nil {
		elapsed := int(now.Sub(sess.StartedAt).Seconds())
		timeSpent = int(math.Min(float64(elapsed), float64(*sess.TimeLimitSeconds)))
	} else {
		for _, ans := range sess.Answers {
			timeSpent += ans.TimeSpentSeconds
		}
	}

	sectionScores := make([]model.SectionScore, 0, len(sections))
	for _, obj := range objectives {
		sec, ok := sections[obj.ID]
		if !ok {
			continue
		}
		sectionScores = append(sectionScores, model.SectionScore{
			ObjectiveID: obj.ID,
			Title:       obj.Title,
			Correct:     sec.correct,
			Total:       sec.total,
			Percentage:  float64(sec.correct) / float64(sec.total) * 100,
		})
	}
	if sec, ok := sections[sess.ExamID]; ok {
		sectionScores = append(sectionScores, model.SectionScore{
			ObjectiveID: sess.ExamID,
			Title:       "General",
			Correct:     sec.correct,
			Total:       sec.total,
			Percentage:  float64(sec.correct) / float64(sec.total) * 100,
		})
	}

	sess.Status = terminal
	sess.SubmittedAt = &now
	sess.Score = &score
	sess.CorrectCount = correct
	sess.IncorrectCount = incorrect
	sess.SkippedCount = skipped
	sess.Passed = &passed
	sess.SectionScores = sectionScores
	sess.TimeSpentSeconds = timeSpent

	ok, err := s.store.Finalize(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}
	if !ok {
		// A concurrent submit won; return the stored result unchanged.
		stored, err := s.store.GetByID(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("reload finalized session: %w", err)
		}
		if stored == nil {
			return nil, ErrSessionNotFound
		}
		return stored, nil
	}

	if s.queue != nil {
		if err := s.queue.EnqueueFinalized(ctx, sess); err != nil {
			s.log.Warn().Err(err).
				Str("session_id", sess.ID.String()).
				Msg("Failed to enqueue progress event")
		}
	}

	return sess, nil
}
