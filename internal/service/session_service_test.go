package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/rs/zerolog"
)

type sessionFixture struct {
	*scoringFixture
	exams    *fakeExamStore
	sessions *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	base := newScoringFixture(t)

	f := &sessionFixture{scoringFixture: base}
	f.exams = &fakeExamStore{exams: []model.Exam{{
		ID:                      base.examID,
		Slug:                    "demo",
		Title:                   "Demo Exam",
		PassingScore:            70,
		DefaultTimeLimitSeconds: 1800,
		Active:                  true,
	}}}

	analytics := NewAnalyticsService(base.store, base.bank, f.exams, &fakeSnapshotStore{}, nil, time.Minute, zerolog.Nop())
	analytics.now = func() time.Time { return base.now }

	f.sessions = NewSessionService(base.store, base.bank, f.exams, base.scoring, analytics, 500, zerolog.Nop())
	f.sessions.now = func() time.Time { return base.now }
	return f
}

func TestStartCreatesSessionWithFullOrder(t *testing.T) {
	f := newSessionFixture(t)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if result.IsResuming {
		t.Error("fresh session reported as resuming")
	}
	if result.Session.Status != model.StatusActive {
		t.Errorf("status = %s, want active", result.Session.Status)
	}
	if result.Session.SelectionMode != model.SelectionSequential {
		t.Errorf("selection = %s, want sequential default", result.Session.SelectionMode)
	}
	if len(result.Session.QuestionOrder) != len(f.qids) {
		t.Errorf("order = %d questions, want %d", len(result.Session.QuestionOrder), len(f.qids))
	}
	if result.Session.TimeLimitSeconds != nil {
		t.Error("study session has a time limit")
	}
	// Study payload includes answers for immediate feedback.
	if len(result.Questions) == 0 || result.Questions[0].CorrectAnswers == nil {
		t.Error("study payload stripped of correct answers")
	}
}

func TestStartResumesExistingSession(t *testing.T) {
	f := newSessionFixture(t)

	first, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{
		SelectionMode: model.SelectionRandom, // Ignored on resume
	})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if !second.IsResuming {
		t.Error("second start did not resume")
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("resumed id = %s, want %s", second.Session.ID, first.Session.ID)
	}
	for i, id := range second.Session.QuestionOrder {
		if first.Session.QuestionOrder[i] != id {
			t.Fatal("question order changed on resume")
		}
	}
}

func TestStartTestModeBuildsShuffledTimedSession(t *testing.T) {
	f := newSessionFixture(t)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeTest, StartOptions{
		SelectionMode: model.SelectionFlagged, // Ignored in test mode
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess := result.Session
	if sess.SelectionMode != model.SelectionRandom {
		t.Errorf("selection = %s, want random in test mode", sess.SelectionMode)
	}
	if sess.TimeLimitSeconds == nil || *sess.TimeLimitSeconds != 1800 {
		t.Errorf("time limit = %v, want exam default 1800", sess.TimeLimitSeconds)
	}

	// The order is a permutation of the whole pool.
	seen := map[uuid.UUID]bool{}
	for _, id := range sess.QuestionOrder {
		seen[id] = true
	}
	if len(seen) != len(f.qids) {
		t.Fatalf("order covers %d distinct questions, want %d", len(seen), len(f.qids))
	}
	for _, id := range f.qids {
		if !seen[id] {
			t.Errorf("question %s missing from shuffled order", id)
		}
	}
}

func TestStartTestModePayloadStripsAnswers(t *testing.T) {
	f := newSessionFixture(t)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeTest, StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, q := range result.Questions {
		if q.CorrectAnswers != nil {
			t.Errorf("question %s leaks correct answers in test mode", q.ID)
		}
		if q.Explanation != "" {
			t.Errorf("question %s leaks explanation in test mode", q.ID)
		}
	}
}

func TestStartEmptyPoolFails(t *testing.T) {
	f := newSessionFixture(t)
	f.bank.questions = nil

	_, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{})
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
}

func TestStartCapsQuestionCount(t *testing.T) {
	f := newSessionFixture(t)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{
		MaxQuestions: 2,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(result.Session.QuestionOrder) != 2 {
		t.Errorf("order = %d questions, want capped at 2", len(result.Session.QuestionOrder))
	}
}

func TestStartLostRaceReturnsWinner(t *testing.T) {
	f := newSessionFixture(t)

	// The winner's row appears between the initial lookup and the insert,
	// so GetActive misses first and Create loses the race.
	winner := f.liveSession(model.ModeStudy)
	delete(f.store.sessions, winner.ID)
	f.store.createHook = func(s *model.Session) (bool, error) {
		f.store.put(winner)
		return false, nil
	}

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !result.IsResuming {
		t.Error("lost race not reported as resuming")
	}
	if result.Session.ID != winner.ID {
		t.Errorf("session id = %s, want winner %s", result.Session.ID, winner.ID)
	}
}

func TestStartIncorrectSelectionUsesHistory(t *testing.T) {
	f := newSessionFixture(t)

	prior := f.liveSession(model.ModeStudy)
	prior.Status = model.StatusSubmitted
	prior.Answers[f.qids[0]] = model.Answer{Selected: []int{0}, IsCorrect: false, AnsweredAt: f.now}
	prior.Answers[f.qids[1]] = model.Answer{Selected: []int{0, 2}, IsCorrect: true, AnsweredAt: f.now}
	f.store.put(prior)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{
		SelectionMode: model.SelectionIncorrect,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(result.Session.QuestionOrder) != 1 || result.Session.QuestionOrder[0] != f.qids[0] {
		t.Errorf("order = %v, want only the incorrectly answered question %s",
			result.Session.QuestionOrder, f.qids[0])
	}
}

func TestStartFlaggedSelectionUsesHistory(t *testing.T) {
	f := newSessionFixture(t)

	prior := f.liveSession(model.ModeStudy)
	prior.Status = model.StatusSubmitted
	prior.Flags[f.qids[2]] = true
	f.store.put(prior)

	result, err := f.sessions.Start(context.Background(), f.userID, f.examID, model.ModeStudy, StartOptions{
		SelectionMode: model.SelectionFlagged,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(result.Session.QuestionOrder) != 1 || result.Session.QuestionOrder[0] != f.qids[2] {
		t.Errorf("order = %v, want only the flagged question %s",
			result.Session.QuestionOrder, f.qids[2])
	}
}

func TestGetReactivatesPausedSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.liveSession(model.ModeStudy)
	sess.Status = model.StatusPaused
	f.store.put(sess)

	state, err := f.sessions.Get(context.Background(), sess.ID, f.userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.Session.Status != model.StatusActive {
		t.Errorf("status = %s, want active after access", state.Session.Status)
	}
}

func TestGetExpiresOverdueTestSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.liveSession(model.ModeTest)
	limit := 60
	sess.TimeLimitSeconds = &limit
	f.store.put(sess)

	state, err := f.sessions.Get(context.Background(), sess.ID, f.userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Expired {
		t.Fatal("overdue session not reported expired")
	}
	if state.Session.Status != model.StatusExpired {
		t.Errorf("status = %s, want expired", state.Session.Status)
	}
	if state.Session.Score == nil {
		t.Error("expired session carries no score")
	}
}

func TestPauseSuspendsLiveSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.liveSession(model.ModeStudy)

	paused, err := f.sessions.Pause(context.Background(), sess.ID, f.userID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.Status != model.StatusPaused {
		t.Errorf("status = %s, want paused", paused.Status)
	}

	_, err = f.sessions.Pause(context.Background(), sess.ID, uuid.New())
	if !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("foreign pause err = %v, want ErrNotSessionOwner", err)
	}
}
