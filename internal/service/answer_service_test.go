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

func newAnswerService(f *scoringFixture) *AnswerService {
	svc := NewAnswerService(f.store, f.bank, f.scoring, zerolog.Nop())
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestSubmitAnswerGradesBySetEquality(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	cases := []struct {
		name     string
		selected []int
		want     bool
	}{
		{"exact match reversed order", []int{2, 0}, true},
		{"partial selection", []int{0}, false},
		{"superset", []int{0, 1, 2}, false},
		{"duplicates collapse", []int{0, 2, 2}, true},
	}

	// qids[1] requires {0, 2}.
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[1], tc.selected, 10)
			if err != nil {
				t.Fatalf("SubmitAnswer: %v", err)
			}
			if fb.IsCorrect == nil || *fb.IsCorrect != tc.want {
				t.Errorf("is_correct = %v, want %v", fb.IsCorrect, tc.want)
			}
		})
	}
}

func TestSubmitAnswerStudyModeFeedback(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	fb, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 12)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if fb.IsCorrect == nil || !*fb.IsCorrect {
		t.Error("study feedback missing correctness")
	}
	if len(fb.CorrectAnswers) == 0 {
		t.Error("study feedback missing correct answers")
	}
	if fb.NextQuestion == nil || fb.NextQuestion.ID != f.qids[1] {
		t.Errorf("next question = %v, want %s", fb.NextQuestion, f.qids[1])
	}
}

func TestSubmitAnswerTestModeLeaksNothing(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeTest)

	fb, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 12)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if !fb.Recorded {
		t.Error("answer not acknowledged")
	}
	if fb.IsCorrect != nil {
		t.Error("test-mode feedback leaks correctness")
	}
	if fb.CorrectAnswers != nil {
		t.Error("test-mode feedback leaks correct answers")
	}
	if fb.Explanation != "" {
		t.Error("test-mode feedback leaks explanation")
	}
	if fb.NextQuestion != nil {
		t.Error("test-mode feedback leaks next-question payload")
	}

	// Correctness is still graded and stored server-side.
	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if !stored.Answers[f.qids[0]].IsCorrect {
		t.Error("stored answer not graded")
	}
}

func TestSubmitAnswerCursorAdvancesOnlyInOrder(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	// Answering out of order leaves the cursor alone.
	fb, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[2], []int{3}, 5)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if fb.CurrentIndex != 0 {
		t.Errorf("cursor = %d after out-of-order answer, want 0", fb.CurrentIndex)
	}

	// Answering at the cursor advances it.
	fb, err = svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 5)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if fb.CurrentIndex != 1 {
		t.Errorf("cursor = %d after in-order answer, want 1", fb.CurrentIndex)
	}
}

func TestSubmitAnswerOverwritesPrevious(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	if _, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{0}, 5); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 7); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if len(stored.Answers) != 1 {
		t.Fatalf("answers = %d, want 1 (overwrite, not append)", len(stored.Answers))
	}
	ans := stored.Answers[f.qids[0]]
	if !ans.IsCorrect || len(ans.Selected) != 1 || ans.Selected[0] != 1 {
		t.Errorf("stored answer = %+v, want latest submission", ans)
	}
}

func TestSubmitAnswerRejectsFinalizedSession(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)
	sess.Status = model.StatusSubmitted
	f.store.put(sess)

	_, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 5)
	if !errors.Is(err, ErrSessionFinalized) {
		t.Errorf("err = %v, want ErrSessionFinalized", err)
	}
}

func TestSubmitAnswerOnExpiredSessionRecordsNothing(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeTest)
	limit := 60
	sess.TimeLimitSeconds = &limit
	f.store.put(sess)

	_, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, f.qids[0], []int{1}, 5)

	var expired *ExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want ExpiredError", err)
	}

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if stored.Status != model.StatusExpired {
		t.Errorf("stored status = %s, want expired", stored.Status)
	}
	if len(stored.Answers) != 0 {
		t.Errorf("late answer was recorded: %v", stored.Answers)
	}
}

func TestSubmitAnswerRejectsQuestionOutsideOrder(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	_, err := svc.SubmitAnswer(context.Background(), sess.ID, f.userID, uuid.New(), []int{0}, 5)
	if !errors.Is(err, ErrQuestionNotInSession) {
		t.Fatalf("err = %v, want ErrQuestionNotInSession", err)
	}

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if len(stored.Answers) != 0 {
		t.Error("rejected answer mutated the session")
	}
}

func TestToggleFlag(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	if _, err := svc.ToggleFlag(context.Background(), sess.ID, f.userID, f.qids[1], true); err != nil {
		t.Fatalf("ToggleFlag on: %v", err)
	}
	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if !stored.Flags[f.qids[1]] {
		t.Error("flag not set")
	}

	if _, err := svc.ToggleFlag(context.Background(), sess.ID, f.userID, f.qids[1], false); err != nil {
		t.Fatalf("ToggleFlag off: %v", err)
	}
	stored, _ = f.store.GetByID(context.Background(), sess.ID)
	if stored.Flags[f.qids[1]] {
		t.Error("flag not cleared")
	}
}

func TestSetPositionBounds(t *testing.T) {
	f := newScoringFixture(t)
	svc := newAnswerService(f)
	sess := f.liveSession(model.ModeStudy)

	// len(order) is a valid cursor: "past the last question".
	if _, err := svc.SetPosition(context.Background(), sess.ID, f.userID, len(f.qids)); err != nil {
		t.Errorf("SetPosition(len) = %v, want ok", err)
	}

	_, err := svc.SetPosition(context.Background(), sess.ID, f.userID, len(f.qids)+1)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
}
