package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
)

// fakeSessionStore is an in-memory SessionStore with the same atomicity
// semantics as the PostgreSQL implementation: one live session per
// (user, exam, mode), guarded Update, single-shot Finalize.
type fakeSessionStore struct {
	sessions map[uuid.UUID]model.Session

	// createHook, when set, overrides Create to simulate a lost race.
	createHook func(*model.Session) (bool, error)
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uuid.UUID]model.Session{}}
}

func (f *fakeSessionStore) put(s *model.Session) {
	f.sessions[s.ID] = *copySession(s)
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(&s), nil
}

func (f *fakeSessionStore) GetActive(_ context.Context, userID, examID uuid.UUID, mode model.SessionMode) (*model.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.ExamID == examID && s.Mode == mode && !s.Status.Terminal() {
			return copySession(&s), nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.Session) (bool, error) {
	if f.createHook != nil {
		return f.createHook(s)
	}
	for _, existing := range f.sessions {
		if existing.UserID == s.UserID && existing.ExamID == s.ExamID &&
			existing.Mode == s.Mode && !existing.Status.Terminal() {
			return false, nil
		}
	}
	f.put(s)
	return true, nil
}

func (f *fakeSessionStore) Update(_ context.Context, s *model.Session) error {
	stored, ok := f.sessions[s.ID]
	if !ok || stored.Status.Terminal() {
		return nil
	}
	f.put(s)
	return nil
}

func (f *fakeSessionStore) Finalize(_ context.Context, s *model.Session) (bool, error) {
	stored, ok := f.sessions[s.ID]
	if !ok || stored.Status.Terminal() {
		return false, nil
	}
	f.put(s)
	return true, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *copySession(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeSessionStore) ListByUserAndExam(_ context.Context, userID, examID uuid.UUID) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.ExamID == examID {
			out = append(out, *copySession(&s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func copySession(s *model.Session) *model.Session {
	c := *s
	c.QuestionOrder = append([]uuid.UUID(nil), s.QuestionOrder...)
	c.Answers = make(map[uuid.UUID]model.Answer, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	c.Flags = make(map[uuid.UUID]bool, len(s.Flags))
	for k, v := range s.Flags {
		c.Flags[k] = v
	}
	c.SectionScores = append([]model.SectionScore(nil), s.SectionScores...)
	return &c
}

// fakeQuestionBank serves a fixed question and objective set.
type fakeQuestionBank struct {
	questions  []model.Question
	objectives []model.Objective
}

func (f *fakeQuestionBank) ListActive(_ context.Context, examID uuid.UUID, objectiveIDs []uuid.UUID) ([]model.Question, error) {
	allowed := map[uuid.UUID]bool{}
	for _, id := range objectiveIDs {
		allowed[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID != examID || !q.Active {
			continue
		}
		if len(allowed) > 0 && !allowed[q.ObjectiveID] {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestionBank) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionBank) ListObjectives(_ context.Context, examID uuid.UUID) ([]model.Objective, error) {
	var out []model.Objective
	for _, o := range f.objectives {
		if o.ExamID == examID {
			out = append(out, o)
		}
	}
	return out, nil
}

// fakeExamStore serves a fixed exam catalog.
type fakeExamStore struct {
	exams []model.Exam
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	for i := range f.exams {
		if f.exams[i].ID == id {
			e := f.exams[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeExamStore) ListActive(_ context.Context) ([]model.Exam, error) {
	var out []model.Exam
	for _, e := range f.exams {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeSnapshotStore serves fixed daily snapshots.
type fakeSnapshotStore struct {
	snapshots []model.ProgressSnapshot
}

func (f *fakeSnapshotStore) ListRange(_ context.Context, userID uuid.UUID, from, to time.Time) ([]model.ProgressSnapshot, error) {
	var out []model.ProgressSnapshot
	for _, s := range f.snapshots {
		if s.UserID == userID && !s.Day.Before(from) && !s.Day.After(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// fakeQueue records finalized sessions pushed by the scorer.
type fakeQueue struct {
	enqueued []uuid.UUID
}

func (f *fakeQueue) EnqueueFinalized(_ context.Context, s *model.Session) error {
	f.enqueued = append(f.enqueued, s.ID)
	return nil
}
