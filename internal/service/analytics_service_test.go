package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestComputeTrend(t *testing.T) {
	cases := []struct {
		name   string
		series []float64
		want   model.Trend
	}{
		{"empty", nil, model.TrendStable},
		{"single point", []float64{80}, model.TrendStable},
		{"flat", []float64{70, 70, 70, 70}, model.TrendStable},
		{"rising", []float64{70, 70, 85, 85}, model.TrendIncreasing},
		{"falling", []float64{85, 85, 70, 70}, model.TrendDecreasing},
		{"within 5 percent band", []float64{70, 70, 72, 72}, model.TrendStable},
		{"from zero", []float64{0, 0, 40, 40}, model.TrendIncreasing},
		{"all zero", []float64{0, 0, 0, 0}, model.TrendStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeTrend(tc.series); got != tc.want {
				t.Errorf("ComputeTrend(%v) = %s, want %s", tc.series, got, tc.want)
			}
		})
	}
}

type analyticsFixture struct {
	*sessionFixture
	analytics *AnalyticsService
	snapshots *fakeSnapshotStore
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	t.Helper()
	base := newSessionFixture(t)

	f := &analyticsFixture{sessionFixture: base, snapshots: &fakeSnapshotStore{}}
	f.analytics = NewAnalyticsService(base.store, base.bank, base.exams, f.snapshots, nil, time.Minute, zerolog.Nop())
	f.analytics.now = func() time.Time { return base.now }
	return f
}

// submittedSession stores a finished session with the given per-question
// outcomes keyed by question id.
func (f *analyticsFixture) submittedSession(startedAt time.Time, score float64, outcomes map[uuid.UUID]bool) {
	sess := &model.Session{
		ID:            uuid.New(),
		UserID:        f.userID,
		ExamID:        f.examID,
		Mode:          model.ModeStudy,
		SelectionMode: model.SelectionSequential,
		Status:        model.StatusSubmitted,
		QuestionOrder: append([]uuid.UUID(nil), f.qids...),
		Answers:       map[uuid.UUID]model.Answer{},
		Flags:         map[uuid.UUID]bool{},
		StartedAt:     startedAt,
		PassingScore:  70,
		Score:         &score,
	}
	for qid, correct := range outcomes {
		sess.Answers[qid] = model.Answer{
			Selected:         []int{0},
			IsCorrect:        correct,
			TimeSpentSeconds: 30,
			AnsweredAt:       startedAt,
		}
	}
	f.store.put(sess)
}

func TestWeakAreasClassification(t *testing.T) {
	f := newAnalyticsFixture(t)

	// Objective A (qids 0 and 1): repeatedly answered, always correct →
	// strong once the sample is big enough. Objective B (qid 2): always
	// wrong → weak.
	for i := 0; i < 3; i++ {
		f.submittedSession(f.now.Add(time.Duration(-i)*time.Hour), 66, map[uuid.UUID]bool{
			f.qids[0]: true,
			f.qids[1]: true,
			f.qids[2]: false,
		})
	}

	report, err := f.analytics.WeakAreas(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("WeakAreas: %v", err)
	}

	if len(report.WeakAreas) != 1 || report.WeakAreas[0].ObjectiveID != f.objB {
		t.Fatalf("weak areas = %+v, want only objective B", report.WeakAreas)
	}
	if report.WeakAreas[0].Accuracy != 0 {
		t.Errorf("objective B accuracy = %v, want 0", report.WeakAreas[0].Accuracy)
	}
	if report.WeakAreas[0].Recommendation != model.RecommendFoundation {
		t.Errorf("recommendation = %s, want foundation below 50%%", report.WeakAreas[0].Recommendation)
	}

	// Objective A: 6 answered, all correct → strong (n >= 5, accuracy >= 85).
	if len(report.StrongAreas) != 1 || report.StrongAreas[0].ObjectiveID != f.objA {
		t.Fatalf("strong areas = %+v, want only objective A", report.StrongAreas)
	}

	if report.FocusPlan.Priority != model.FocusCritical {
		t.Errorf("focus priority = %s, want critical with a sub-50%% area", report.FocusPlan.Priority)
	}

	wantOverall := 100.0 * 6 / 9
	if diff := report.OverallAccuracy - wantOverall; diff > 0.01 || diff < -0.01 {
		t.Errorf("overall accuracy = %v, want %v", report.OverallAccuracy, wantOverall)
	}
}

func TestWeakAreasSmallStrongSampleExcluded(t *testing.T) {
	f := newAnalyticsFixture(t)

	// One perfect session: accuracy 100 on objective A but only 2 samples,
	// below the strong-area minimum of 5.
	f.submittedSession(f.now, 100, map[uuid.UUID]bool{
		f.qids[0]: true,
		f.qids[1]: true,
	})

	report, err := f.analytics.WeakAreas(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("WeakAreas: %v", err)
	}
	if len(report.StrongAreas) != 0 {
		t.Errorf("strong areas = %+v, want none below the sample minimum", report.StrongAreas)
	}
	if report.FocusPlan.Priority != model.FocusMaintenance {
		t.Errorf("focus priority = %s, want maintenance with no weak areas", report.FocusPlan.Priority)
	}
}

func TestStudyPlanFormulas(t *testing.T) {
	f := newAnalyticsFixture(t)

	// Objective A history: 4 attempts over 2 questions, 1 correct → 25%.
	// qids[0] incorrect twice, qids[1] once wrong once right.
	f.submittedSession(f.now.Add(-2*time.Hour), 40, map[uuid.UUID]bool{
		f.qids[0]: false,
		f.qids[1]: false,
	})
	f.submittedSession(f.now.Add(-time.Hour), 60, map[uuid.UUID]bool{
		f.qids[0]: false,
		f.qids[1]: true,
	})

	plan, err := f.analytics.StudyPlan(context.Background(), f.userID, f.examID, 80, 2)
	if err != nil {
		t.Fatalf("StudyPlan: %v", err)
	}

	if len(plan.Sections) != 2 {
		t.Fatalf("sections = %d, want objective A and untouched objective B", len(plan.Sections))
	}

	// Untouched objective B sorts first: high priority at 0% accuracy.
	secB := plan.Sections[0]
	if secB.ObjectiveID != f.objB || secB.Priority != model.PlanPriorityHigh {
		t.Errorf("first section = %+v, want objective B at high priority", secB)
	}
	// B: 1 question total, 0 attempted → review 1; gap 80 → ceil(0.05 + 8) = 9.
	if secB.QuestionsToReview != 1 || secB.EstimatedHours != 9 {
		t.Errorf("objective B = review %d / %dh, want 1 / 9h", secB.QuestionsToReview, secB.EstimatedHours)
	}

	secA := plan.Sections[1]
	if secA.ObjectiveID != f.objA {
		t.Fatalf("second section = %+v, want objective A", secA)
	}
	if secA.Accuracy != 25 {
		t.Errorf("objective A accuracy = %v, want 25", secA.Accuracy)
	}
	// A: 2 total, 2 attempted, 2 distinct incorrect → review max(0, 2) = 2.
	if secA.QuestionsToReview != 2 {
		t.Errorf("objective A review = %d, want 2", secA.QuestionsToReview)
	}
	// Gap 55 → ceil(2*3/60 + 5.5) = ceil(5.6) = 6.
	if secA.EstimatedHours != 6 {
		t.Errorf("objective A hours = %d, want 6", secA.EstimatedHours)
	}

	if plan.TotalEstimatedHours != 15 {
		t.Errorf("total hours = %d, want 15", plan.TotalEstimatedHours)
	}
	// 15 hours at 2 per day → 8 days.
	if plan.DaysNeeded != 8 {
		t.Errorf("days needed = %d, want 8", plan.DaysNeeded)
	}
	if want := f.now.AddDate(0, 0, 8); !plan.TargetDate.Equal(want) {
		t.Errorf("target date = %v, want %v", plan.TargetDate, want)
	}
}

func TestStudyPlanSkipsMasteredObjectives(t *testing.T) {
	f := newAnalyticsFixture(t)

	// Everything correct; accuracy 100 meets any target.
	f.submittedSession(f.now, 100, map[uuid.UUID]bool{
		f.qids[0]: true,
		f.qids[1]: true,
		f.qids[2]: true,
	})

	plan, err := f.analytics.StudyPlan(context.Background(), f.userID, f.examID, 80, 2)
	if err != nil {
		t.Fatalf("StudyPlan: %v", err)
	}
	if len(plan.Sections) != 0 {
		t.Errorf("sections = %+v, want none when every objective meets the target", plan.Sections)
	}
	if plan.DaysNeeded != 0 {
		t.Errorf("days needed = %d, want 0", plan.DaysNeeded)
	}
}

func TestOverviewAggregates(t *testing.T) {
	f := newAnalyticsFixture(t)

	f.submittedSession(f.now.Add(-3*time.Hour), 60, map[uuid.UUID]bool{f.qids[0]: true})
	f.submittedSession(f.now.Add(-2*time.Hour), 70, map[uuid.UUID]bool{f.qids[0]: true})
	f.submittedSession(f.now.Add(-time.Hour), 90, map[uuid.UUID]bool{f.qids[0]: true})
	f.submittedSession(f.now, 95, map[uuid.UUID]bool{f.qids[0]: true})

	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	f.snapshots.snapshots = []model.ProgressSnapshot{
		{UserID: f.userID, Day: day, QuestionsAnswered: 20, CorrectAnswers: 15, TimeSpentSeconds: 1200},
		{UserID: f.userID, Day: day.AddDate(0, 0, 1), QuestionsAnswered: 10, CorrectAnswers: 9, TimeSpentSeconds: 600},
	}

	overview, err := f.analytics.Overview(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if overview.TotalSessions != 4 {
		t.Errorf("total sessions = %d, want 4", overview.TotalSessions)
	}
	if overview.AccuracyTrend != model.TrendIncreasing {
		t.Errorf("accuracy trend = %s, want increasing for 60,70 -> 90,95", overview.AccuracyTrend)
	}

	if len(overview.Exams) != 1 {
		t.Fatalf("exams = %d, want 1", len(overview.Exams))
	}
	exam := overview.Exams[0]
	if exam.BestScore != 95 || exam.LatestScore != 95 {
		t.Errorf("best/latest = %v/%v, want 95/95", exam.BestScore, exam.LatestScore)
	}
	if diff := exam.AverageScore - 78.75; diff > 0.01 || diff < -0.01 {
		t.Errorf("average = %v, want 78.75", exam.AverageScore)
	}

	if overview.WeeklyQuestions != 30 || overview.WeeklyTimeSpent != 1800 {
		t.Errorf("weekly = %dq/%ds, want 30/1800", overview.WeeklyQuestions, overview.WeeklyTimeSpent)
	}
	if overview.WeeklyAccuracy != 80 {
		t.Errorf("weekly accuracy = %v, want 80", overview.WeeklyAccuracy)
	}
}

func TestWeakObjectiveIDsOrderedWeakestFirst(t *testing.T) {
	f := newAnalyticsFixture(t)

	// Objective A: 50% (weak). Objective B: 0% (weaker).
	f.submittedSession(f.now.Add(-time.Hour), 50, map[uuid.UUID]bool{
		f.qids[0]: true,
		f.qids[1]: false,
		f.qids[2]: false,
	})

	ids, err := f.analytics.WeakObjectiveIDs(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("WeakObjectiveIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want both objectives weak", ids)
	}
	if ids[0] != f.objB || ids[1] != f.objA {
		t.Errorf("order = %v, want weakest (B) first", ids)
	}
}
