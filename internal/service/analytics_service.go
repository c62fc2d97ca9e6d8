package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prepforge/prepforge-backend/internal/config"
	"github.com/prepforge/prepforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Analytics thresholds. An objective is weak below weakAccuracy and strong
// at or above strongAccuracy with at least strongMinQuestions sampled.
// The flat 70% rule is canonical; see DESIGN.md for the rationale.
const (
	weakAccuracy       = 70.0
	strongAccuracy     = 85.0
	strongMinQuestions = 5
	foundationAccuracy = 50.0
	slowSecondsPerQ    = 120.0
	trendDeltaPercent  = 5.0
	minutesPerQuestion = 3.0
)

// ComputeTrend splits an ordered series into halves and compares means.
// The second half must differ by more than 5% to leave "stable".
func ComputeTrend(series []float64) model.Trend {
	if len(series) < 2 {
		return model.TrendStable
	}
	mid := len(series) / 2
	first := mean(series[:mid])
	second := mean(series[mid:])

	if first == 0 {
		if second > 0 {
			return model.TrendIncreasing
		}
		return model.TrendStable
	}

	change := (second - first) / first * 100
	switch {
	case change > trendDeltaPercent:
		return model.TrendIncreasing
	case change < -trendDeltaPercent:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// AnalyticsService reads historical sessions across a user to compute weak
// and strong areas, generate study plans, and derive progress trends. It
// never mutates session state.
type AnalyticsService struct {
	store     SessionStore
	bank      QuestionBank
	exams     ExamStore
	snapshots SnapshotStore
	rdb       *redis.Client
	cacheTTL  time.Duration
	log       zerolog.Logger

	now func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. rdb may be nil to
// disable report caching (tests, tooling).
func NewAnalyticsService(
	store SessionStore,
	bank QuestionBank,
	exams ExamStore,
	snapshots SnapshotStore,
	rdb *redis.Client,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		store:     store,
		bank:      bank,
		exams:     exams,
		snapshots: snapshots,
		rdb:       rdb,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("component", "analytics_service").Logger(),
		now:       time.Now,
	}
}

// objectiveStats accumulates one objective's history.
type objectiveStats struct {
	examID    uuid.UUID
	total     int
	correct   int
	timeSpent int
}

// WeakAreas scans every session of a user (any exam, any mode) and ranks
// objectives by historical accuracy. Results are cached briefly since the
// scan touches the full session history.
func (s *AnalyticsService) WeakAreas(ctx context.Context, userID uuid.UUID) (*model.PerformanceReport, error) {
	cacheKey := config.CacheKey.UserWeakAreasKey(userID.String())
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached model.PerformanceReport
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, overall, err := s.collectObjectiveStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles, err := s.objectiveTitles(ctx, stats)
	if err != nil {
		return nil, err
	}

	report := &model.PerformanceReport{
		OverallAccuracy: overall.accuracy(),
		TotalQuestions:  overall.total,
		GeneratedAt:     s.now(),
	}

	for objID, st := range stats {
		insight := model.AreaInsight{
			ObjectiveID:        objID,
			ExamID:             st.examID,
			Title:              titles[objID],
			TotalQuestions:     st.total,
			CorrectAnswers:     st.correct,
			Accuracy:           st.accuracy(),
			AvgSecondsPerQuest: st.avgSeconds(),
		}
		insight.Recommendation = recommend(insight)

		switch {
		case insight.Accuracy < weakAccuracy:
			report.WeakAreas = append(report.WeakAreas, insight)
		case insight.Accuracy >= strongAccuracy && st.total >= strongMinQuestions:
			report.StrongAreas = append(report.StrongAreas, insight)
		}
	}

	sort.Slice(report.WeakAreas, func(i, j int) bool {
		return report.WeakAreas[i].Accuracy < report.WeakAreas[j].Accuracy
	})
	sort.Slice(report.StrongAreas, func(i, j int) bool {
		return report.StrongAreas[i].Accuracy > report.StrongAreas[j].Accuracy
	})

	report.FocusPlan = buildFocusPlan(report.WeakAreas)

	if s.rdb != nil {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to cache weak-area report")
			}
		}
	}

	return report, nil
}

// WeakObjectiveIDs returns the objectives currently below the weak-area
// threshold, weakest first. Used by the weak_areas selection mode.
func (s *AnalyticsService) WeakObjectiveIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	report, err := s.WeakAreas(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(report.WeakAreas))
	for i, area := range report.WeakAreas {
		ids[i] = area.ObjectiveID
	}
	return ids, nil
}

// StudyPlan produces a per-objective schedule to lift an exam score to
// targetScore, given dailyHours of study.
func (s *AnalyticsService) StudyPlan(ctx context.Context, userID, examID uuid.UUID, targetScore, dailyHours float64) (*model.StudyPlan, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	objectives, err := s.bank.ListObjectives(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	questions, err := s.bank.ListActive(ctx, examID, nil)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	totalByObjective := make(map[uuid.UUID]int)
	objectiveOf := make(map[uuid.UUID]uuid.UUID, len(questions))
	for i := range questions {
		totalByObjective[questions[i].ObjectiveID]++
		objectiveOf[questions[i].ID] = questions[i].ObjectiveID
	}

	sessions, err := s.store.ListByUserAndExam(ctx, userID, examID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	type history struct {
		attempts  int
		correct   int
		attempted map[uuid.UUID]struct{}
		incorrect map[uuid.UUID]struct{}
	}
	hist := make(map[uuid.UUID]*history)
	for i := range sessions {
		for qid, ans := range sessions[i].Answers {
			objID, ok := objectiveOf[qid]
			if !ok {
				continue
			}
			h := hist[objID]
			if h == nil {
				h = &history{
					attempted: map[uuid.UUID]struct{}{},
					incorrect: map[uuid.UUID]struct{}{},
				}
				hist[objID] = h
			}
			h.attempts++
			h.attempted[qid] = struct{}{}
			if ans.IsCorrect {
				h.correct++
			} else {
				h.incorrect[qid] = struct{}{}
			}
		}
	}

	plan := &model.StudyPlan{
		ExamID:      examID,
		TargetScore: targetScore,
		DailyHours:  dailyHours,
	}

	for _, obj := range objectives {
		total := totalByObjective[obj.ID]
		if total == 0 {
			continue
		}

		accuracy := 0.0
		attempted, incorrect := 0, 0
		if h := hist[obj.ID]; h != nil {
			if h.attempts > 0 {
				accuracy = float64(h.correct) / float64(h.attempts) * 100
			}
			attempted = len(h.attempted)
			incorrect = len(h.incorrect)
		}
		if accuracy >= targetScore {
			continue
		}

		toReview := total - attempted
		if incorrect > toReview {
			toReview = incorrect
		}
		gap := targetScore - accuracy
		hours := int(math.Ceil(float64(toReview)*minutesPerQuestion/60 + gap/10))

		plan.Sections = append(plan.Sections, model.StudyPlanSection{
			ObjectiveID:       obj.ID,
			Title:             obj.Title,
			Accuracy:          accuracy,
			QuestionsToReview: toReview,
			EstimatedHours:    hours,
			Priority:          planPriority(accuracy),
		})
		plan.TotalEstimatedHours += hours
	}

	sort.Slice(plan.Sections, func(i, j int) bool {
		pi, pj := priorityRank(plan.Sections[i].Priority), priorityRank(plan.Sections[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return plan.Sections[i].Accuracy < plan.Sections[j].Accuracy
	})

	if plan.TotalEstimatedHours > 0 {
		plan.DaysNeeded = int(math.Ceil(float64(plan.TotalEstimatedHours) / dailyHours))
	}
	plan.TargetDate = s.now().AddDate(0, 0, plan.DaysNeeded)

	return plan, nil
}

// Overview assembles the analytics dashboard: per-exam progress, accuracy
// and study-time trends, and the current week's totals.
func (s *AnalyticsService) Overview(ctx context.Context, userID uuid.UUID) (*model.AnalyticsOverview, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	// Oldest first for trend series.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	overview := &model.AnalyticsOverview{TotalSessions: len(sessions)}

	type examAgg struct {
		count    int
		best     float64
		latest   float64
		scoreSum float64
		scored   int
		last     time.Time
	}
	perExam := make(map[uuid.UUID]*examAgg)
	var scoreSeries []float64

	for i := range sessions {
		sess := &sessions[i]
		overview.TotalTimeSpent += sess.TimeSpentSeconds

		agg := perExam[sess.ExamID]
		if agg == nil {
			agg = &examAgg{}
			perExam[sess.ExamID] = agg
		}
		agg.count++
		if sess.StartedAt.After(agg.last) {
			agg.last = sess.StartedAt
		}
		if sess.Score != nil {
			score := *sess.Score
			scoreSeries = append(scoreSeries, score)
			agg.scored++
			agg.scoreSum += score
			agg.latest = score
			if score > agg.best {
				agg.best = score
			}
		}
	}

	overview.AccuracyTrend = ComputeTrend(scoreSeries)

	for examID, agg := range perExam {
		exam, err := s.exams.GetByID(ctx, examID)
		if err != nil || exam == nil {
			continue // Exam removed from the catalog
		}
		progress := model.ExamProgress{
			ExamID:        examID,
			Title:         exam.Title,
			SessionCount:  agg.count,
			BestScore:     agg.best,
			LatestScore:   agg.latest,
			LastStudiedAt: agg.last,
		}
		if agg.scored > 0 {
			progress.AverageScore = agg.scoreSum / float64(agg.scored)
		}
		overview.Exams = append(overview.Exams, progress)
	}
	sort.Slice(overview.Exams, func(i, j int) bool {
		return overview.Exams[i].LastStudiedAt.After(overview.Exams[j].LastStudiedAt)
	})

	// Daily snapshots feed the study-time trend and the weekly figures.
	now := s.now()
	snapshots, err := s.snapshots.ListRange(ctx, userID, now.AddDate(0, 0, -28), now)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var timeSeries []float64
	weekCutoff := now.AddDate(0, 0, -7)
	weeklyCorrect := 0
	for _, snap := range snapshots {
		timeSeries = append(timeSeries, float64(snap.TimeSpentSeconds))
		if snap.Day.After(weekCutoff) {
			overview.WeeklyQuestions += snap.QuestionsAnswered
			overview.WeeklyTimeSpent += snap.TimeSpentSeconds
			weeklyCorrect += snap.CorrectAnswers
		}
	}
	overview.StudyTimeTrend = ComputeTrend(timeSeries)
	if overview.WeeklyQuestions > 0 {
		overview.WeeklyAccuracy = float64(weeklyCorrect) / float64(overview.WeeklyQuestions) * 100
	}

	return overview, nil
}

// ─── internals ──────────────────────────────────────────────────────

func (st *objectiveStats) accuracy() float64 {
	if st.total == 0 {
		return 0
	}
	return float64(st.correct) / float64(st.total) * 100
}

func (st *objectiveStats) avgSeconds() float64 {
	if st.total == 0 {
		return 0
	}
	return float64(st.timeSpent) / float64(st.total)
}

// collectObjectiveStats joins every answered question of every session to
// its objective and accumulates totals.
func (s *AnalyticsService) collectObjectiveStats(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*objectiveStats, *objectiveStats, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var qids []uuid.UUID
	for i := range sessions {
		for qid := range sessions[i].Answers {
			if _, ok := seen[qid]; !ok {
				seen[qid] = struct{}{}
				qids = append(qids, qid)
			}
		}
	}

	stats := make(map[uuid.UUID]*objectiveStats)
	overall := &objectiveStats{}
	if len(qids) == 0 {
		return stats, overall, nil
	}

	questions, err := s.bank.GetByIDs(ctx, qids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve questions: %w", err)
	}
	meta := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		meta[questions[i].ID] = &questions[i]
	}

	for i := range sessions {
		for qid, ans := range sessions[i].Answers {
			q, ok := meta[qid]
			if !ok {
				continue // Question deleted since; no objective to credit
			}
			st := stats[q.ObjectiveID]
			if st == nil {
				st = &objectiveStats{examID: q.ExamID}
				stats[q.ObjectiveID] = st
			}
			st.total++
			overall.total++
			st.timeSpent += ans.TimeSpentSeconds
			overall.timeSpent += ans.TimeSpentSeconds
			if ans.IsCorrect {
				st.correct++
				overall.correct++
			}
		}
	}

	return stats, overall, nil
}

// objectiveTitles resolves titles for every objective present in stats,
// one ListObjectives call per distinct exam.
func (s *AnalyticsService) objectiveTitles(ctx context.Context, stats map[uuid.UUID]*objectiveStats) (map[uuid.UUID]string, error) {
	examIDs := make(map[uuid.UUID]struct{})
	for _, st := range stats {
		examIDs[st.examID] = struct{}{}
	}

	titles := make(map[uuid.UUID]string)
	for examID := range examIDs {
		objectives, err := s.bank.ListObjectives(ctx, examID)
		if err != nil {
			return nil, fmt.Errorf("list objectives: %w", err)
		}
		for _, obj := range objectives {
			titles[obj.ID] = obj.Title
		}
	}
	return titles, nil
}

// recommend picks the templated advice for one area.
func recommend(area model.AreaInsight) model.Recommendation {
	switch {
	case area.Accuracy < foundationAccuracy:
		return model.RecommendFoundation
	case area.Accuracy < weakAccuracy:
		return model.RecommendImprovement
	case area.AvgSecondsPerQuest > slowSecondsPerQ:
		return model.RecommendSpeed
	default:
		return model.RecommendMaintain
	}
}

// buildFocusPlan derives the single top-level directive from the ranked
// weak areas.
func buildFocusPlan(weak []model.AreaInsight) model.FocusPlan {
	ids := make([]uuid.UUID, len(weak))
	critical := 0
	for i, area := range weak {
		ids[i] = area.ObjectiveID
		if area.Accuracy < foundationAccuracy {
			critical++
		}
	}

	switch {
	case critical > 0:
		return model.FocusPlan{
			Priority:     model.FocusCritical,
			ObjectiveIDs: ids,
			Message:      fmt.Sprintf("%d area(s) are below 50%% accuracy. Rebuild fundamentals before attempting timed tests.", critical),
		}
	case len(weak) > 0:
		return model.FocusPlan{
			Priority:     model.FocusImprovement,
			ObjectiveIDs: ids,
			Message:      fmt.Sprintf("%d area(s) are below the 70%% threshold. Targeted practice should close the gap.", len(weak)),
		}
	default:
		return model.FocusPlan{
			Priority: model.FocusMaintenance,
			Message:  "All areas are at or above the weak-area threshold. Keep practicing to maintain accuracy.",
		}
	}
}

func planPriority(accuracy float64) model.PlanPriority {
	switch {
	case accuracy < foundationAccuracy:
		return model.PlanPriorityHigh
	case accuracy >= weakAccuracy:
		return model.PlanPriorityLow
	default:
		return model.PlanPriorityMedium
	}
}

func priorityRank(p model.PlanPriority) int {
	switch p {
	case model.PlanPriorityHigh:
		return 0
	case model.PlanPriorityMedium:
		return 1
	default:
		return 2
	}
}
