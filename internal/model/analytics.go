package model

import (
	"time"

	"github.com/google/uuid"
)

// Trend is the direction of a numeric series over time.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Recommendation is the templated advice attached to an area insight.
type Recommendation string

const (
	RecommendFoundation  Recommendation = "foundation"
	RecommendImprovement Recommendation = "improvement"
	RecommendSpeed       Recommendation = "speed"
	RecommendMaintain    Recommendation = "maintain"
)

// AreaInsight is one objective's historical performance across all of a
// user's sessions.
type AreaInsight struct {
	ObjectiveID        uuid.UUID      `json:"objective_id"`
	ExamID             uuid.UUID      `json:"exam_id"`
	Title              string         `json:"title"`
	TotalQuestions     int            `json:"total_questions"`
	CorrectAnswers     int            `json:"correct_answers"`
	Accuracy           float64        `json:"accuracy"`
	AvgSecondsPerQuest float64        `json:"avg_seconds_per_question"`
	Recommendation     Recommendation `json:"recommendation"`
}

// FocusPriority classifies how urgently a user needs to study.
type FocusPriority string

const (
	FocusCritical    FocusPriority = "critical"
	FocusImprovement FocusPriority = "improvement"
	FocusMaintenance FocusPriority = "maintenance"
)

// FocusPlan is the single top-level study directive derived from the
// weak-area scan.
type FocusPlan struct {
	Priority   FocusPriority `json:"priority"`
	ObjectiveIDs []uuid.UUID `json:"objective_ids"`
	Message    string        `json:"message"`
}

// PerformanceReport is the full weak/strong area breakdown for a user.
type PerformanceReport struct {
	WeakAreas       []AreaInsight `json:"weak_areas"`
	StrongAreas     []AreaInsight `json:"strong_areas"`
	OverallAccuracy float64       `json:"overall_accuracy"`
	TotalQuestions  int           `json:"total_questions"`
	FocusPlan       FocusPlan     `json:"focus_plan"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

// PlanPriority buckets a study-plan section.
type PlanPriority string

const (
	PlanPriorityHigh   PlanPriority = "high"
	PlanPriorityMedium PlanPriority = "medium"
	PlanPriorityLow    PlanPriority = "low"
)

// StudyPlanSection is one objective's slice of a generated study plan.
type StudyPlanSection struct {
	ObjectiveID       uuid.UUID    `json:"objective_id"`
	Title             string       `json:"title"`
	Accuracy          float64      `json:"accuracy"`
	QuestionsToReview int          `json:"questions_to_review"`
	EstimatedHours    int          `json:"estimated_hours"`
	Priority          PlanPriority `json:"priority"`
}

// StudyPlan is a per-exam schedule to reach a target score.
type StudyPlan struct {
	ExamID              uuid.UUID          `json:"exam_id"`
	TargetScore         float64            `json:"target_score"`
	DailyHours          float64            `json:"daily_hours"`
	Sections            []StudyPlanSection `json:"sections"`
	TotalEstimatedHours int                `json:"total_estimated_hours"`
	DaysNeeded          int                `json:"days_needed"`
	TargetDate          time.Time          `json:"target_date"`
}

// StudyPlanRequest is the payload for generating a study plan.
type StudyPlanRequest struct {
	ExamID      uuid.UUID `json:"exam_id" binding:"required"`
	TargetScore float64   `json:"target_score" binding:"required,min=1,max=100"`
	DailyHours  float64   `json:"daily_hours" binding:"required,min=0.5,max=16"`
}

// ProgressSnapshot is one day's accumulated study activity for a user.
// Rows are maintained asynchronously by the progress worker.
type ProgressSnapshot struct {
	UserID            uuid.UUID `json:"user_id"`
	Day               time.Time `json:"day"`
	QuestionsAnswered int       `json:"questions_answered"`
	CorrectAnswers    int       `json:"correct_answers"`
	TimeSpentSeconds  int       `json:"time_spent_seconds"`
}

// ExamProgress summarizes a user's standing on one exam.
type ExamProgress struct {
	ExamID        uuid.UUID `json:"exam_id"`
	Title         string    `json:"title"`
	SessionCount  int       `json:"session_count"`
	BestScore     float64   `json:"best_score"`
	LatestScore   float64   `json:"latest_score"`
	AverageScore  float64   `json:"average_score"`
	LastStudiedAt time.Time `json:"last_studied_at"`
}

// AnalyticsOverview backs the analytics dashboard endpoint.
type AnalyticsOverview struct {
	Exams            []ExamProgress `json:"exams"`
	AccuracyTrend    Trend          `json:"accuracy_trend"`
	StudyTimeTrend   Trend          `json:"study_time_trend"`
	WeeklyQuestions  int            `json:"weekly_questions"`
	WeeklyTimeSpent  int            `json:"weekly_time_spent_seconds"`
	WeeklyAccuracy   float64        `json:"weekly_accuracy"`
	TotalSessions    int            `json:"total_sessions"`
	TotalTimeSpent   int            `json:"total_time_spent_seconds"`
}
