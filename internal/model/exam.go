package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a certification exam in the catalog.
type Exam struct {
	ID                      uuid.UUID `json:"id"`
	Slug                    string    `json:"slug"`
	Title                   string    `json:"title"`
	Vendor                  string    `json:"vendor"`
	Description             string    `json:"description,omitempty"`
	PassingScore            float64   `json:"passing_score"`
	DefaultTimeLimitSeconds int       `json:"default_time_limit_seconds"`
	QuestionCount           int       `json:"question_count"`
	Active                  bool      `json:"active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Objective is a graded sub-topic of an exam. Questions are bucketed by
// objective for section scores and weak-area analytics.
type Objective struct {
	ID     uuid.UUID `json:"id"`
	ExamID uuid.UUID `json:"exam_id"`
	Title  string    `json:"title"`
	Weight float64   `json:"weight"`
}
