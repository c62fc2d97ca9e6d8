package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// CorrectAnswers holds the indices of the correct options; a question with
// more than one index is a multi-select question.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	ExamID         uuid.UUID       `json:"exam_id"`
	ObjectiveID    uuid.UUID       `json:"objective_id"`
	Text           string          `json:"text"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswers []int           `json:"correct_answers"`
	Explanation    string          `json:"explanation,omitempty"`
	OrderNum       int             `json:"order_num"`
	Active         bool            `json:"active"`
}

// Grade reports whether the selected option indices exactly match the
// question's correct answer set. Order and duplicates in the selection are
// ignored; a partial match is wrong, never partially credited.
func (q *Question) Grade(selected []int) bool {
	if len(selected) == 0 {
		return len(q.CorrectAnswers) == 0
	}
	want := make(map[int]struct{}, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		want[idx] = struct{}{}
	}
	got := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		got[idx] = struct{}{}
	}
	if len(got) != len(want) {
		return false
	}
	for idx := range got {
		if _, ok := want[idx]; !ok {
			return false
		}
	}
	return true
}

// QuestionView is the question payload delivered to clients. For test-mode
// sessions the correct answers and explanation are stripped before the
// payload ever leaves the engine.
type QuestionView struct {
	ID             uuid.UUID       `json:"id"`
	ObjectiveID    uuid.UUID       `json:"objective_id"`
	Text           string          `json:"text"`
	Options        json.RawMessage `json:"options"`
	CorrectAnswers []int           `json:"correct_answers,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
}

// View builds the client payload for a question. includeAnswers must be
// false for test-mode sessions.
func (q *Question) View(includeAnswers bool) QuestionView {
	v := QuestionView{
		ID:          q.ID,
		ObjectiveID: q.ObjectiveID,
		Text:        q.Text,
		Options:     q.Options,
	}
	if includeAnswers {
		v.CorrectAnswers = q.CorrectAnswers
		v.Explanation = q.Explanation
	}
	return v
}
