package model

import "testing"

func TestGrade(t *testing.T) {
	single := Question{CorrectAnswers: []int{2}}
	multi := Question{CorrectAnswers: []int{0, 3}}

	cases := []struct {
		name     string
		q        *Question
		selected []int
		want     bool
	}{
		{"single correct", &single, []int{2}, true},
		{"single wrong option", &single, []int{1}, false},
		{"single with extra", &single, []int{1, 2}, false},
		{"empty selection", &single, nil, false},
		{"multi exact", &multi, []int{0, 3}, true},
		{"multi order ignored", &multi, []int{3, 0}, true},
		{"multi duplicates ignored", &multi, []int{0, 0, 3}, true},
		{"multi partial", &multi, []int{0}, false},
		{"multi superset", &multi, []int{0, 1, 3}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Grade(tc.selected); got != tc.want {
				t.Errorf("Grade(%v) = %v, want %v", tc.selected, got, tc.want)
			}
		})
	}
}

func TestViewStripsAnswersWhenExcluded(t *testing.T) {
	q := Question{
		CorrectAnswers: []int{1},
		Explanation:    "because",
	}

	test := q.View(false)
	if test.CorrectAnswers != nil || test.Explanation != "" {
		t.Errorf("View(false) leaks answers: %+v", test)
	}

	study := q.View(true)
	if len(study.CorrectAnswers) != 1 || study.Explanation != "because" {
		t.Errorf("View(true) dropped answers: %+v", study)
	}
}
