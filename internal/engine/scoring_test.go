package engine

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestScoreEndToEnd(t *testing.T) {
	exam := newTestExam() // sections of 3 and 2, correct option 1

	answers := map[uuid.UUID]int{
		question(exam, 0, 0).ID: 1,
		question(exam, 0, 1).ID: 1,
		question(exam, 0, 2).ID: 1,
		question(exam, 1, 0).ID: 1,
		question(exam, 1, 1).ID: 0, // wrong
	}

	got := Score(exam, answers)
	if got.Total != 4 {
		t.Fatalf("Total = %d, want 4", got.Total)
	}
	if got.PerSection[exam.Sections[0].ID] != 3 {
		t.Errorf("section 1 = %d, want 3", got.PerSection[exam.Sections[0].ID])
	}
	if got.PerSection[exam.Sections[1].ID] != 1 {
		t.Errorf("section 2 = %d, want 1", got.PerSection[exam.Sections[1].ID])
	}
}

func TestScoreTable(t *testing.T) {
	exam := newTestExam()

	tests := []struct {
		name    string
		answers func() map[uuid.UUID]int
		want    int
	}{
		{name: "no answers", answers: func() map[uuid.UUID]int { return nil }, want: 0},
		{
			name: "all wrong",
			answers: func() map[uuid.UUID]int {
				m := map[uuid.UUID]int{}
				for s := range exam.Sections {
					for _, q := range exam.Sections[s].Questions {
						m[q.ID] = 0
					}
				}
				return m
			},
			want: 0,
		},
		{
			name: "all correct",
			answers: func() map[uuid.UUID]int {
				m := map[uuid.UUID]int{}
				for s := range exam.Sections {
					for _, q := range exam.Sections[s].Questions {
						m[q.ID] = 1
					}
				}
				return m
			},
			want: 5,
		},
		{
			name: "stray answer for unknown question ignored",
			answers: func() map[uuid.UUID]int {
				return map[uuid.UUID]int{uuid.New(): 1}
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := tc.answers()
			got := Score(exam, answers)
			if got.Total != tc.want {
				t.Fatalf("Total = %d, want %d", got.Total, tc.want)
			}

			// Bounds: never negative, never past the question count, and
			// the per-section map always sums to the total.
			if got.Total < 0 || got.Total > exam.TotalQuestions() {
				t.Fatalf("Total = %d outside [0,%d]", got.Total, exam.TotalQuestions())
			}
			sum := 0
			for _, v := range got.PerSection {
				sum += v
			}
			if sum != got.Total {
				t.Fatalf("per-section sum %d != total %d", sum, got.Total)
			}
		})
	}
}

func TestScoreDeterminism(t *testing.T) {
	exam := newTestExam()
	answers := map[uuid.UUID]int{
		question(exam, 0, 0).ID: 1,
		question(exam, 1, 1).ID: 1,
	}

	first := Score(exam, answers)
	second := Score(exam, answers)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Score() not deterministic: %+v vs %+v", first, second)
	}
}
