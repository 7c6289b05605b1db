package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

func TestNextPreviousCrossSections(t *testing.T) {
	exam := newTestExam() // sections of 3 and 2 questions
	a := NewAttempt(exam, 1, newFakeClock())

	// Walk forward through the whole exam.
	wantForward := [][2]int{{0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 1}}
	for i, want := range wantForward {
		if err := a.Next(); err != nil {
			t.Fatal(err)
		}
		s, q := a.Position()
		if s != want[0] || q != want[1] {
			t.Fatalf("step %d: position = (%d,%d), want (%d,%d)", i, s, q, want[0], want[1])
		}
	}

	// And back again; the last step is the no-op at the very start.
	wantBackward := [][2]int{{1, 0}, {0, 2}, {0, 1}, {0, 0}, {0, 0}}
	for i, want := range wantBackward {
		if err := a.Previous(); err != nil {
			t.Fatal(err)
		}
		s, q := a.Position()
		if s != want[0] || q != want[1] {
			t.Fatalf("step %d: position = (%d,%d), want (%d,%d)", i, s, q, want[0], want[1])
		}
	}
}

func TestGoTo(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())

	tests := []struct {
		name    string
		section int
		index   int
		wantErr error
	}{
		{name: "jump to second section", section: 1, index: 1, wantErr: nil},
		{name: "jump back", section: 0, index: 2, wantErr: nil},
		{name: "section out of range", section: 2, index: 0, wantErr: ErrInvalidNavigation},
		{name: "negative section", section: -1, index: 0, wantErr: ErrInvalidNavigation},
		{name: "question out of range", section: 1, index: 2, wantErr: ErrInvalidNavigation},
		{name: "negative question", section: 0, index: -1, wantErr: ErrInvalidNavigation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before0, before1 := a.Position()
			err := a.GoTo(tc.section, tc.index)
			if err != tc.wantErr {
				t.Fatalf("GoTo() err = %v, want %v", err, tc.wantErr)
			}
			s, q := a.Position()
			if err != nil {
				// Rejected navigation must leave the cursor untouched.
				if s != before0 || q != before1 {
					t.Fatalf("cursor moved on rejection: (%d,%d)", s, q)
				}
				return
			}
			if s != tc.section || q != tc.index {
				t.Fatalf("position = (%d,%d), want (%d,%d)", s, q, tc.section, tc.index)
			}
		})
	}
}

func TestCursorStaysInBounds(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())

	moves := []func() error{
		a.Previous, a.Next, a.Next, a.Next, a.Next, a.Next, a.Next,
		func() error { return a.GoTo(1, 1) },
		a.Next, a.Previous, a.Previous, a.Previous, a.Previous, a.Previous, a.Previous,
	}
	for i, move := range moves {
		if err := move(); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		s, q := a.Position()
		if s < 0 || s >= len(exam.Sections) {
			t.Fatalf("move %d: section index %d out of bounds", i, s)
		}
		if q < 0 || q >= len(exam.Sections[s].Questions) {
			t.Fatalf("move %d: question index %d out of bounds", i, q)
		}
	}
}

func TestToggleMark(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())

	marked, err := a.ToggleMark(0, 1)
	if err != nil || !marked {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", marked, err)
	}
	if !a.IsMarked(0, 1) || a.MarkedCount() != 1 {
		t.Fatal("mark not recorded")
	}

	// Same question index in the other section must be independent.
	if a.IsMarked(1, 1) {
		t.Fatal("mark leaked across sections sharing a question index")
	}

	marked, err = a.ToggleMark(0, 1)
	if err != nil || marked {
		t.Fatalf("second toggle = (%v, %v), want (false, nil)", marked, err)
	}
	if a.MarkedCount() != 0 {
		t.Fatal("mark not cleared")
	}

	if _, err := a.ToggleMark(5, 0); err != ErrInvalidNavigation {
		t.Fatalf("out-of-bounds toggle err = %v, want ErrInvalidNavigation", err)
	}
}

func TestProgress(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())

	if got := a.OverallProgress(); got != 0 {
		t.Fatalf("initial OverallProgress() = %v, want 0", got)
	}

	for q := 0; q < 3; q++ {
		if err := a.SetAnswer(question(exam, 0, q).ID, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.SetAnswer(question(exam, 1, 0).ID, 0); err != nil {
		t.Fatal(err)
	}

	if got := a.SectionProgress(0); got != 1 {
		t.Errorf("SectionProgress(0) = %v, want 1", got)
	}
	if got := a.SectionProgress(1); got != 0.5 {
		t.Errorf("SectionProgress(1) = %v, want 0.5", got)
	}
	if got := a.OverallProgress(); got != 0.8 {
		t.Errorf("OverallProgress() = %v, want 0.8", got)
	}
	if got := a.SectionProgress(9); got != 0 {
		t.Errorf("SectionProgress(out of range) = %v, want 0", got)
	}
}

func TestEmptySectionProgressIsZero(t *testing.T) {
	exam := &model.Exam{
		ID:              uuid.New(),
		DurationMinutes: 10,
		Sections: []model.Section{
			{ID: uuid.New(), Questions: []model.Question{{ID: uuid.New(), Options: []string{"a", "b"}}}},
			{ID: uuid.New()}, // no questions
		},
	}
	a := NewAttempt(exam, 1, newFakeClock())
	if got := a.SectionProgress(1); got != 0 {
		t.Fatalf("SectionProgress(empty) = %v, want 0 (not NaN)", got)
	}
}
