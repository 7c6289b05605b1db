package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

// fakeClock is a manually advanced clock for deterministic timer tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestExam builds a two-section exam: 3 questions then 2, all with
// option 1 correct, 30 minute limit, 5 minute break budget.
func newTestExam() *model.Exam {
	exam := &model.Exam{
		ID:                 uuid.New(),
		Title:              "Unit Test Exam",
		DurationMinutes:    30,
		AllowBreaks:        true,
		BreakBudgetSeconds: 300,
		Status:             model.ExamStatusPublished,
	}
	counts := []int{3, 2}
	for s, n := range counts {
		sec := model.Section{ID: uuid.New(), ExamID: exam.ID, Title: "Section", OrderNum: s}
		for q := 0; q < n; q++ {
			sec.Questions = append(sec.Questions, model.Question{
				ID:            uuid.New(),
				SectionID:     sec.ID,
				Prompt:        "prompt",
				Options:       []string{"a", "b", "c", "d"},
				CorrectOption: 1,
				OrderNum:      q,
			})
		}
		exam.Sections = append(exam.Sections, sec)
	}
	return exam
}

func question(exam *model.Exam, s, q int) *model.Question {
	return &exam.Sections[s].Questions[q]
}

func TestSetAnswerValidation(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())
	qid := question(exam, 0, 0).ID

	tests := []struct {
		name       string
		questionID uuid.UUID
		option     int
		wantErr    error
	}{
		{name: "valid", questionID: qid, option: 2, wantErr: nil},
		{name: "overwrite", questionID: qid, option: 0, wantErr: nil},
		{name: "negative option", questionID: qid, option: -1, wantErr: ErrInvalidOption},
		{name: "option past range", questionID: qid, option: 4, wantErr: ErrInvalidOption},
		{name: "unknown question", questionID: uuid.New(), option: 0, wantErr: ErrUnknownQuestion},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := a.SetAnswer(tc.questionID, tc.option); err != tc.wantErr {
				t.Fatalf("SetAnswer() err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if got, ok := a.Answer(qid); !ok || got != 0 {
		t.Fatalf("Answer() = (%d, %v), want last valid write (0, true)", got, ok)
	}
	if a.AnsweredCount() != 1 {
		t.Fatalf("AnsweredCount() = %d, want 1", a.AnsweredCount())
	}
}

func TestCountdownMonotonicity(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 1, clock)

	prev := a.Remaining()
	if prev != 30*time.Minute {
		t.Fatalf("initial Remaining() = %v, want 30m", prev)
	}

	for i := 0; i < 40; i++ {
		clock.Advance(time.Minute)
		rem := a.Remaining()
		if rem > prev {
			t.Fatalf("Remaining() increased: %v -> %v", prev, rem)
		}
		if rem < 0 {
			t.Fatalf("Remaining() went negative: %v", rem)
		}
		prev = rem
	}
	if prev != 0 {
		t.Fatalf("Remaining() after expiry = %v, want 0", prev)
	}
}

func TestTickAutoSubmitsOnExpiry(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 7, clock)

	var fired int
	a.OnFinalize(func(sub *model.Submission, trigger model.FinalizeTrigger) {
		fired++
		if trigger != model.TriggerTimeExpired {
			t.Errorf("trigger = %s, want %s", trigger, model.TriggerTimeExpired)
		}
	})

	a.Tick()
	if a.Status() != AttemptActive {
		t.Fatalf("attempt finalized before expiry")
	}

	clock.Advance(31 * time.Minute)
	a.Tick()
	a.Tick() // second tick in the same expired state must no-op

	if a.Status() != AttemptFinalized {
		t.Fatalf("Status() = %s, want FINALIZED", a.Status())
	}
	if fired != 1 {
		t.Fatalf("finalize hook fired %d times, want 1", fired)
	}

	select {
	case <-a.Done():
	default:
		t.Fatal("Done() not closed after finalization")
	}
}

func TestFinalizeIdempotence(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 7, clock)

	// Answer section 1 fully, then half of section 2.
	for q := 0; q < 3; q++ {
		if err := a.SetAnswer(question(exam, 0, q).ID, 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.SetAnswer(question(exam, 1, 0).ID, 1); err != nil {
		t.Fatal(err)
	}

	clock.Advance(10*time.Minute + 20*time.Second)

	first, won := a.Finalize(model.TriggerTimeExpired)
	if !won {
		t.Fatal("first Finalize() reported loss")
	}

	// Change nothing may happen after the latch: the racing manual
	// submit must observe the same submission.
	second, won := a.Finalize(model.TriggerManualSubmit)
	if won {
		t.Fatal("second Finalize() won the latch")
	}
	if second != first {
		t.Fatal("second Finalize() produced a different submission")
	}

	if first.TotalScore != 4 {
		t.Errorf("TotalScore = %d, want 4", first.TotalScore)
	}
	if got := first.PerSection[exam.Sections[0].ID]; got != 3 {
		t.Errorf("section 1 score = %d, want 3", got)
	}
	if got := first.PerSection[exam.Sections[1].ID]; got != 1 {
		t.Errorf("section 2 score = %d, want 1", got)
	}
	if first.TimeSpentMinutes != 10 {
		t.Errorf("TimeSpentMinutes = %d, want 10", first.TimeSpentMinutes)
	}
}

func TestMutationRejectedAfterFinalize(t *testing.T) {
	exam := newTestExam()
	a := NewAttempt(exam, 1, newFakeClock())
	if _, won := a.Finalize(model.TriggerManualSubmit); !won {
		t.Fatal("Finalize() lost on a fresh attempt")
	}

	qid := question(exam, 0, 0).ID
	if err := a.SetAnswer(qid, 1); err != ErrAttemptFinalized {
		t.Errorf("SetAnswer() err = %v, want ErrAttemptFinalized", err)
	}
	if err := a.GoTo(0, 1); err != ErrAttemptFinalized {
		t.Errorf("GoTo() err = %v, want ErrAttemptFinalized", err)
	}
	if err := a.Next(); err != ErrAttemptFinalized {
		t.Errorf("Next() err = %v, want ErrAttemptFinalized", err)
	}
	if _, err := a.ToggleMark(0, 0); err != ErrAttemptFinalized {
		t.Errorf("ToggleMark() err = %v, want ErrAttemptFinalized", err)
	}
	if err := a.StartBreak(); err != ErrAttemptFinalized {
		t.Errorf("StartBreak() err = %v, want ErrAttemptFinalized", err)
	}
}

func TestTimeSpentRounding(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "round down", elapsed: 10*time.Minute + 20*time.Second, want: 10},
		{name: "round up", elapsed: 10*time.Minute + 40*time.Second, want: 11},
		{name: "immediate", elapsed: 12 * time.Second, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			a := NewAttempt(newTestExam(), 1, clock)
			clock.Advance(tc.elapsed)
			sub, _ := a.Finalize(model.TriggerManualSubmit)
			if sub.TimeSpentMinutes != tc.want {
				t.Fatalf("TimeSpentMinutes = %d, want %d", sub.TimeSpentMinutes, tc.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 9, clock)

	if err := a.SetAnswer(question(exam, 0, 0).ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ToggleMark(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := a.GoTo(1, 0); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Minute)

	state := a.Snapshot()
	if state.CurrentSectionIndex != 1 || state.CurrentQuestionIndex != 0 {
		t.Errorf("cursor = (%d,%d), want (1,0)", state.CurrentSectionIndex, state.CurrentQuestionIndex)
	}
	if state.AnsweredCount != 1 || state.TotalQuestions != 5 {
		t.Errorf("answered/total = %d/%d, want 1/5", state.AnsweredCount, state.TotalQuestions)
	}
	if state.RemainingSeconds != 25*60 {
		t.Errorf("RemainingSeconds = %d, want %d", state.RemainingSeconds, 25*60)
	}
	if state.RemainingFormatted != "25:00" {
		t.Errorf("RemainingFormatted = %q, want 25:00", state.RemainingFormatted)
	}
	if len(state.MarkedQuestionIDs) != 1 || state.MarkedQuestionIDs[0] != question(exam, 1, 1).ID {
		t.Errorf("MarkedQuestionIDs = %v, want the marked question", state.MarkedQuestionIDs)
	}
	if state.OverallProgress != 0.2 {
		t.Errorf("OverallProgress = %v, want 0.2", state.OverallProgress)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "00:00"},
		{d: 59 * time.Second, want: "00:59"},
		{d: 25 * time.Minute, want: "25:00"},
		{d: time.Hour + 5*time.Minute + 3*time.Second, want: "1:05:03"},
	}
	for _, tc := range tests {
		if got := FormatClock(tc.d); got != tc.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
