package engine

import (
	"testing"
	"time"
)

func TestBreakAccrual(t *testing.T) {
	exam := newTestExam() // 300s break budget
	clock := newFakeClock()
	a := NewAttempt(exam, 1, clock)

	if err := a.StartBreak(); err != nil {
		t.Fatal(err)
	}
	if err := a.StartBreak(); err != ErrAlreadyOnBreak {
		t.Fatalf("double StartBreak() err = %v, want ErrAlreadyOnBreak", err)
	}

	clock.Advance(90 * time.Second)
	if got := a.BreakSecondsUsed(); got != 90 {
		t.Fatalf("BreakSecondsUsed() mid-break = %d, want 90", got)
	}

	if err := a.EndBreak(); err != nil {
		t.Fatal(err)
	}
	if err := a.EndBreak(); err != ErrNotOnBreak {
		t.Fatalf("EndBreak() while off break err = %v, want ErrNotOnBreak", err)
	}

	// Time passing off-break must not accrue.
	clock.Advance(10 * time.Minute)
	if got := a.BreakSecondsUsed(); got != 90 {
		t.Fatalf("BreakSecondsUsed() off break = %d, want 90", got)
	}
	if got := a.BreakSecondsLeft(); got != 210 {
		t.Fatalf("BreakSecondsLeft() = %d, want 210", got)
	}
}

func TestBreakAutoEndsAtBudget(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 1, clock)

	if err := a.StartBreak(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(400 * time.Second) // past the 300s budget
	a.Tick()

	if a.OnBreak() {
		t.Fatal("still on break after budget exhaustion")
	}
	if got := a.BreakSecondsUsed(); got != 300 {
		t.Fatalf("BreakSecondsUsed() = %d, want clamp at 300", got)
	}

	// Budget is gone: another break must be rejected without mutation.
	if err := a.StartBreak(); err != ErrBreakBudgetExhausted {
		t.Fatalf("StartBreak() after exhaustion err = %v, want ErrBreakBudgetExhausted", err)
	}
	if a.OnBreak() {
		t.Fatal("rejected StartBreak() mutated state")
	}
}

func TestBreakNotAllowed(t *testing.T) {
	exam := newTestExam()
	exam.AllowBreaks = false
	a := NewAttempt(exam, 1, newFakeClock())

	if err := a.StartBreak(); err != ErrBreaksNotAllowed {
		t.Fatalf("StartBreak() err = %v, want ErrBreaksNotAllowed", err)
	}
}

func TestExamClockRunsDuringBreak(t *testing.T) {
	exam := newTestExam()
	clock := newFakeClock()
	a := NewAttempt(exam, 1, clock)

	before := a.Remaining()
	if err := a.StartBreak(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	if got := a.Remaining(); got != before-2*time.Minute {
		t.Fatalf("Remaining() during break = %v, want %v", got, before-2*time.Minute)
	}
}

func TestExpiryDuringBreakFinalizes(t *testing.T) {
	exam := newTestExam()
	exam.BreakBudgetSeconds = 3600
	clock := newFakeClock()
	a := NewAttempt(exam, 1, clock)

	if err := a.StartBreak(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(31 * time.Minute)
	a.Tick()

	if a.Status() != AttemptFinalized {
		t.Fatalf("Status() = %s, want FINALIZED", a.Status())
	}
	sub := a.Submission()
	if sub == nil {
		t.Fatal("no submission after expiry")
	}
	// The in-progress break is committed by finalization.
	if sub.BreakSecondsUsed != 31*60 {
		t.Fatalf("BreakSecondsUsed = %d, want %d", sub.BreakSecondsUsed, 31*60)
	}
}
