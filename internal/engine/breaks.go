package engine

import "time"

// StartBreak transitions to OnBreak and records the break start. It is
// rejected when the exam forbids breaks or no budget remains; rejection
// leaves all state untouched. Breaks never pause the exam countdown.
func (a *Attempt) StartBreak() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}
	if !a.exam.AllowBreaks {
		return ErrBreaksNotAllowed
	}
	if a.onBreak {
		return ErrAlreadyOnBreak
	}

	now := a.clock.Now()
	if a.breakUsedLocked(now) >= a.breakBudget() {
		return ErrBreakBudgetExhausted
	}

	a.onBreak = true
	a.breakStartedAt = now
	return nil
}

// EndBreak commits the accrued break time and returns to the exam. It is
// always legal while on break.
func (a *Attempt) EndBreak() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}
	if !a.onBreak {
		return ErrNotOnBreak
	}

	a.commitBreakLocked(a.clock.Now())
	return nil
}

// OnBreak reports whether the examinee is currently on break, forcing
// the automatic break end first if the budget ran out meanwhile.
func (a *Attempt) OnBreak() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncBreakLocked(a.clock.Now())
	return a.onBreak
}

// BreakSecondsUsed returns cumulative break consumption, including the
// in-progress break, clamped at the budget.
func (a *Attempt) BreakSecondsUsed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.breakUsedLocked(a.clock.Now()) / time.Second)
}

// BreakSecondsLeft returns the remaining break budget in whole seconds.
func (a *Attempt) BreakSecondsLeft() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	left := a.breakBudget() - a.breakUsedLocked(a.clock.Now())
	if left < 0 {
		left = 0
	}
	return int(left / time.Second)
}

func (a *Attempt) breakBudget() time.Duration {
	return time.Duration(a.exam.BreakBudgetSeconds) * time.Second
}

// breakUsedLocked derives usage the same way the countdown derives
// remaining time: committed total plus the in-progress break measured
// from its start timestamp, clamped at the budget.
func (a *Attempt) breakUsedLocked(now time.Time) time.Duration {
	used := a.breakCommitted
	if a.onBreak {
		used += now.Sub(a.breakStartedAt)
	}
	if budget := a.breakBudget(); used > budget {
		return budget
	}
	return used
}

// commitBreakLocked folds the in-progress break into the committed
// total and leaves the OnBreak state.
func (a *Attempt) commitBreakLocked(now time.Time) {
	a.breakCommitted = a.breakUsedLocked(now)
	a.onBreak = false
}

// syncBreakLocked forces the automatic break end once the budget is
// exhausted while on break.
func (a *Attempt) syncBreakLocked(now time.Time) {
	if a.onBreak && a.breakUsedLocked(now) >= a.breakBudget() {
		a.commitBreakLocked(now)
	}
}
