package engine

import "errors"

// Domain errors surfaced by the attempt engine. All of them leave the
// attempt's invariants intact: a rejected operation never performs a
// partial mutation.
var (
	// ErrAttemptFinalized rejects any mutation after the finalize latch
	// has fired. It indicates a stale caller and is never swallowed.
	ErrAttemptFinalized = errors.New("attempt already finalized")

	// ErrInvalidNavigation rejects a cursor move outside the exam
	// structure. The position is left unchanged.
	ErrInvalidNavigation = errors.New("navigation target out of bounds")

	// ErrUnknownQuestion rejects an answer for a question id that is not
	// part of the exam.
	ErrUnknownQuestion = errors.New("question does not belong to exam")

	// ErrInvalidOption rejects an option index outside the question's
	// option list.
	ErrInvalidOption = errors.New("option index out of range")

	// ErrBreaksNotAllowed rejects StartBreak on an exam without breaks.
	ErrBreaksNotAllowed = errors.New("exam does not allow breaks")

	// ErrBreakBudgetExhausted rejects StartBreak once the budget is
	// spent. Callers surface it to the user; it is not exceptional.
	ErrBreakBudgetExhausted = errors.New("break budget exhausted")

	// ErrAlreadyOnBreak rejects a second StartBreak while on break.
	ErrAlreadyOnBreak = errors.New("already on break")

	// ErrNotOnBreak rejects EndBreak while not on break.
	ErrNotOnBreak = errors.New("not on break")
)
