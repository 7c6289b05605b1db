package engine

import "github.com/google/uuid"

// SetAnswer records or overwrites the selected option for a question.
// The only validation is structural: the question must belong to the
// exam and the option index must be inside its option list.
func (a *Attempt) SetAnswer(questionID uuid.UUID, optionIndex int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}
	q, ok := a.questions[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrInvalidOption
	}

	a.answers[questionID] = optionIndex
	return nil
}

// Answer returns the recorded option for a question, if any.
func (a *Attempt) Answer(questionID uuid.UUID) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	opt, ok := a.answers[questionID]
	return opt, ok
}

// IsAnswered reports whether the question has a recorded answer.
func (a *Attempt) IsAnswered(questionID uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.answers[questionID]
	return ok
}

// AnsweredCount returns how many questions have a recorded answer.
func (a *Attempt) AnsweredCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.answers)
}

// answersCopy returns a detached copy for scoring and mirroring.
func (a *Attempt) answersCopy() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(a.answers))
	for id, opt := range a.answers {
		out[id] = opt
	}
	return out
}

// Answers returns a detached copy of the current answer map.
func (a *Attempt) Answers() map[uuid.UUID]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.answersCopy()
}
