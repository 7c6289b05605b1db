package engine

// Position returns the current (section, question) cursor.
func (a *Attempt) Position() (sectionIndex, questionIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.curSection, a.curQuestion
}

// GoTo jumps the cursor directly to any section/question. Free
// navigation is permitted; there is no forward-only restriction.
func (a *Attempt) GoTo(sectionIndex, questionIndex int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}
	if a.exam.QuestionAt(sectionIndex, questionIndex) == nil {
		return ErrInvalidNavigation
	}

	a.curSection = sectionIndex
	a.curQuestion = questionIndex
	return nil
}

// Next advances one question, crossing into the next section's first
// question at a boundary. At the very last question it is a no-op.
func (a *Attempt) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}

	sec := &a.exam.Sections[a.curSection]
	switch {
	case a.curQuestion < len(sec.Questions)-1:
		a.curQuestion++
	case a.curSection < len(a.exam.Sections)-1:
		a.curSection++
		a.curQuestion = 0
	}
	return nil
}

// Previous moves one question back, crossing into the previous section's
// last question at a boundary. At the very first question it is a no-op.
func (a *Attempt) Previous() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return ErrAttemptFinalized
	}

	switch {
	case a.curQuestion > 0:
		a.curQuestion--
	case a.curSection > 0:
		a.curSection--
		a.curQuestion = len(a.exam.Sections[a.curSection].Questions) - 1
	}
	return nil
}

// ToggleMark flips the marked-for-later flag on the addressed question
// and returns the new flag value. Marking never blocks submission; it is
// advisory only.
func (a *Attempt) ToggleMark(sectionIndex, questionIndex int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != AttemptActive {
		return false, ErrAttemptFinalized
	}
	q := a.exam.QuestionAt(sectionIndex, questionIndex)
	if q == nil {
		return false, ErrInvalidNavigation
	}

	if a.marked[q.ID] {
		delete(a.marked, q.ID)
		return false, nil
	}
	a.marked[q.ID] = true
	return true, nil
}

// IsMarked reports whether the addressed question is marked for later.
func (a *Attempt) IsMarked(sectionIndex, questionIndex int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	q := a.exam.QuestionAt(sectionIndex, questionIndex)
	if q == nil {
		return false
	}
	return a.marked[q.ID]
}

// MarkedCount returns how many questions are marked for later.
func (a *Attempt) MarkedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.marked)
}

// SectionProgress returns the answered fraction (0..1) of one section.
// A section with zero questions reports 0, not NaN.
func (a *Attempt) SectionProgress(sectionIndex int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sectionProgressLocked(sectionIndex)
}

func (a *Attempt) sectionProgressLocked(sectionIndex int) float64 {
	if sectionIndex < 0 || sectionIndex >= len(a.exam.Sections) {
		return 0
	}
	sec := &a.exam.Sections[sectionIndex]
	if len(sec.Questions) == 0 {
		return 0
	}
	answered := 0
	for _, q := range sec.Questions {
		if _, ok := a.answers[q.ID]; ok {
			answered++
		}
	}
	return float64(answered) / float64(len(sec.Questions))
}

// OverallProgress returns the answered fraction (0..1) across the exam.
func (a *Attempt) OverallProgress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overallProgressLocked()
}

func (a *Attempt) overallProgressLocked() float64 {
	total := a.exam.TotalQuestions()
	if total == 0 {
		return 0
	}
	return float64(len(a.answers)) / float64(total)
}
