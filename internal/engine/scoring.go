package engine

import (
	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

// Result is a scored attempt: raw marks, one point per correct answer.
type Result struct {
	Total      int
	PerSection map[uuid.UUID]int
}

// Score grades an answer map against an exam's answer key. It is a pure
// function: no side effects, and identical inputs always produce
// identical output — which is what makes the auto-submit vs manual
// submit race safe to resolve by "first finalize wins". A question
// absent from the answer map scores zero, the same as a wrong answer.
// There is no partial credit and no negative marking.
func Score(exam *model.Exam, answers map[uuid.UUID]int) Result {
	perSection := make(map[uuid.UUID]int, len(exam.Sections))
	total := 0

	for i := range exam.Sections {
		sec := &exam.Sections[i]
		points := 0
		for _, q := range sec.Questions {
			if selected, ok := answers[q.ID]; ok && selected == q.CorrectOption {
				points++
			}
		}
		perSection[sec.ID] = points
		total += points
	}

	return Result{Total: total, PerSection: perSection}
}
