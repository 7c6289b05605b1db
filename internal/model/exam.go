package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam is the immutable exam definition. Once published it is read-only
// for the duration of every attempt taken against it.
type Exam struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	AuthorID           int        `json:"author_id"`
	DurationMinutes    int        `json:"duration_minutes"`
	AllowBreaks        bool       `json:"allow_breaks"`
	BreakBudgetSeconds int        `json:"break_budget_seconds"`
	EntryToken         string     `json:"entry_token,omitempty"`
	Status             ExamStatus `json:"status"`
	Sections           []Section  `json:"sections,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Section is an ordered group of questions within an exam.
type Section struct {
	ID        uuid.UUID  `json:"id"`
	ExamID    uuid.UUID  `json:"exam_id"`
	Title     string     `json:"title"`
	OrderNum  int        `json:"order_num"`
	Questions []Question `json:"questions,omitempty"`
}

// TotalQuestions counts questions across all sections.
func (e *Exam) TotalQuestions() int {
	total := 0
	for i := range e.Sections {
		total += len(e.Sections[i].Questions)
	}
	return total
}

// QuestionAt returns the question at the given cursor, or nil when the
// cursor is out of bounds.
func (e *Exam) QuestionAt(sectionIndex, questionIndex int) *Question {
	if sectionIndex < 0 || sectionIndex >= len(e.Sections) {
		return nil
	}
	sec := &e.Sections[sectionIndex]
	if questionIndex < 0 || questionIndex >= len(sec.Questions) {
		return nil
	}
	return &sec.Questions[questionIndex]
}

// CreateExamRequest is the payload for creating a new exam with its
// full section/question structure.
type CreateExamRequest struct {
	Title              string                 `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes    int                    `json:"duration_minutes" binding:"required,min=1,max=480"`
	AllowBreaks        bool                   `json:"allow_breaks"`
	BreakBudgetSeconds int                    `json:"break_budget_seconds" binding:"omitempty,min=0,max=3600"`
	EntryToken         string                 `json:"entry_token" binding:"omitempty,min=4,max=20"`
	Sections           []CreateSectionRequest `json:"sections" binding:"required,min=1,dive"`
}

// CreateSectionRequest is one section within CreateExamRequest.
type CreateSectionRequest struct {
	Title     string                  `json:"title" binding:"required,min=1,max=255"`
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is one question within a section payload.
type CreateQuestionRequest struct {
	Prompt        string   `json:"prompt" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=10"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
}

// UpdateExamRequest is the payload for updating a draft exam.
type UpdateExamRequest struct {
	Title              string `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes    *int   `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	AllowBreaks        *bool  `json:"allow_breaks" binding:"omitempty"`
	BreakBudgetSeconds *int   `json:"break_budget_seconds" binding:"omitempty,min=0,max=3600"`
	EntryToken         string `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// ExamPayload is the Redis-cached, student-facing exam (no answer key).
type ExamPayload struct {
	ExamID             uuid.UUID           `json:"exam_id"`
	Title              string              `json:"title"`
	DurationMinutes    int                 `json:"duration_minutes"`
	AllowBreaks        bool                `json:"allow_breaks"`
	BreakBudgetSeconds int                 `json:"break_budget_seconds"`
	Sections           []SectionForStudent `json:"sections"`
}

// SectionForStudent is a section without per-question answer keys.
type SectionForStudent struct {
	ID        uuid.UUID            `json:"id"`
	Title     string               `json:"title"`
	OrderNum  int                  `json:"order_num"`
	Questions []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question stripped of the correct option.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	OrderNum int       `json:"order_num"`
}

// StudentPayload converts a full exam into its examinee-facing form.
func (e *Exam) StudentPayload() *ExamPayload {
	payload := &ExamPayload{
		ExamID:             e.ID,
		Title:              e.Title,
		DurationMinutes:    e.DurationMinutes,
		AllowBreaks:        e.AllowBreaks,
		BreakBudgetSeconds: e.BreakBudgetSeconds,
		Sections:           make([]SectionForStudent, len(e.Sections)),
	}
	for i, sec := range e.Sections {
		out := SectionForStudent{
			ID:        sec.ID,
			Title:     sec.Title,
			OrderNum:  sec.OrderNum,
			Questions: make([]QuestionForStudent, len(sec.Questions)),
		}
		for j, q := range sec.Questions {
			out.Questions[j] = QuestionForStudent{
				ID:       q.ID,
				Prompt:   q.Prompt,
				Options:  q.Options,
				OrderNum: q.OrderNum,
			}
		}
		payload.Sections[i] = out
	}
	return payload
}
