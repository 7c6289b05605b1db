package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState is the examinee-facing snapshot of a live attempt. It is
// a pure read over the engine's aggregate and carries everything the
// presentation layer needs between events.
type AttemptState struct {
	ExamID               uuid.UUID   `json:"exam_id"`
	StudentID            int         `json:"student_id"`
	State                string      `json:"state"`
	CurrentSectionIndex  int         `json:"current_section_index"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	Answers              map[string]int `json:"answers"`
	MarkedQuestionIDs    []uuid.UUID `json:"marked_question_ids"`
	AnsweredCount        int         `json:"answered_count"`
	TotalQuestions       int         `json:"total_questions"`
	OverallProgress      float64     `json:"overall_progress"`
	SectionProgress      []float64   `json:"section_progress"`
	RemainingSeconds     int         `json:"remaining_seconds"`
	RemainingFormatted   string      `json:"remaining_formatted"`
	OnBreak              bool        `json:"on_break"`
	BreakSecondsUsed     int         `json:"break_seconds_used"`
	BreakSecondsLeft     int         `json:"break_seconds_left"`
	StartedAt            time.Time   `json:"started_at"`
}

// StartAttemptRequest is the payload for starting an exam attempt.
type StartAttemptRequest struct {
	EntryToken string `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// SaveAnswerRequest records or overwrites the selected option for a question.
type SaveAnswerRequest struct {
	QuestionID  uuid.UUID `json:"question_id" binding:"required"`
	OptionIndex int       `json:"option_index" binding:"min=0"`
}

// NavigateAction enumerates cursor movements.
type NavigateAction string

const (
	NavigateGoTo     NavigateAction = "goto"
	NavigateNext     NavigateAction = "next"
	NavigatePrevious NavigateAction = "previous"
)

// NavigateRequest moves the attempt cursor. SectionIndex and
// QuestionIndex are only consulted for the "goto" action.
type NavigateRequest struct {
	Action        NavigateAction `json:"action" binding:"required,oneof=goto next previous"`
	SectionIndex  int            `json:"section_index" binding:"min=0"`
	QuestionIndex int            `json:"question_index" binding:"min=0"`
}

// MarkRequest toggles the marked-for-later flag on a question.
type MarkRequest struct {
	SectionIndex  int `json:"section_index" binding:"min=0"`
	QuestionIndex int `json:"question_index" binding:"min=0"`
}
