package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the immutable, scored result of a finalized attempt.
// It is constructed exactly once, when the attempt's finalize latch
// fires, and never mutated afterwards.
type Submission struct {
	ID               uuid.UUID         `json:"id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	ExamTitle        string            `json:"exam_title"`
	StudentID        int               `json:"student_id"`
	TotalScore       int               `json:"total_score"`
	PerSection       map[uuid.UUID]int `json:"per_section"`
	TimeSpentMinutes int               `json:"time_spent_minutes"`
	BreakSecondsUsed int               `json:"break_seconds_used"`
	SubmittedAt      time.Time         `json:"submitted_at"`
}

// FinalizeTrigger identifies what caused an attempt to finalize.
type FinalizeTrigger string

const (
	TriggerManualSubmit FinalizeTrigger = "MANUAL_SUBMIT"
	TriggerTimeExpired  FinalizeTrigger = "TIME_EXPIRED"
)
