package model

import (
	"github.com/google/uuid"
)

// StudentRanking is one row of the cross-exam leaderboard. Rankings are
// derived views recomputed from the full submission set on every read.
type StudentRanking struct {
	Rank         int     `json:"rank"`
	StudentID    int     `json:"student_id"`
	StudentName  string  `json:"student_name,omitempty"`
	TotalScore   int     `json:"total_score"`
	TotalExams   int     `json:"total_exams"`
	AverageScore float64 `json:"average_score"`
}

// ExamRanking is one row of a single exam's leaderboard.
type ExamRanking struct {
	Rank             int       `json:"rank"`
	SubmissionID     uuid.UUID `json:"submission_id"`
	StudentID        int       `json:"student_id"`
	StudentName      string    `json:"student_name,omitempty"`
	Score            int       `json:"score"`
	TimeSpentMinutes int       `json:"time_spent_minutes"`
}
