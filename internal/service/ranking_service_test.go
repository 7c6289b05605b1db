package service

import (
	"context"
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestStudentLeaderboardJoinsNames(t *testing.T) {
	examA := uuid.New()
	examB := uuid.New()

	subs := newFakeSubmissionStore()
	subs.names = map[int]string{1: "Ana", 2: "Ben"}
	subs.subs[subKey{examA, 1}] = &model.Submission{ID: uuid.New(), ExamID: examA, StudentID: 1, TotalScore: 5}
	subs.subs[subKey{examB, 1}] = &model.Submission{ID: uuid.New(), ExamID: examB, StudentID: 1, TotalScore: 4}
	subs.subs[subKey{examA, 2}] = &model.Submission{ID: uuid.New(), ExamID: examA, StudentID: 2, TotalScore: 3}

	svc := NewRankingService(subs, zerolog.Nop())
	board, err := svc.StudentLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("StudentLeaderboard: %v", err)
	}

	if len(board) != 2 {
		t.Fatalf("leaderboard has %d rows, want 2", len(board))
	}
	if board[0].StudentID != 1 || board[0].StudentName != "Ana" || board[0].TotalScore != 9 {
		t.Errorf("rank 1 = %+v, want Ana with total 9", board[0])
	}
	if board[1].StudentID != 2 || board[1].StudentName != "Ben" {
		t.Errorf("rank 2 = %+v, want Ben", board[1])
	}
}

func TestExamLeaderboardFiltersExam(t *testing.T) {
	examA := uuid.New()
	examB := uuid.New()

	subs := newFakeSubmissionStore()
	subs.names = map[int]string{1: "Ana", 2: "Ben"}
	subs.subs[subKey{examA, 1}] = &model.Submission{ID: uuid.New(), ExamID: examA, StudentID: 1, TotalScore: 5, TimeSpentMinutes: 20}
	subs.subs[subKey{examA, 2}] = &model.Submission{ID: uuid.New(), ExamID: examA, StudentID: 2, TotalScore: 5, TimeSpentMinutes: 10}
	subs.subs[subKey{examB, 1}] = &model.Submission{ID: uuid.New(), ExamID: examB, StudentID: 1, TotalScore: 9}

	svc := NewRankingService(subs, zerolog.Nop())
	board, err := svc.ExamLeaderboard(context.Background(), examA)
	if err != nil {
		t.Fatalf("ExamLeaderboard: %v", err)
	}

	if len(board) != 2 {
		t.Fatalf("leaderboard has %d rows, want 2", len(board))
	}
	// Equal scores: the faster submission ranks first.
	if board[0].StudentID != 2 || board[0].StudentName != "Ben" {
		t.Errorf("rank 1 = %+v, want Ben (faster)", board[0])
	}
}

func TestStudentResultsEmpty(t *testing.T) {
	svc := NewRankingService(newFakeSubmissionStore(), zerolog.Nop())
	results, err := svc.StudentResults(context.Background(), 42)
	if err != nil {
		t.Fatalf("StudentResults: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty non-nil slice", results)
	}
}
