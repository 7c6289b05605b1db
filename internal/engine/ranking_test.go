package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

func TestStudentRankingsAverageTieBreak(t *testing.T) {
	// X: 4 + 5 over two exams (total 9, avg 4.5).
	// Y: 3 + 3 + 3 over three exams (total 9, avg 3.0).
	// Same total, higher average wins.
	subs := []model.Submission{
		{StudentID: 1, TotalScore: 4},
		{StudentID: 2, TotalScore: 3},
		{StudentID: 1, TotalScore: 5},
		{StudentID: 2, TotalScore: 3},
		{StudentID: 2, TotalScore: 3},
	}

	got := StudentRankings(subs)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].StudentID != 1 || got[0].Rank != 1 {
		t.Fatalf("rank 1 = student %d, want student 1", got[0].StudentID)
	}
	if got[0].TotalScore != 9 || got[0].TotalExams != 2 || got[0].AverageScore != 4.5 {
		t.Fatalf("student 1 row = %+v", got[0])
	}
	if got[1].StudentID != 2 || got[1].Rank != 2 {
		t.Fatalf("rank 2 = student %d, want student 2", got[1].StudentID)
	}
	if got[1].AverageScore != 3.0 {
		t.Fatalf("student 2 average = %v, want 3.0", got[1].AverageScore)
	}
}

func TestStudentRankingsFullTieKeepsInputOrder(t *testing.T) {
	subs := []model.Submission{
		{StudentID: 10, TotalScore: 5},
		{StudentID: 20, TotalScore: 5},
	}

	got := StudentRankings(subs)
	// Identical total and average: distinct sequential ranks, stable
	// input order, no rank sharing.
	if got[0].StudentID != 10 || got[0].Rank != 1 {
		t.Fatalf("first row = %+v, want student 10 at rank 1", got[0])
	}
	if got[1].StudentID != 20 || got[1].Rank != 2 {
		t.Fatalf("second row = %+v, want student 20 at rank 2", got[1])
	}
}

func TestStudentRankingsAverageRounding(t *testing.T) {
	subs := []model.Submission{
		{StudentID: 1, TotalScore: 1},
		{StudentID: 1, TotalScore: 1},
		{StudentID: 1, TotalScore: 2},
	}
	got := StudentRankings(subs)
	// 4/3 rounds to two decimals.
	if got[0].AverageScore != 1.33 {
		t.Fatalf("AverageScore = %v, want 1.33", got[0].AverageScore)
	}
}

func TestExamRankingsTimeTieBreak(t *testing.T) {
	examID := uuid.New()
	otherExam := uuid.New()

	subs := []model.Submission{
		{ID: uuid.New(), ExamID: examID, StudentID: 1, TotalScore: 5, TimeSpentMinutes: 25},
		{ID: uuid.New(), ExamID: examID, StudentID: 2, TotalScore: 5, TimeSpentMinutes: 20},
		{ID: uuid.New(), ExamID: examID, StudentID: 3, TotalScore: 5, TimeSpentMinutes: 15},
		{ID: uuid.New(), ExamID: otherExam, StudentID: 4, TotalScore: 9, TimeSpentMinutes: 1},
	}

	got := ExamRankings(examID, subs)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (other exam filtered out)", len(got))
	}

	wantOrder := []int{3, 2, 1} // lower time wins equal scores
	for i, studentID := range wantOrder {
		if got[i].StudentID != studentID {
			t.Errorf("position %d = student %d, want %d", i, got[i].StudentID, studentID)
		}
		if got[i].Rank != i+1 {
			t.Errorf("position %d rank = %d, want %d", i, got[i].Rank, i+1)
		}
	}
}

func TestExamRankingsScoreBeatsTime(t *testing.T) {
	examID := uuid.New()
	subs := []model.Submission{
		{ExamID: examID, StudentID: 1, TotalScore: 3, TimeSpentMinutes: 5},
		{ExamID: examID, StudentID: 2, TotalScore: 8, TimeSpentMinutes: 40},
	}
	got := ExamRankings(examID, subs)
	if got[0].StudentID != 2 {
		t.Fatalf("rank 1 = student %d, want higher score regardless of time", got[0].StudentID)
	}
}
