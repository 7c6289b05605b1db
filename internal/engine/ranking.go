package engine

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

// StudentRankings aggregates submissions into the cross-exam
// leaderboard: per student, scores are summed and attempts counted;
// ordering is total score descending with average score descending as
// the tie-break. Ranks are sequential 1-based positions — students tied
// on both keys keep distinct ranks in stable input order, there is no
// rank sharing. The function is pure and recomputes from the full
// submission set on every call.
func StudentRankings(submissions []model.Submission) []model.StudentRanking {
	index := make(map[int]int, len(submissions))
	rows := make([]model.StudentRanking, 0)

	for _, sub := range submissions {
		i, ok := index[sub.StudentID]
		if !ok {
			i = len(rows)
			index[sub.StudentID] = i
			rows = append(rows, model.StudentRanking{StudentID: sub.StudentID})
		}
		rows[i].TotalScore += sub.TotalScore
		rows[i].TotalExams++
	}

	for i := range rows {
		rows[i].AverageScore = round2(float64(rows[i].TotalScore) / float64(rows[i].TotalExams))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].AverageScore > rows[j].AverageScore
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// ExamRankings builds a single exam's leaderboard: score descending,
// with faster completion winning equal scores. Ranks are sequential and
// 1-based.
func ExamRankings(examID uuid.UUID, submissions []model.Submission) []model.ExamRanking {
	rows := make([]model.ExamRanking, 0)
	for _, sub := range submissions {
		if sub.ExamID != examID {
			continue
		}
		rows = append(rows, model.ExamRanking{
			SubmissionID:     sub.ID,
			StudentID:        sub.StudentID,
			Score:            sub.TotalScore,
			TimeSpentMinutes: sub.TimeSpentMinutes,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].TimeSpentMinutes < rows[j].TimeSpentMinutes
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
