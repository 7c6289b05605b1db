package service

import (
	"context"
	"fmt"

	"github.com/examgate/examgate-backend/internal/engine"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RankingService computes leaderboards over stored submissions.
type RankingService struct {
	subRepo SubmissionStore
	log     zerolog.Logger
}

// NewRankingService creates a new RankingService.
func NewRankingService(subRepo SubmissionStore, log zerolog.Logger) *RankingService {
	return &RankingService{
		subRepo: subRepo,
		log:     log.With().Str("component", "ranking_service").Logger(),
	}
}

// StudentLeaderboard ranks all students across every submitted exam by
// cumulative score, ties broken by average score.
func (s *RankingService) StudentLeaderboard(ctx context.Context) ([]model.StudentRanking, error) {
	subs, names, err := s.subRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	rankings := engine.StudentRankings(subs)
	for i := range rankings {
		rankings[i].StudentName = names[rankings[i].StudentID]
	}
	return rankings, nil
}

// ExamLeaderboard ranks submissions of one exam by score, ties broken by
// faster completion.
func (s *RankingService) ExamLeaderboard(ctx context.Context, examID uuid.UUID) ([]model.ExamRanking, error) {
	subs, names, err := s.subRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	rankings := engine.ExamRankings(examID, subs)
	for i := range rankings {
		rankings[i].StudentName = names[rankings[i].StudentID]
	}
	return rankings, nil
}

// StudentResults returns one student's submission history.
func (s *RankingService) StudentResults(ctx context.Context, studentID int) ([]model.Submission, error) {
	subs, _, err := s.subRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

// ExamResults returns all submissions for one exam.
func (s *RankingService) ExamResults(ctx context.Context, examID uuid.UUID) ([]model.Submission, error) {
	subs, _, err := s.subRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}
