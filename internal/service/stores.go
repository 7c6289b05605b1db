package service

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
)

// ExamStore is the exam persistence contract consumed by services.
// Satisfied by repository.ExamRepository.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetFullByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error)
	ListPublished(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubmissionStore is the submission persistence contract consumed by
// services. Satisfied by repository.SubmissionRepository. List methods
// also return a studentID → display name map for ranking output.
type SubmissionStore interface {
	Upsert(ctx context.Context, s *model.Submission) error
	Exists(ctx context.Context, examID uuid.UUID, studentID int) (bool, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Submission, map[int]string, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Submission, map[int]string, error)
	ListAll(ctx context.Context) ([]model.Submission, map[int]string, error)
}
