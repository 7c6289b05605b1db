package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository handles finalized attempt results.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Upsert stores a submission idempotently. A student has at most one
// submission per exam; replays of the same finalization keep the first
// stored row and return its ID.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *model.Submission) error {
	perSection, err := json.Marshal(s.PerSection)
	if err != nil {
		return fmt.Errorf("marshal per-section scores: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions
		   (exam_id, student_id, total_score, per_section, time_spent_minutes, break_seconds_used, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id`,
		s.ExamID, s.StudentID, s.TotalScore, perSection,
		s.TimeSpentMinutes, s.BreakSecondsUsed, s.SubmittedAt,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row already existed; fetch the original ID.
		return r.pool.QueryRow(ctx,
			`SELECT id FROM submissions WHERE exam_id = $1 AND student_id = $2`,
			s.ExamID, s.StudentID,
		).Scan(&s.ID)
	}
	return err
}

// Exists reports whether a student has already submitted an exam.
func (r *SubmissionRepository) Exists(ctx context.Context, examID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE exam_id = $1 AND student_id = $2)`,
		examID, studentID,
	).Scan(&exists)
	return exists, err
}

// ListByExam returns all submissions for one exam, joined with student names.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Submission, map[int]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sub.id, sub.exam_id, e.title, sub.student_id, st.name,
		        sub.total_score, sub.per_section, sub.time_spent_minutes,
		        sub.break_seconds_used, sub.submitted_at
		 FROM submissions sub
		 JOIN exams e ON e.id = sub.exam_id
		 JOIN students st ON st.id = sub.student_id
		 WHERE sub.exam_id = $1
		 ORDER BY sub.submitted_at`, examID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// ListByStudent returns a student's submissions across all exams.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, map[int]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sub.id, sub.exam_id, e.title, sub.student_id, st.name,
		        sub.total_score, sub.per_section, sub.time_spent_minutes,
		        sub.break_seconds_used, sub.submitted_at
		 FROM submissions sub
		 JOIN exams e ON e.id = sub.exam_id
		 JOIN students st ON st.id = sub.student_id
		 WHERE sub.student_id = $1
		 ORDER BY sub.submitted_at`, studentID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// ListAll returns every submission. Used for leaderboard computation.
func (r *SubmissionRepository) ListAll(ctx context.Context) ([]model.Submission, map[int]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sub.id, sub.exam_id, e.title, sub.student_id, st.name,
		        sub.total_score, sub.per_section, sub.time_spent_minutes,
		        sub.break_seconds_used, sub.submitted_at
		 FROM submissions sub
		 JOIN exams e ON e.id = sub.exam_id
		 JOIN students st ON st.id = sub.student_id
		 ORDER BY sub.submitted_at`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// scanSubmissions collects rows into submissions plus a studentID → name map.
func scanSubmissions(rows pgx.Rows) ([]model.Submission, map[int]string, error) {
	var subs []model.Submission
	names := make(map[int]string)

	for rows.Next() {
		var s model.Submission
		var name string
		var perSection []byte
		if err := rows.Scan(&s.ID, &s.ExamID, &s.ExamTitle, &s.StudentID, &name,
			&s.TotalScore, &perSection, &s.TimeSpentMinutes,
			&s.BreakSecondsUsed, &s.SubmittedAt); err != nil {
			return nil, nil, err
		}
		if len(perSection) > 0 {
			if err := json.Unmarshal(perSection, &s.PerSection); err != nil {
				return nil, nil, fmt.Errorf("unmarshal per-section scores: %w", err)
			}
		}
		names[s.StudentID] = name
		subs = append(subs, s)
	}
	return subs, names, rows.Err()
}
