package repository

import (
	"context"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam, section and question data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam row without its sections.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, author_id, duration_minutes, allow_breaks,
		        break_budget_seconds, entry_token, status, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.AuthorID, &e.DurationMinutes, &e.AllowBreaks,
		&e.BreakBudgetSeconds, &e.EntryToken, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetFullByID retrieves an exam with its sections and questions, ordered.
func (r *ExamRepository) GetFullByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, title, order_num
		 FROM sections WHERE exam_id = $1 ORDER BY order_num`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sectionIdx := make(map[uuid.UUID]int)
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.ExamID, &s.Title, &s.OrderNum); err != nil {
			return nil, err
		}
		sectionIdx[s.ID] = len(e.Sections)
		e.Sections = append(e.Sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qRows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.prompt, q.options, q.correct_option, q.order_num
		 FROM questions q
		 JOIN sections s ON s.id = q.section_id
		 WHERE s.exam_id = $1
		 ORDER BY s.order_num, q.order_num`, id)
	if err != nil {
		return nil, err
	}
	defer qRows.Close()

	for qRows.Next() {
		var q model.Question
		if err := qRows.Scan(&q.ID, &q.SectionID, &q.Prompt, &q.Options, &q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		idx, ok := sectionIdx[q.SectionID]
		if !ok {
			return nil, fmt.Errorf("question %s references unknown section %s", q.ID, q.SectionID)
		}
		e.Sections[idx].Questions = append(e.Sections[idx].Questions, q)
	}
	return e, qRows.Err()
}

// ListByAuthorPaginated retrieves exams filtered by author with pagination.
// Pass authorID=0 to list all exams.
func (r *ExamRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error) {
	countQuery := `SELECT COUNT(*) FROM exams`
	var countArgs []interface{}
	if authorID > 0 {
		countQuery += ` WHERE author_id = $1`
		countArgs = append(countArgs, authorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, title, author_id, duration_minutes, allow_breaks,
	                 break_budget_seconds, entry_token, status, created_at, updated_at
	          FROM exams`
	var args []interface{}
	argIdx := 1

	if authorID > 0 {
		query += ` WHERE author_id = $1`
		args = append(args, authorID)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.AuthorID, &e.DurationMinutes, &e.AllowBreaks,
			&e.BreakBudgetSeconds, &e.EntryToken, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all exams with PUBLISHED status.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, author_id, duration_minutes, allow_breaks,
		        break_budget_seconds, entry_token, status, created_at, updated_at
		 FROM exams WHERE status = 'PUBLISHED' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.AuthorID, &e.DurationMinutes, &e.AllowBreaks,
			&e.BreakBudgetSeconds, &e.EntryToken, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts an exam with its full section/question structure in one
// transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, author_id, duration_minutes, allow_breaks, break_budget_seconds, entry_token, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.AuthorID, e.DurationMinutes, e.AllowBreaks,
		e.BreakBudgetSeconds, e.EntryToken, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	for i := range e.Sections {
		sec := &e.Sections[i]
		sec.ExamID = e.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO sections (exam_id, title, order_num)
			 VALUES ($1, $2, $3) RETURNING id`,
			sec.ExamID, sec.Title, sec.OrderNum,
		).Scan(&sec.ID)
		if err != nil {
			return fmt.Errorf("insert section %d: %w", i, err)
		}

		for j := range sec.Questions {
			q := &sec.Questions[j]
			q.SectionID = sec.ID
			err = tx.QueryRow(ctx,
				`INSERT INTO questions (section_id, prompt, options, correct_option, order_num)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				q.SectionID, q.Prompt, q.Options, q.CorrectOption, q.OrderNum,
			).Scan(&q.ID)
			if err != nil {
				return fmt.Errorf("insert question %d/%d: %w", i, j, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// Update modifies settings of a draft exam.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, duration_minutes = $2, allow_breaks = $3,
		     break_budget_seconds = $4, entry_token = $5, updated_at = NOW()
		 WHERE id = $6`,
		e.Title, e.DurationMinutes, e.AllowBreaks, e.BreakBudgetSeconds, e.EntryToken, e.ID)
	return err
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes an exam. Sections and questions cascade.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
