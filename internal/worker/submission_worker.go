package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
)

// SubmissionWorker consumes persist_submissions_queue and UPSERTs
// finalized submissions to PostgreSQL in batches. Failed payloads are
// requeued, so a finalized result survives transient database outages.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*model.Submission, 0, SubmissionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SubmissionBatchSize || time.Since(lastFlush) >= SubmissionBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SubmissionPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var sub model.Submission
			if err := json.Unmarshal([]byte(item[1]), &sub); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &sub)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*model.Submission) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk submission upsert failed, using fallback")

		for _, sub := range batch {
			if err := w.persistSingle(ctx, sub); err != nil {
				w.log.Error().Err(err).
					Str("exam_id", sub.ExamID.String()).
					Int("student_id", sub.StudentID).
					Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(sub)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Submission batch persisted")
}

// bulkUpsert inserts the batch in one statement via UNNEST. The
// (exam_id, student_id) conflict target keeps the first stored result.
func (w *SubmissionWorker) bulkUpsert(ctx context.Context, batch []*model.Submission) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	totals := make([]int, 0, n)
	perSections := make([]string, 0, n)
	timeSpents := make([]int, 0, n)
	breakUsed := make([]int, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, sub := range batch {
		perSection, err := json.Marshal(sub.PerSection)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, sub.ExamID)
		students = append(students, sub.StudentID)
		totals = append(totals, sub.TotalScore)
		perSections = append(perSections, string(perSection))
		timeSpents = append(timeSpents, sub.TimeSpentMinutes)
		breakUsed = append(breakUsed, sub.BreakSecondsUsed)
		submittedAts = append(submittedAts, sub.SubmittedAt)
	}

	query := `
		INSERT INTO submissions
		  (exam_id, student_id, total_score, per_section, time_spent_minutes, break_seconds_used, submitted_at)
		SELECT u.exam_id, u.student_id, u.total_score, u.per_section::jsonb,
		       u.time_spent_minutes, u.break_seconds_used, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::int[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::timestamptz[]
		) AS u (exam_id, student_id, total_score, per_section, time_spent_minutes, break_seconds_used, submitted_at)
		ON CONFLICT (exam_id, student_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query, examIDs, students, totals, perSections, timeSpents, breakUsed, submittedAts)
	return err
}

func (w *SubmissionWorker) persistSingle(ctx context.Context, sub *model.Submission) error {
	perSection, err := json.Marshal(sub.PerSection)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO submissions
		   (exam_id, student_id, total_score, per_section, time_spent_minutes, break_seconds_used, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (exam_id, student_id) DO NOTHING`,
		sub.ExamID, sub.StudentID, sub.TotalScore, perSection,
		sub.TimeSpentMinutes, sub.BreakSecondsUsed, sub.SubmittedAt,
	)
	return err
}
