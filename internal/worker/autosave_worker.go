package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const autosavePollTimeout = 1 * time.Second

// answerPayload mirrors the JSON pushed by AttemptService.SaveAnswer.
type answerPayload struct {
	StudentID  int    `json:"student_id"`
	ExamID     string `json:"exam_id"`
	QuestionID string `json:"question_id"`
	Option     int    `json:"option"`
}

// AutosaveWorker consumes persist_answers_queue and UPSERTs individual
// answers to PostgreSQL, giving a durable per-question trail next to
// the in-memory attempt state.
type AutosaveWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining queue...")
			w.drain()
			return

		default:
			item, err := w.rdb.BLPop(ctx, autosavePollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			w.process(ctx, item[1])
		}
	}
}

func (w *AutosaveWorker) process(ctx context.Context, raw string) {
	var payload answerPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.upsertAnswer(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("exam_id", payload.ExamID).
			Int("student_id", payload.StudentID).
			Msg("Answer upsert failed — requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
		// Back off so a dead database does not spin the loop.
		time.Sleep(5 * time.Second)
	}
}

func (w *AutosaveWorker) upsertAnswer(ctx context.Context, p *answerPayload) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO student_answers (exam_id, student_id, question_id, option_index, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (exam_id, student_id, question_id)
		 DO UPDATE SET option_index = EXCLUDED.option_index, updated_at = NOW()`,
		p.ExamID, p.StudentID, p.QuestionID, p.Option,
	)
	return err
}

// drain flushes whatever remains in the queue during shutdown.
func (w *AutosaveWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			return
		}

		var payload answerPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			continue
		}
		if err := w.upsertAnswer(ctx, &payload); err != nil {
			// Put it back and stop; the rest will be picked up on restart.
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			return
		}
	}
}
