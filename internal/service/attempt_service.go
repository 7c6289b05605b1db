package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/engine"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt errors.
var (
	ErrExamNotAvailable  = errors.New("exam is not available")
	ErrInvalidEntryToken = errors.New("invalid entry token")
	ErrAlreadySubmitted  = errors.New("exam already submitted")
	ErrAttemptNotFound   = errors.New("no active attempt for this exam")
)

// finalizeTimeout bounds the Redis work done in the finalize hook.
const finalizeTimeout = 10 * time.Second

type attemptKey struct {
	ExamID    uuid.UUID
	StudentID int
}

// AttemptService owns all live attempts. Each attempt is an in-memory
// aggregate driven by its own countdown runner; persistence of answers
// and submissions is asynchronous through Redis queues.
type AttemptService struct {
	mu       sync.RWMutex
	attempts map[attemptKey]*engine.Attempt

	examRepo ExamStore
	subRepo  SubmissionStore
	rdb      *redis.Client
	clock    engine.Clock
	log      zerolog.Logger

	runCtx context.Context
	cancel context.CancelFunc
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(examRepo ExamStore, subRepo SubmissionStore, rdb *redis.Client, clock engine.Clock, log zerolog.Logger) *AttemptService {
	runCtx, cancel := context.WithCancel(context.Background())
	return &AttemptService{
		attempts: make(map[attemptKey]*engine.Attempt),
		examRepo: examRepo,
		subRepo:  subRepo,
		rdb:      rdb,
		clock:    clock,
		log:      log.With().Str("component", "attempt_service").Logger(),
		runCtx:   runCtx,
		cancel:   cancel,
	}
}

// Shutdown stops every attempt's countdown runner. Live attempts are
// in-memory only and do not survive a restart; finalized submissions
// already sit in the persistence queue.
func (s *AttemptService) Shutdown() {
	s.cancel()
}

// Start begins (or resumes) an attempt. Calling Start again for an
// attempt that is already live returns its current state unchanged.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, studentID int, entryToken string) (*model.AttemptState, error) {
	key := attemptKey{ExamID: examID, StudentID: studentID}

	s.mu.RLock()
	existing, ok := s.attempts[key]
	s.mu.RUnlock()
	if ok {
		if existing.Status() == engine.AttemptFinalized {
			return nil, ErrAlreadySubmitted
		}
		return existing.Snapshot(), nil
	}

	exam, err := s.examRepo.GetFullByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}
	if exam.EntryToken != "" && exam.EntryToken != entryToken {
		return nil, ErrInvalidEntryToken
	}

	submitted, err := s.subRepo.Exists(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if submitted {
		return nil, ErrAlreadySubmitted
	}

	attempt := engine.NewAttempt(exam, studentID, s.clock)
	attempt.OnFinalize(func(sub *model.Submission, trigger model.FinalizeTrigger) {
		s.handleFinalize(sub, trigger)
	})

	s.mu.Lock()
	if raced, ok := s.attempts[key]; ok {
		s.mu.Unlock()
		return raced.Snapshot(), nil
	}
	s.attempts[key] = attempt
	s.mu.Unlock()

	go attempt.Run(s.runCtx)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")

	return attempt.Snapshot(), nil
}

// get returns the live attempt for a student on an exam.
func (s *AttemptService) get(examID uuid.UUID, studentID int) (*engine.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptKey{ExamID: examID, StudentID: studentID}]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// Attempt exposes the live engine aggregate for read-only use by the
// streaming layer (Done channel, finalized submission). Mutations still
// go through the service so Redis mirroring is not bypassed.
func (s *AttemptService) Attempt(examID uuid.UUID, studentID int) (*engine.Attempt, error) {
	return s.get(examID, studentID)
}

// State returns the current snapshot of a live attempt.
func (s *AttemptService) State(examID uuid.UUID, studentID int) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	return attempt.Snapshot(), nil
}

// SaveAnswer records an answer in the attempt and mirrors it to Redis:
// a hash for crash recovery plus the autosave queue for asynchronous
// PostgreSQL persistence.
func (s *AttemptService) SaveAnswer(ctx context.Context, examID uuid.UUID, studentID int, req *model.SaveAnswerRequest) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	if err := attempt.SetAnswer(req.QuestionID, req.OptionIndex); err != nil {
		return nil, err
	}

	answersKey := config.CacheKey.AttemptAnswersKey(examID, studentID)
	payload, _ := json.Marshal(map[string]interface{}{
		"student_id":  studentID,
		"exam_id":     examID.String(),
		"question_id": req.QuestionID.String(),
		"option":      req.OptionIndex,
	})

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, answersKey, req.QuestionID.String(), req.OptionIndex)
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		// The answer is already recorded in memory; a mirror failure
		// only degrades crash recovery.
		s.log.Warn().Err(err).
			Str("exam_id", examID.String()).
			Int("student_id", studentID).
			Msg("Failed to mirror answer to Redis")
	}

	return attempt.Snapshot(), nil
}

// Navigate moves the attempt cursor.
func (s *AttemptService) Navigate(examID uuid.UUID, studentID int, req *model.NavigateRequest) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case model.NavigateGoTo:
		err = attempt.GoTo(req.SectionIndex, req.QuestionIndex)
	case model.NavigateNext:
		err = attempt.Next()
	case model.NavigatePrevious:
		err = attempt.Previous()
	default:
		err = engine.ErrInvalidNavigation
	}
	if err != nil {
		return nil, err
	}
	return attempt.Snapshot(), nil
}

// ToggleMark flips the marked-for-later flag on a question.
func (s *AttemptService) ToggleMark(examID uuid.UUID, studentID int, req *model.MarkRequest) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	if _, err := attempt.ToggleMark(req.SectionIndex, req.QuestionIndex); err != nil {
		return nil, err
	}
	return attempt.Snapshot(), nil
}

// StartBreak pauses the student (never the exam clock).
func (s *AttemptService) StartBreak(examID uuid.UUID, studentID int) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	if err := attempt.StartBreak(); err != nil {
		return nil, err
	}
	return attempt.Snapshot(), nil
}

// EndBreak resumes the student from a break.
func (s *AttemptService) EndBreak(examID uuid.UUID, studentID int) (*model.AttemptState, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	if err := attempt.EndBreak(); err != nil {
		return nil, err
	}
	return attempt.Snapshot(), nil
}

// Submit finalizes the attempt manually. Submitting an attempt that
// already finalized returns the original submission.
func (s *AttemptService) Submit(examID uuid.UUID, studentID int) (*model.Submission, error) {
	attempt, err := s.get(examID, studentID)
	if err != nil {
		return nil, err
	}
	sub, _ := attempt.Finalize(model.TriggerManualSubmit)
	return sub, nil
}

// handleFinalize runs exactly once per attempt, regardless of trigger.
// It queues the submission for PostgreSQL persistence and clears the
// autosave mirror.
func (s *AttemptService) handleFinalize(sub *model.Submission, trigger model.FinalizeTrigger) {
	ctx, cancelCtx := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancelCtx()

	payload, err := json.Marshal(sub)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal submission")
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, payload)
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(sub.ExamID, sub.StudentID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error().Err(err).
			Str("exam_id", sub.ExamID.String()).
			Int("student_id", sub.StudentID).
			Msg("Failed to queue submission, persisting synchronously")
		// Last resort: write directly so the result is not lost.
		if err := s.subRepo.Upsert(ctx, sub); err != nil {
			s.log.Error().Err(err).Msg("Synchronous submission persist failed")
		}
		return
	}

	s.log.Info().
		Str("exam_id", sub.ExamID.String()).
		Int("student_id", sub.StudentID).
		Str("trigger", string(trigger)).
		Int("score", sub.TotalScore).
		Msg("Attempt finalized")
}

// ────────────────────────────────────────────────────────────────────────────
// Lobby
// ────────────────────────────────────────────────────────────────────────────

// LobbyStatus represents the concrete state of an exam in the lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyExam represents an exam as displayed in the student lobby. The
// entry token never leaves the server here.
type LobbyExam struct {
	ExamID          uuid.UUID   `json:"exam_id"`
	Title           string      `json:"title"`
	DurationMinutes int         `json:"duration_minutes"`
	AllowBreaks     bool        `json:"allow_breaks"`
	RequiresToken   bool        `json:"requires_token"`
	LobbyStatus     LobbyStatus `json:"lobby_status"`
	Score           *int        `json:"score,omitempty"`
}

// Lobby returns all published exams with the student's status overlay.
func (s *AttemptService) Lobby(ctx context.Context, studentID int) ([]LobbyExam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	subs, _, err := s.subRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	scoreByExam := make(map[uuid.UUID]int, len(subs))
	for _, sub := range subs {
		scoreByExam[sub.ExamID] = sub.TotalScore
	}

	lobby := make([]LobbyExam, 0, len(exams))
	for _, exam := range exams {
		entry := LobbyExam{
			ExamID:          exam.ID,
			Title:           exam.Title,
			DurationMinutes: exam.DurationMinutes,
			AllowBreaks:     exam.AllowBreaks,
			RequiresToken:   exam.EntryToken != "",
			LobbyStatus:     LobbyStatusAvailable,
		}

		if score, ok := scoreByExam[exam.ID]; ok {
			entry.LobbyStatus = LobbyStatusCompleted
			entry.Score = &score
		} else if attempt, err := s.get(exam.ID, studentID); err == nil {
			if attempt.Status() == engine.AttemptFinalized {
				sub := attempt.Submission()
				entry.LobbyStatus = LobbyStatusCompleted
				entry.Score = &sub.TotalScore
			} else {
				entry.LobbyStatus = LobbyStatusInProgress
			}
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}
