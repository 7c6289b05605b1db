package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ────────────────────────────────────────────────────────────────────────────

type fakeExamStore struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
}

func newFakeExamStore(exams ...*model.Exam) *fakeExamStore {
	s := &fakeExamStore{exams: make(map[uuid.UUID]*model.Exam)}
	for _, e := range exams {
		s.exams[e.ID] = e
	}
	return s
}

func (s *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return e, nil
}

func (s *fakeExamStore) GetFullByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeExamStore) ListByAuthorPaginated(_ context.Context, _, _, _ int) ([]model.Exam, int, error) {
	return nil, 0, nil
}

func (s *fakeExamStore) ListPublished(_ context.Context) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Exam
	for _, e := range s.exams {
		if e.Status == model.ExamStatusPublished {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeExamStore) Create(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	s.exams[e.ID] = e
	return nil
}

func (s *fakeExamStore) Update(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = e
	return nil
}

func (s *fakeExamStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.ExamStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Status = status
	return nil
}

func (s *fakeExamStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exams, id)
	return nil
}

type subKey struct {
	examID    uuid.UUID
	studentID int
}

type fakeSubmissionStore struct {
	mu    sync.Mutex
	subs  map[subKey]*model.Submission
	names map[int]string
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{
		subs:  make(map[subKey]*model.Submission),
		names: make(map[int]string),
	}
}

func (s *fakeSubmissionStore) Upsert(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey{sub.ExamID, sub.StudentID}
	if existing, ok := s.subs[key]; ok {
		sub.ID = existing.ID
		return nil
	}
	sub.ID = uuid.New()
	stored := *sub
	s.subs[key] = &stored
	return nil
}

func (s *fakeSubmissionStore) Exists(_ context.Context, examID uuid.UUID, studentID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[subKey{examID, studentID}]
	return ok, nil
}

func (s *fakeSubmissionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Submission, map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Submission
	for key, sub := range s.subs {
		if key.examID == examID {
			out = append(out, *sub)
		}
	}
	return out, s.names, nil
}

func (s *fakeSubmissionStore) ListByStudent(_ context.Context, studentID int) ([]model.Submission, map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Submission
	for key, sub := range s.subs {
		if key.studentID == studentID {
			out = append(out, *sub)
		}
	}
	return out, s.names, nil
}

func (s *fakeSubmissionStore) ListAll(_ context.Context) ([]model.Submission, map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Submission
	for _, sub := range s.subs {
		out = append(out, *sub)
	}
	return out, s.names, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────

// deadRedis returns a client pointing at a closed port. Queue pushes and
// answer mirrors fail fast, exercising the synchronous fallback paths.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func testExam(status model.ExamStatus, token string) *model.Exam {
	examID := uuid.New()
	sectionID := uuid.New()
	questions := make([]model.Question, 3)
	for i := range questions {
		questions[i] = model.Question{
			ID:            uuid.New(),
			SectionID:     sectionID,
			Prompt:        "prompt",
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 1,
			OrderNum:      i,
		}
	}
	return &model.Exam{
		ID:              examID,
		Title:           "Algebra Basics",
		AuthorID:        1,
		DurationMinutes: 30,
		EntryToken:      token,
		Status:          status,
		Sections: []model.Section{
			{ID: sectionID, ExamID: examID, Title: "Section 1", Questions: questions},
		},
	}
}

func newTestAttemptService(t *testing.T, exams *fakeExamStore, subs *fakeSubmissionStore) *AttemptService {
	t.Helper()
	svc := NewAttemptService(exams, subs, deadRedis(), nil, zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc
}

// ────────────────────────────────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────────────────────────────────

func TestStartIsIdempotent(t *testing.T) {
	exam := testExam(model.ExamStatusPublished, "")
	svc := newTestAttemptService(t, newFakeExamStore(exam), newFakeSubmissionStore())

	first, err := svc.Start(context.Background(), exam.ID, 7, "")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	if _, err := svc.SaveAnswer(context.Background(), exam.ID, 7, &model.SaveAnswerRequest{
		QuestionID:  exam.Sections[0].Questions[0].ID,
		OptionIndex: 1,
	}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	second, err := svc.Start(context.Background(), exam.ID, 7, "")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if second.AnsweredCount != 1 {
		t.Errorf("second Start lost progress: answered = %d, want 1", second.AnsweredCount)
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Errorf("second Start restarted the clock: %v != %v", second.StartedAt, first.StartedAt)
	}
}

func TestStartRejections(t *testing.T) {
	draft := testExam(model.ExamStatusDraft, "")
	gated := testExam(model.ExamStatusPublished, "SECRET")
	done := testExam(model.ExamStatusPublished, "")

	subs := newFakeSubmissionStore()
	subs.subs[subKey{done.ID, 7}] = &model.Submission{ID: uuid.New(), ExamID: done.ID, StudentID: 7}

	svc := newTestAttemptService(t, newFakeExamStore(draft, gated, done), subs)

	tests := []struct {
		name    string
		examID  uuid.UUID
		token   string
		wantErr error
	}{
		{"unknown exam", uuid.New(), "", pgx.ErrNoRows},
		{"draft exam", draft.ID, "", ErrExamNotAvailable},
		{"wrong entry token", gated.ID, "WRONG", ErrInvalidEntryToken},
		{"already submitted", done.ID, "", ErrAlreadySubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Start(context.Background(), tt.examID, 7, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartAcceptsMatchingToken(t *testing.T) {
	exam := testExam(model.ExamStatusPublished, "SECRET")
	svc := newTestAttemptService(t, newFakeExamStore(exam), newFakeSubmissionStore())

	if _, err := svc.Start(context.Background(), exam.ID, 7, "SECRET"); err != nil {
		t.Fatalf("Start with correct token: %v", err)
	}
}

func TestSubmitFallsBackToDirectPersist(t *testing.T) {
	exam := testExam(model.ExamStatusPublished, "")
	subs := newFakeSubmissionStore()
	svc := newTestAttemptService(t, newFakeExamStore(exam), subs)

	if _, err := svc.Start(context.Background(), exam.ID, 7, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.SaveAnswer(context.Background(), exam.ID, 7, &model.SaveAnswerRequest{
		QuestionID:  exam.Sections[0].Questions[2].ID,
		OptionIndex: 1,
	}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	sub, err := svc.Submit(exam.ID, 7)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.TotalScore != 1 {
		t.Errorf("TotalScore = %d, want 1", sub.TotalScore)
	}

	// Queue push fails against the dead Redis, so the finalize hook must
	// have written the submission straight to the store.
	exists, err := subs.Exists(context.Background(), exam.ID, 7)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("submission was not persisted by the finalize fallback")
	}
}

func TestSubmitTwiceReturnsSameSubmission(t *testing.T) {
	exam := testExam(model.ExamStatusPublished, "")
	svc := newTestAttemptService(t, newFakeExamStore(exam), newFakeSubmissionStore())

	if _, err := svc.Start(context.Background(), exam.ID, 7, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first, err := svc.Submit(exam.ID, 7)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := svc.Submit(exam.ID, 7)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if first != second {
		t.Error("repeated Submit built a new submission")
	}
}

func TestMutationsRequireLiveAttempt(t *testing.T) {
	exam := testExam(model.ExamStatusPublished, "")
	svc := newTestAttemptService(t, newFakeExamStore(exam), newFakeSubmissionStore())

	_, err := svc.Navigate(exam.ID, 7, &model.NavigateRequest{Action: model.NavigateNext})
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("Navigate without attempt: error = %v, want ErrAttemptNotFound", err)
	}
	_, err = svc.StartBreak(exam.ID, 7)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("StartBreak without attempt: error = %v, want ErrAttemptNotFound", err)
	}
}

func TestLobbyOverlay(t *testing.T) {
	available := testExam(model.ExamStatusPublished, "TOKEN")
	inProgress := testExam(model.ExamStatusPublished, "")
	completed := testExam(model.ExamStatusPublished, "")
	hidden := testExam(model.ExamStatusDraft, "")

	subs := newFakeSubmissionStore()
	subs.subs[subKey{completed.ID, 7}] = &model.Submission{
		ID: uuid.New(), ExamID: completed.ID, StudentID: 7, TotalScore: 3,
	}

	svc := newTestAttemptService(t, newFakeExamStore(available, inProgress, completed, hidden), subs)
	if _, err := svc.Start(context.Background(), inProgress.ID, 7, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	lobby, err := svc.Lobby(context.Background(), 7)
	if err != nil {
		t.Fatalf("Lobby: %v", err)
	}
	if len(lobby) != 3 {
		t.Fatalf("lobby has %d exams, want 3 (draft hidden)", len(lobby))
	}

	byExam := make(map[uuid.UUID]LobbyExam)
	for _, entry := range lobby {
		byExam[entry.ExamID] = entry
	}

	if got := byExam[available.ID]; got.LobbyStatus != LobbyStatusAvailable || !got.RequiresToken {
		t.Errorf("available exam = %+v, want AVAILABLE with token required", got)
	}
	if got := byExam[inProgress.ID]; got.LobbyStatus != LobbyStatusInProgress {
		t.Errorf("in-progress exam status = %s, want IN_PROGRESS", got.LobbyStatus)
	}
	got := byExam[completed.ID]
	if got.LobbyStatus != LobbyStatusCompleted {
		t.Errorf("completed exam status = %s, want COMPLETED", got.LobbyStatus)
	}
	if got.Score == nil || *got.Score != 3 {
		t.Errorf("completed exam score = %v, want 3", got.Score)
	}
}
