package engine

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/examgate/examgate-backend/internal/model"
)

// AttemptStatus enumerates the attempt lifecycle states.
type AttemptStatus string

const (
	AttemptActive     AttemptStatus = "ACTIVE"
	AttemptFinalizing AttemptStatus = "FINALIZING"
	AttemptFinalized  AttemptStatus = "FINALIZED"
)

// Attempt is the mutable aggregate for one examinee's in-progress exam.
// Every event — answer edits, navigation, break toggles, timer ticks,
// finalization — goes through the single mutex, so the engine behaves as
// one logical timeline per attempt regardless of how many goroutines
// touch it.
type Attempt struct {
	mu    sync.Mutex
	clock Clock

	exam      *model.Exam
	studentID int

	answers map[uuid.UUID]int
	// Marks are keyed by question id rather than per-section index so a
	// mark in section 0 can never collide with one in section 1.
	marked map[uuid.UUID]bool

	curSection  int
	curQuestion int

	onBreak        bool
	breakStartedAt time.Time
	breakCommitted time.Duration

	startedAt time.Time
	duration  time.Duration

	status     AttemptStatus
	submission *model.Submission
	onFinalize func(*model.Submission, model.FinalizeTrigger)

	// done is closed exactly once, by the finalize latch. It cancels the
	// runner's future ticks.
	done chan struct{}

	questions map[uuid.UUID]*model.Question
}

// NewAttempt creates an active attempt over a published exam. The exam
// is treated as immutable for the attempt's whole lifetime.
func NewAttempt(exam *model.Exam, studentID int, clock Clock) *Attempt {
	if clock == nil {
		clock = SystemClock
	}

	questions := make(map[uuid.UUID]*model.Question)
	for i := range exam.Sections {
		sec := &exam.Sections[i]
		for j := range sec.Questions {
			questions[sec.Questions[j].ID] = &sec.Questions[j]
		}
	}

	return &Attempt{
		clock:     clock,
		exam:      exam,
		studentID: studentID,
		answers:   make(map[uuid.UUID]int),
		marked:    make(map[uuid.UUID]bool),
		startedAt: clock.Now(),
		duration:  time.Duration(exam.DurationMinutes) * time.Minute,
		status:    AttemptActive,
		done:      make(chan struct{}),
		questions: questions,
	}
}

// OnFinalize registers a hook invoked once, after the latch fires, with
// the freshly built submission. Set it before the attempt is exposed to
// user events.
func (a *Attempt) OnFinalize(fn func(*model.Submission, model.FinalizeTrigger)) {
	a.mu.Lock()
	a.onFinalize = fn
	a.mu.Unlock()
}

// Exam returns the immutable exam definition backing this attempt.
func (a *Attempt) Exam() *model.Exam { return a.exam }

// StudentID returns the examinee owning this attempt.
func (a *Attempt) StudentID() int { return a.studentID }

// StartedAt returns the attempt creation timestamp.
func (a *Attempt) StartedAt() time.Time { return a.startedAt }

// Status returns the current lifecycle state.
func (a *Attempt) Status() AttemptStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Submission returns the finalized submission, or nil while active.
func (a *Attempt) Submission() *model.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submission
}

// Done exposes the finalization signal for the runner.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Finalize fires the single-entry latch: the first trigger (manual
// submit or timer expiry) scores the attempt and builds the immutable
// submission; every later trigger observes the finalized state and
// no-ops. The bool reports whether this call was the winning trigger.
func (a *Attempt) Finalize(trigger model.FinalizeTrigger) (*model.Submission, bool) {
	a.mu.Lock()
	if a.status != AttemptActive {
		sub := a.submission
		a.mu.Unlock()
		return sub, false
	}
	a.status = AttemptFinalizing

	now := a.clock.Now()
	if a.onBreak {
		a.commitBreakLocked(now)
	}

	elapsed := now.Sub(a.startedAt)
	result := Score(a.exam, a.answers)

	sub := &model.Submission{
		ExamID:           a.exam.ID,
		ExamTitle:        a.exam.Title,
		StudentID:        a.studentID,
		TotalScore:       result.Total,
		PerSection:       result.PerSection,
		TimeSpentMinutes: int(math.Round(elapsed.Minutes())),
		BreakSecondsUsed: int(a.breakCommitted / time.Second),
		SubmittedAt:      now,
	}

	a.submission = sub
	a.status = AttemptFinalized
	close(a.done)
	hook := a.onFinalize
	a.mu.Unlock()

	if hook != nil {
		hook(sub, trigger)
	}
	return sub, true
}

// Snapshot builds the examinee-facing state view in one critical section.
func (a *Attempt) Snapshot() *model.AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	a.syncBreakLocked(now)

	answers := make(map[string]int, len(a.answers))
	for id, opt := range a.answers {
		answers[id.String()] = opt
	}

	marked := make([]uuid.UUID, 0, len(a.marked))
	for i := range a.exam.Sections {
		for _, q := range a.exam.Sections[i].Questions {
			if a.marked[q.ID] {
				marked = append(marked, q.ID)
			}
		}
	}

	sectionProgress := make([]float64, len(a.exam.Sections))
	for i := range a.exam.Sections {
		sectionProgress[i] = a.sectionProgressLocked(i)
	}

	remaining := a.remainingAt(now)
	used := a.breakUsedLocked(now)
	budget := time.Duration(a.exam.BreakBudgetSeconds) * time.Second
	left := budget - used
	if left < 0 {
		left = 0
	}

	return &model.AttemptState{
		ExamID:               a.exam.ID,
		StudentID:            a.studentID,
		State:                string(a.status),
		CurrentSectionIndex:  a.curSection,
		CurrentQuestionIndex: a.curQuestion,
		Answers:              answers,
		MarkedQuestionIDs:    marked,
		AnsweredCount:        len(a.answers),
		TotalQuestions:       a.exam.TotalQuestions(),
		OverallProgress:      a.overallProgressLocked(),
		SectionProgress:      sectionProgress,
		RemainingSeconds:     int(remaining / time.Second),
		RemainingFormatted:   FormatClock(remaining),
		OnBreak:              a.onBreak,
		BreakSecondsUsed:     int(used / time.Second),
		BreakSecondsLeft:     int(left / time.Second),
		StartedAt:            a.startedAt,
	}
}
