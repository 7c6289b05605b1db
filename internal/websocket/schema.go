package websocket

import (
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer     Action = "answer"
	ActionNavigate   Action = "navigate"
	ActionMark       Action = "mark"
	ActionBreakStart Action = "break_start"
	ActionBreakEnd   Action = "break_end"
	ActionState      Action = "state"
	ActionSubmit     Action = "submit"
	ActionPing       Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records an answer for a question.
type AnswerRequest struct {
	Action      Action    `json:"action"`
	QuestionID  uuid.UUID `json:"question_id"`
	OptionIndex int       `json:"option_index"`
}

// NavigateRequest moves the attempt cursor.
type NavigateRequest struct {
	Action        Action               `json:"action"`
	Move          model.NavigateAction `json:"move"`
	SectionIndex  int                  `json:"section_index"`
	QuestionIndex int                  `json:"question_index"`
}

// MarkRequest toggles the marked-for-later flag on a question.
type MarkRequest struct {
	Action        Action `json:"action"`
	SectionIndex  int    `json:"section_index"`
	QuestionIndex int    `json:"question_index"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventState  Event = "state"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

// StateResponse carries the full attempt snapshot after every mutation
// and on each timer push.
type StateResponse struct {
	Event Event               `json:"event"`
	State *model.AttemptState `json:"state"`
}

// GradedResponse announces finalization with the scored submission.
type GradedResponse struct {
	Event      Event             `json:"event"`
	Trigger    string            `json:"trigger"`
	Submission *model.Submission `json:"submission"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
