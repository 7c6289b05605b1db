package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/examgate/examgate-backend/internal/engine"
	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	ws "github.com/examgate/examgate-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// statePushInterval is how often the countdown state is streamed to the
// client without being asked.
const statePushInterval = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket: answer saves,
// navigation, marks, breaks, countdown pushes and the graded event.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// wsSession serializes writes; gorilla connections allow one concurrent
// writer and we write from both the read loop and the push goroutine.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *wsSession) sendError(err error) {
	_, code := mapAttemptError(err)
	s.sendErrorCode(code, response.GetMessage(code))
}

func (s *wsSession) sendErrorCode(code response.ErrCode, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = ws.WriteError(s.conn, string(code), msg)
}

func unmarshalWS(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Requires a live attempt; start one over REST before connecting.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID
	sess := &wsSession{conn: conn}

	attempt, err := h.attemptService.Attempt(examID, studentID)
	if err != nil {
		sess.sendError(err)
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.pushLoop(ctx, sess, attempt, wsLog)

	// Initial state so the client can render immediately.
	_ = sess.send(ws.StateResponse{Event: ws.EventState, State: attempt.Snapshot()})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		h.dispatch(ctx, sess, wsLog, examID, studentID, raw)
	}
}

// pushLoop streams the countdown state periodically and announces the
// graded result the moment the attempt finalizes, whatever the trigger.
func (h *WSHandler) pushLoop(ctx context.Context, sess *wsSession, attempt *engine.Attempt, wsLog zerolog.Logger) {
	ticker := time.NewTicker(statePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-attempt.Done():
			sub := attempt.Submission()
			trigger := model.TriggerManualSubmit
			if attempt.Remaining() == 0 {
				trigger = model.TriggerTimeExpired
			}
			if err := sess.send(ws.GradedResponse{
				Event:      ws.EventGraded,
				Trigger:    string(trigger),
				Submission: sub,
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Graded push failed")
			}
			return
		case <-ticker.C:
			if err := sess.send(ws.StateResponse{Event: ws.EventState, State: attempt.Snapshot()}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sess *wsSession, wsLog zerolog.Logger, examID uuid.UUID, studentID int, raw []byte) {
	var envelope ws.RequestEnvelope
	if err := unmarshalWS(raw, &envelope); err != nil {
		sess.sendErrorCode(response.ErrInvalidPayload, "malformed message")
		return
	}

	var (
		state *model.AttemptState
		err   error
	)

	switch envelope.Action {
	case ws.ActionAnswer:
		var msg ws.AnswerRequest
		if err := unmarshalWS(raw, &msg); err != nil {
			sess.sendError(engine.ErrUnknownQuestion)
			return
		}
		state, err = h.attemptService.SaveAnswer(ctx, examID, studentID, &model.SaveAnswerRequest{
			QuestionID:  msg.QuestionID,
			OptionIndex: msg.OptionIndex,
		})

	case ws.ActionNavigate:
		var msg ws.NavigateRequest
		if err := unmarshalWS(raw, &msg); err != nil {
			sess.sendError(engine.ErrInvalidNavigation)
			return
		}
		state, err = h.attemptService.Navigate(examID, studentID, &model.NavigateRequest{
			Action:        msg.Move,
			SectionIndex:  msg.SectionIndex,
			QuestionIndex: msg.QuestionIndex,
		})

	case ws.ActionMark:
		var msg ws.MarkRequest
		if err := unmarshalWS(raw, &msg); err != nil {
			sess.sendError(engine.ErrInvalidNavigation)
			return
		}
		state, err = h.attemptService.ToggleMark(examID, studentID, &model.MarkRequest{
			SectionIndex:  msg.SectionIndex,
			QuestionIndex: msg.QuestionIndex,
		})

	case ws.ActionBreakStart:
		state, err = h.attemptService.StartBreak(examID, studentID)

	case ws.ActionBreakEnd:
		state, err = h.attemptService.EndBreak(examID, studentID)

	case ws.ActionState:
		state, err = h.attemptService.State(examID, studentID)

	case ws.ActionSubmit:
		// The graded event is delivered by the push loop once the
		// finalize latch fires.
		_, err = h.attemptService.Submit(examID, studentID)
		if err == nil {
			return
		}

	case ws.ActionPing:
		_ = sess.send(ws.PongResponse{Event: ws.EventPong})
		return

	default:
		wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
		sess.sendErrorCode(response.ErrInvalidPayload, "unknown action: "+string(envelope.Action))
		return
	}

	if err != nil {
		sess.sendError(err)
		return
	}
	if state != nil {
		_ = sess.send(ws.StateResponse{Event: ws.EventState, State: state})
	}
}
