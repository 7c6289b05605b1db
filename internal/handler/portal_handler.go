package handler

import (
	"net/http"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PortalHandler handles student-facing exam-taking endpoints. The
// WebSocket stream covers the same operations; these REST routes serve
// clients without a socket and the initial page load.
type PortalHandler struct {
	attemptService *service.AttemptService
	examService    *service.ExamService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(attemptService *service.AttemptService, examService *service.ExamService) *PortalHandler {
	return &PortalHandler{
		attemptService: attemptService,
		examService:    examService,
	}
}

// claimsAndExamID pulls the authenticated student and the :exam_id param.
func claimsAndExamID(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, examID, true
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Lists published exams with the student's own status overlay.
func (h *PortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.attemptService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/start
// Starts (or resumes) the student's attempt. Idempotent.
func (h *PortalHandler) StartAttempt(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID, req.EntryToken)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the cached exam payload (no answer keys). Requires a live
// attempt so the paper cannot be pulled before starting.
func (h *PortalHandler) GetExamPaper(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	if _, err := h.attemptService.State(examID, claims.UserID); err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	payload, err := h.examService.GetExamPayload(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotPublished)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": payload})
}

// GetAttemptState godoc
// GET /api/v1/student/exams/:exam_id/state
func (h *PortalHandler) GetAttemptState(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// SaveAnswer godoc
// POST /api/v1/student/exams/:exam_id/answers
func (h *PortalHandler) SaveAnswer(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.SaveAnswer(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Navigate godoc
// POST /api/v1/student/exams/:exam_id/navigate
func (h *PortalHandler) Navigate(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Navigate(examID, claims.UserID, &req)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// ToggleMark godoc
// POST /api/v1/student/exams/:exam_id/marks
func (h *PortalHandler) ToggleMark(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	var req model.MarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.ToggleMark(examID, claims.UserID, &req)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// StartBreak godoc
// POST /api/v1/student/exams/:exam_id/breaks/start
func (h *PortalHandler) StartBreak(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.StartBreak(examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// EndBreak godoc
// POST /api/v1/student/exams/:exam_id/breaks/end
func (h *PortalHandler) EndBreak(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.EndBreak(examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// SubmitAttempt godoc
// POST /api/v1/student/exams/:exam_id/submit
// Finalizes the attempt and returns the scored submission. Safe to call
// more than once; replays return the original result.
func (h *PortalHandler) SubmitAttempt(c *gin.Context) {
	claims, examID, ok := claimsAndExamID(c)
	if !ok {
		return
	}

	submission, err := h.attemptService.Submit(examID, claims.UserID)
	if err != nil {
		status, code := mapAttemptError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}
