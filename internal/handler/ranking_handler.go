package handler

import (
	"net/http"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RankingHandler exposes leaderboards and result history.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// StudentLeaderboard godoc
// GET /api/v1/student/rankings
// Global leaderboard: cumulative score across all exams, ties broken by
// average score. Tied entries still receive distinct sequential ranks.
func (h *RankingHandler) StudentLeaderboard(c *gin.Context) {
	rankings, err := h.rankingService.StudentLeaderboard(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rankings": rankings})
}

// ExamLeaderboard godoc
// GET /api/v1/student/exams/:exam_id/rankings
// Per-exam leaderboard: score descending, faster completion wins ties.
func (h *RankingHandler) ExamLeaderboard(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rankings, err := h.rankingService.ExamLeaderboard(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rankings": rankings})
}

// MyResults godoc
// GET /api/v1/student/results
// The authenticated student's submission history.
func (h *RankingHandler) MyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.rankingService.StudentResults(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ExamResults godoc
// GET /api/v1/admin/exams/:exam_id/results
// All submissions for one exam, for the exam author's review.
func (h *RankingHandler) ExamResults(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.rankingService.ExamResults(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
