package handler

import (
	"errors"
	"net/http"

	"github.com/examgate/examgate-backend/internal/engine"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/jackc/pgx/v5"
)

// mapAttemptError translates engine and service errors into an HTTP
// status and error code pair. Unknown errors fall through as internal.
func mapAttemptError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, response.ErrExamNotFound
	case errors.Is(err, service.ErrExamNotAvailable):
		return http.StatusBadRequest, response.ErrExamNotPublished
	case errors.Is(err, service.ErrInvalidEntryToken):
		return http.StatusBadRequest, response.ErrInvalidEntryToken
	case errors.Is(err, service.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrAttemptNotFound
	case errors.Is(err, engine.ErrAttemptFinalized):
		return http.StatusConflict, response.ErrAttemptFinalized
	case errors.Is(err, engine.ErrInvalidNavigation):
		return http.StatusBadRequest, response.ErrInvalidNavigation
	case errors.Is(err, engine.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, engine.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, engine.ErrBreaksNotAllowed):
		return http.StatusBadRequest, response.ErrBreaksNotAllowed
	case errors.Is(err, engine.ErrBreakBudgetExhausted):
		return http.StatusBadRequest, response.ErrBreakBudgetExhausted
	case errors.Is(err, engine.ErrAlreadyOnBreak):
		return http.StatusConflict, response.ErrAlreadyOnBreak
	case errors.Is(err, engine.ErrNotOnBreak):
		return http.StatusConflict, response.ErrNotOnBreak
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
