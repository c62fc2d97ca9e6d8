package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepforge/prepforge-backend/internal/response"
	"github.com/prepforge/prepforge-backend/internal/service"
)

// failFromErr maps service-layer errors onto the response envelope. Every
// handler funnels its service errors through here so a given domain error
// always surfaces as the same HTTP status and code.
func failFromErr(c *gin.Context, err error) {
	var expired *service.ExpiredError
	if errors.As(err, &expired) {
		// Forced transition: deliver the finalized result with the error.
		response.FailWithData(c, http.StatusConflict, response.ErrSessionExpired,
			gin.H{"session": expired.Result})
		return
	}

	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamInactive):
		response.Fail(c, http.StatusConflict, response.ErrExamInactive)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionFinalized):
		response.Fail(c, http.StatusConflict, response.ErrSessionInvalidState)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInOrder)
	case errors.Is(err, service.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrIndexOutOfRange)
	case errors.Is(err, service.ErrEmptyPool):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrEmptyQuestionPool)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
