package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/pkg/response"
)

// respondError maps a domain error onto the response envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error(), "")
	case domain.IsNotFoundError(err):
		response.Fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), "")
	case domain.IsPreconditionError(err):
		response.Fail(c, http.StatusConflict, "FAILED_PRECONDITION", err.Error(), "")
	case domain.IsValidationError(err):
		response.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), "")
	case errors.Is(err, domain.ErrTxConflict):
		response.Fail(c, http.StatusServiceUnavailable, "CONFLICT_RETRY_EXHAUSTED",
			"the operation kept conflicting with concurrent writes, try again", "")
	default:
		response.InternalError(c, err)
	}
}
