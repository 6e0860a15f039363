package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/dto"
	"github.com/courtside/session-booking/internal/service"
	"github.com/courtside/session-booking/pkg/middleware"
	"github.com/courtside/session-booking/pkg/response"
)

// WaitlistHandler handles waitlist HTTP endpoints
type WaitlistHandler struct {
	waitlist service.WaitlistService
}

// NewWaitlistHandler creates a new WaitlistHandler
func NewWaitlistHandler(waitlist service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

// Join handles POST /api/v1/sessions/:id/waitlist
func (h *WaitlistHandler) Join(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	entry, err := h.waitlist.Join(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, dto.FromWaitlistEntry(entry))
}
