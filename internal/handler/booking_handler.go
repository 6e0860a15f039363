package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/dto"
	"github.com/courtside/session-booking/internal/service"
	"github.com/courtside/session-booking/pkg/middleware"
	"github.com/courtside/session-booking/pkg/response"
)

// BookingHandler handles booking HTTP endpoints
type BookingHandler struct {
	checkout     service.CheckoutService
	cancellation service.CancellationService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(checkout service.CheckoutService, cancellation service.CancellationService) *BookingHandler {
	return &BookingHandler{
		checkout:     checkout,
		cancellation: cancellation,
	}
}

// Checkout handles POST /api/v1/sessions/:id/bookings
// Creates a pending_payment booking and opens a payment intent.
func (h *BookingHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.checkout.Checkout(c.Request.Context(), c.Param("id"), userID, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, &dto.CheckoutResponse{
		Booking:         dto.FromBooking(result.Booking),
		PaymentIntentID: result.Booking.PaymentIntentID,
		ClientSecret:    result.ClientSecret,
		AmountCents:     result.AmountCents,
		Currency:        result.Currency,
	})
}

// Cancel handles POST /api/v1/sessions/:id/cancel
// Releases the caller's seat and evaluates refund eligibility.
func (h *BookingHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	result, err := h.cancellation.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := &dto.CancelBookingResponse{
		RefundEligible: result.RefundProcessed,
		PromotedUserID: result.PromotedUserID,
	}
	if result.Booking != nil {
		resp.Booking = dto.FromBooking(result.Booking)
	}
	response.Success(c, resp)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, domain.ErrUnauthenticated)
		return
	}

	booking, err := h.checkout.GetBooking(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.FromBooking(booking))
}

// GetSession handles GET /api/v1/sessions/:id
func (h *BookingHandler) GetSession(c *gin.Context) {
	session, err := h.checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.FromSession(session))
}
