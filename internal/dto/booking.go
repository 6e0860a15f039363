package dto

import (
	"time"

	"github.com/courtside/session-booking/internal/domain"
)

// CheckoutRequest represents a request to start checkout for a session
type CheckoutRequest struct {
	// Currency override, defaults to the service currency when empty
	Currency string `json:"currency,omitempty"`
}

// CheckoutResponse represents a newly created booking plus its payment intent
type CheckoutResponse struct {
	Booking         *BookingResponse `json:"booking"`
	PaymentIntentID string           `json:"payment_intent_id"`
	ClientSecret    string           `json:"client_secret"`
	AmountCents     int64            `json:"amount_cents"`
	Currency        string           `json:"currency"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID              string                      `json:"id"`
	SessionID       string                      `json:"session_id"`
	UserID          string                      `json:"user_id"`
	Status          domain.BookingStatus        `json:"status"`
	PaymentStatus   domain.BookingPaymentStatus `json:"payment_status"`
	PaymentIntentID string                      `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	ConfirmedAt     *time.Time                  `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time                  `json:"cancelled_at,omitempty"`
}

// FromBooking converts a domain Booking to BookingResponse
func FromBooking(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:              b.ID,
		SessionID:       b.SessionID,
		UserID:          b.UserID,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		PaymentIntentID: b.PaymentIntentID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		ConfirmedAt:     b.ConfirmedAt,
		CancelledAt:     b.CancelledAt,
	}
}

// CancelBookingResponse represents the outcome of a cancellation
type CancelBookingResponse struct {
	Booking        *BookingResponse `json:"booking"`
	RefundEligible bool             `json:"refund_eligible"`
	PromotedUserID string           `json:"promoted_user_id,omitempty"`
}
