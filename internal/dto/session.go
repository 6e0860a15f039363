package dto

import (
	"time"

	"github.com/courtside/session-booking/internal/domain"
)

// CreateSessionRequest represents a request to create a bookable session
type CreateSessionRequest struct {
	Name                      string    `json:"name" binding:"required"`
	StartTime                 time.Time `json:"start_time" binding:"required"`
	MaxAttendees              int       `json:"max_attendees" binding:"required,gt=0"`
	WaitlistEnabled           bool      `json:"waitlist_enabled"`
	CancellationDeadlineHours int       `json:"cancellation_deadline_hours" binding:"gte=0"`
	RefundPercentage          int       `json:"refund_percentage" binding:"gte=0,lte=100"`
	AutoPromoteWaitlist       bool      `json:"auto_promote_waitlist"`
	PriceCents                int64     `json:"price_cents" binding:"gte=0"`
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	StartTime                 time.Time `json:"start_time"`
	MaxAttendees              int       `json:"max_attendees"`
	CurrentAttendees          int       `json:"current_attendees"`
	WaitlistEnabled           bool      `json:"waitlist_enabled"`
	WaitlistCount             int       `json:"waitlist_count"`
	CancellationDeadlineHours int       `json:"cancellation_deadline_hours"`
	RefundPercentage          int       `json:"refund_percentage"`
	AutoPromoteWaitlist       bool      `json:"auto_promote_waitlist"`
	PriceCents                int64     `json:"price_cents"`
	PaymentStatus             string    `json:"payment_status"`
	Attendees                 []string  `json:"attendees"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// FromSession converts a domain Session to SessionResponse
func FromSession(s *domain.Session) *SessionResponse {
	return &SessionResponse{
		ID:                        s.ID,
		Name:                      s.Name,
		StartTime:                 s.StartTime,
		MaxAttendees:              s.Capacity.MaxAttendees,
		CurrentAttendees:          s.Capacity.CurrentAttendees,
		WaitlistEnabled:           s.Capacity.WaitlistEnabled,
		WaitlistCount:             s.Capacity.WaitlistCount,
		CancellationDeadlineHours: s.Policy.CancellationDeadlineHours,
		RefundPercentage:          s.Policy.RefundPercentage,
		AutoPromoteWaitlist:       s.Policy.AutoPromoteWaitlist,
		PriceCents:                s.Financial.PriceCents,
		PaymentStatus:             string(s.Financial.PaymentStatus),
		Attendees:                 s.Attendees,
		CreatedAt:                 s.CreatedAt,
		UpdatedAt:                 s.UpdatedAt,
	}
}
