package dto

import (
	"time"

	"github.com/courtside/session-booking/internal/domain"
)

// WaitlistEntryResponse represents a waitlist entry in API responses
type WaitlistEntryResponse struct {
	ID        string                `json:"id"`
	SessionID string                `json:"session_id"`
	UserID    string                `json:"user_id"`
	Status    domain.WaitlistStatus `json:"status"`
	JoinedAt  time.Time             `json:"joined_at"`
}

// FromWaitlistEntry converts a domain WaitlistEntry to WaitlistEntryResponse
func FromWaitlistEntry(e *domain.WaitlistEntry) *WaitlistEntryResponse {
	return &WaitlistEntryResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		UserID:    e.UserID,
		Status:    e.Status,
		JoinedAt:  e.JoinedAt,
	}
}
