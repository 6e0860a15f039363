package domain

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistStatus represents the state of a waitlist entry
type WaitlistStatus string

const (
	WaitlistStatusPending  WaitlistStatus = "pending"
	WaitlistStatusPromoted WaitlistStatus = "promoted"
	WaitlistStatusExpired  WaitlistStatus = "expired"
)

// WaitlistEntry is a queued request for a seat on a full session.
// Promotion order is strictly JoinedAt ascending.
type WaitlistEntry struct {
	ID                 string         `json:"id"`
	SessionID          string         `json:"session_id"`
	UserID             string         `json:"user_id"`
	Status             WaitlistStatus `json:"status"`
	JoinedAt           time.Time      `json:"joined_at"`
	NotificationSentAt *time.Time     `json:"notification_sent_at,omitempty"`
}

// NewWaitlistEntry creates a pending entry stamped with the join time.
func NewWaitlistEntry(sessionID, userID string) (*WaitlistEntry, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return &WaitlistEntry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    WaitlistStatusPending,
		JoinedAt:  time.Now().UTC(),
	}, nil
}

// Promote marks the entry promoted and stamps the notification time.
func (e *WaitlistEntry) Promote() error {
	if e.Status != WaitlistStatusPending {
		return ErrNoPendingEntries
	}
	now := time.Now().UTC()
	e.Status = WaitlistStatusPromoted
	e.NotificationSentAt = &now
	return nil
}

// Clone returns a copy, used by the in-memory store for snapshot reads.
func (e *WaitlistEntry) Clone() *WaitlistEntry {
	cp := *e
	return &cp
}
