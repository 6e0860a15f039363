package domain

import (
	"slices"
	"time"
)

// SessionPaymentStatus tracks the aggregate payment state of a session.
type SessionPaymentStatus string

const (
	SessionPaymentUnpaid  SessionPaymentStatus = "unpaid"
	SessionPaymentPartial SessionPaymentStatus = "partial"
	SessionPaymentPaid    SessionPaymentStatus = "paid"
)

// Capacity holds a session's seat accounting. CurrentAttendees and the
// Attendees set are mutated only inside store transactions so that
// 0 <= CurrentAttendees <= MaxAttendees holds under concurrency.
type Capacity struct {
	MaxAttendees     int  `json:"max_attendees"`
	CurrentAttendees int  `json:"current_attendees"`
	WaitlistEnabled  bool `json:"waitlist_enabled"`
	WaitlistCount    int  `json:"waitlist_count"`
}

// Policy holds the cancellation and promotion rules of a session.
type Policy struct {
	CancellationDeadlineHours int  `json:"cancellation_deadline_hours"`
	RefundPercentage          int  `json:"refund_percentage"`
	AutoPromoteWaitlist       bool `json:"auto_promote_waitlist"`
}

// Financial holds the pricing fields of a session.
type Financial struct {
	PriceCents    int64                `json:"price_cents"`
	PaymentStatus SessionPaymentStatus `json:"payment_status"`
}

// Session is a scheduled, capacity-bounded activity instance open for booking.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Capacity  Capacity  `json:"capacity"`
	Policy    Policy    `json:"policy"`
	Financial Financial `json:"financial"`
	Attendees []string  `json:"attendees"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFull reports whether every seat is taken.
func (s *Session) IsFull() bool {
	return s.Capacity.CurrentAttendees >= s.Capacity.MaxAttendees
}

// HasAttendee reports whether userID holds a seat.
func (s *Session) HasAttendee(userID string) bool {
	return slices.Contains(s.Attendees, userID)
}

// AddAttendee grants a seat to userID. Returns ErrCapacityExhausted when no
// seat remains; callers must invoke this inside the same transaction that
// read the capacity fields.
func (s *Session) AddAttendee(userID string) error {
	if s.IsFull() {
		return ErrCapacityExhausted
	}
	if s.HasAttendee(userID) {
		return nil
	}
	s.Attendees = append(s.Attendees, userID)
	s.Capacity.CurrentAttendees++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveAttendee frees userID's seat. Returns ErrNotBooked when the user
// holds no seat, so a double release can never drive the counter negative.
func (s *Session) RemoveAttendee(userID string) error {
	idx := slices.Index(s.Attendees, userID)
	if idx < 0 {
		return ErrNotBooked
	}
	s.Attendees = slices.Delete(s.Attendees, idx, idx+1)
	s.Capacity.CurrentAttendees--
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// HoursUntilStart returns the whole and fractional hours between now and
// the session start. Negative once the session has begun.
func (s *Session) HoursUntilStart(now time.Time) float64 {
	return s.StartTime.Sub(now).Hours()
}

// Clone returns a deep copy, used by the in-memory store for snapshot reads.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Attendees = slices.Clone(s.Attendees)
	return &cp
}
