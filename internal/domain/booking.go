package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking (matches DB ENUM)
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusFailedPayment  BookingStatus = "failed_payment"
	BookingStatusFailedOverbook BookingStatus = "failed_overbooked"
	BookingStatusFailedNoEvent  BookingStatus = "failed_event_not_found"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// String returns the string representation of the status
func (s BookingStatus) String() string { return string(s) }

// IsTerminal reports whether no further transition is allowed from s,
// except confirmed -> cancelled.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusFailedPayment, BookingStatusFailedOverbook,
		BookingStatusFailedNoEvent, BookingStatusCancelled:
		return true
	}
	return false
}

// BookingPaymentStatus tracks the money side of a booking.
type BookingPaymentStatus string

const (
	PaymentUnpaid        BookingPaymentStatus = "unpaid"
	PaymentPaid          BookingPaymentStatus = "paid"
	PaymentPendingRefund BookingPaymentStatus = "paid_pending_refund"
	PaymentRefunded      BookingPaymentStatus = "refunded"
)

// Booking is a user's claim on one seat of a session, tracked through a
// payment-linked lifecycle. The status graph is forward-only:
//
//	pending_payment -> confirmed | failed_payment | failed_overbooked | failed_event_not_found
//	confirmed       -> cancelled
type Booking struct {
	ID              string               `json:"id"`
	SessionID       string               `json:"session_id"`
	UserID          string               `json:"user_id"`
	Status          BookingStatus        `json:"status"`
	PaymentStatus   BookingPaymentStatus `json:"payment_status"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	ConfirmedAt     *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
}

// NewBooking creates a booking in pending_payment for a checkout.
func NewBooking(sessionID, userID string) (*Booking, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	now := time.Now().UTC()
	return &Booking{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		UserID:        userID,
		Status:        BookingStatusPendingPayment,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsConfirmed reports whether the booking holds a granted seat.
func (b *Booking) IsConfirmed() bool { return b.Status == BookingStatusConfirmed }

// BelongsToUser reports whether userID owns the booking.
func (b *Booking) BelongsToUser(userID string) bool { return b.UserID == userID }

// Confirm moves the booking to confirmed/paid. Only valid from
// pending_payment; a second call returns ErrAlreadyConfirmed so duplicate
// payment events are no-ops at this layer.
func (b *Booking) Confirm() error {
	if b.Status == BookingStatusConfirmed {
		return ErrAlreadyConfirmed
	}
	if b.Status != BookingStatusPendingPayment {
		return ErrInvalidBookingStatus
	}
	now := time.Now().UTC()
	b.Status = BookingStatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// FailOverbooked marks the losing side of a capacity race: money captured,
// seat unavailable. Flagged for out-of-band refund reconciliation.
func (b *Booking) FailOverbooked() error {
	if b.Status != BookingStatusPendingPayment {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusFailedOverbook
	b.PaymentStatus = PaymentPendingRefund
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// FailSessionMissing marks a paid booking whose session no longer exists.
func (b *Booking) FailSessionMissing() error {
	if b.Status != BookingStatusPendingPayment {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusFailedNoEvent
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// FailPayment marks a declined payment.
func (b *Booking) FailPayment() error {
	if b.Status != BookingStatusPendingPayment {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusFailedPayment
	b.PaymentStatus = PaymentUnpaid
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// CancelRefunded moves a confirmed booking to cancelled/refunded, the only
// transition out of confirmed.
func (b *Booking) CancelRefunded() error {
	if b.Status != BookingStatusConfirmed {
		return ErrInvalidBookingStatus
	}
	now := time.Now().UTC()
	b.Status = BookingStatusCancelled
	b.PaymentStatus = PaymentRefunded
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Cancel moves a confirmed booking to cancelled without a refund.
func (b *Booking) Cancel() error {
	if b.Status != BookingStatusConfirmed {
		return ErrInvalidBookingStatus
	}
	now := time.Now().UTC()
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Clone returns a copy, used by the in-memory store for snapshot reads.
func (b *Booking) Clone() *Booking {
	cp := *b
	return &cp
}
