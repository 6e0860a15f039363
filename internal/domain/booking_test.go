package domain

import (
	"errors"
	"testing"
)

func TestNewBooking(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		userID    string
		wantErr   error
	}{
		{
			name:      "valid booking",
			sessionID: "session-001",
			userID:    "user-001",
			wantErr:   nil,
		},
		{
			name:      "missing session id",
			sessionID: "",
			userID:    "user-001",
			wantErr:   ErrInvalidSessionID,
		},
		{
			name:      "missing user id",
			sessionID: "session-001",
			userID:    "",
			wantErr:   ErrInvalidUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := NewBooking(tt.sessionID, tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewBooking() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if booking.ID == "" {
				t.Error("expected a generated booking ID")
			}
			if booking.Status != BookingStatusPendingPayment {
				t.Errorf("status = %s, want %s", booking.Status, BookingStatusPendingPayment)
			}
			if booking.PaymentStatus != PaymentUnpaid {
				t.Errorf("payment status = %s, want %s", booking.PaymentStatus, PaymentUnpaid)
			}
		})
	}
}

func TestBooking_Confirm(t *testing.T) {
	booking, _ := NewBooking("session-001", "user-001")

	if err := booking.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if booking.Status != BookingStatusConfirmed {
		t.Errorf("status = %s, want %s", booking.Status, BookingStatusConfirmed)
	}
	if booking.PaymentStatus != PaymentPaid {
		t.Errorf("payment status = %s, want %s", booking.PaymentStatus, PaymentPaid)
	}
	if booking.ConfirmedAt == nil {
		t.Error("expected ConfirmedAt to be stamped")
	}

	// Duplicate payment events land here
	if err := booking.Confirm(); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Errorf("second Confirm() error = %v, want %v", err, ErrAlreadyConfirmed)
	}
}

func TestBooking_StatusGraph(t *testing.T) {
	tests := []struct {
		name       string
		from       BookingStatus
		transition func(*Booking) error
		wantErr    error
		wantStatus BookingStatus
	}{
		{
			name:       "fail payment from pending",
			from:       BookingStatusPendingPayment,
			transition: (*Booking).FailPayment,
			wantStatus: BookingStatusFailedPayment,
		},
		{
			name:       "fail overbooked from pending",
			from:       BookingStatusPendingPayment,
			transition: (*Booking).FailOverbooked,
			wantStatus: BookingStatusFailedOverbook,
		},
		{
			name:       "fail session missing from pending",
			from:       BookingStatusPendingPayment,
			transition: (*Booking).FailSessionMissing,
			wantStatus: BookingStatusFailedNoEvent,
		},
		{
			name:       "cancel refunded from confirmed",
			from:       BookingStatusConfirmed,
			transition: (*Booking).CancelRefunded,
			wantStatus: BookingStatusCancelled,
		},
		{
			name:       "cancel from confirmed",
			from:       BookingStatusConfirmed,
			transition: (*Booking).Cancel,
			wantStatus: BookingStatusCancelled,
		},
		{
			name:       "confirm from failed payment is rejected",
			from:       BookingStatusFailedPayment,
			transition: (*Booking).Confirm,
			wantErr:    ErrInvalidBookingStatus,
		},
		{
			name:       "fail payment from confirmed is rejected",
			from:       BookingStatusConfirmed,
			transition: (*Booking).FailPayment,
			wantErr:    ErrInvalidBookingStatus,
		},
		{
			name:       "cancel from pending is rejected",
			from:       BookingStatusPendingPayment,
			transition: (*Booking).Cancel,
			wantErr:    ErrInvalidBookingStatus,
		},
		{
			name:       "cancel refunded from cancelled is rejected",
			from:       BookingStatusCancelled,
			transition: (*Booking).CancelRefunded,
			wantErr:    ErrInvalidBookingStatus,
		},
		{
			name:       "fail overbooked from failed overbooked is rejected",
			from:       BookingStatusFailedOverbook,
			transition: (*Booking).FailOverbooked,
			wantErr:    ErrInvalidBookingStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, _ := NewBooking("session-001", "user-001")
			booking.Status = tt.from

			err := tt.transition(booking)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("transition error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if booking.Status != tt.from {
					t.Errorf("rejected transition mutated status to %s", booking.Status)
				}
				return
			}
			if booking.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", booking.Status, tt.wantStatus)
			}
		})
	}
}

func TestBooking_FailOverbookedFlagsRefund(t *testing.T) {
	booking, _ := NewBooking("session-001", "user-001")

	if err := booking.FailOverbooked(); err != nil {
		t.Fatalf("FailOverbooked() error = %v", err)
	}
	if booking.PaymentStatus != PaymentPendingRefund {
		t.Errorf("payment status = %s, want %s", booking.PaymentStatus, PaymentPendingRefund)
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	terminal := []BookingStatus{
		BookingStatusFailedPayment,
		BookingStatusFailedOverbook,
		BookingStatusFailedNoEvent,
		BookingStatusCancelled,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if BookingStatusPendingPayment.IsTerminal() {
		t.Error("pending_payment must not be terminal")
	}
	if BookingStatusConfirmed.IsTerminal() {
		t.Error("confirmed must not be terminal, it can still be cancelled")
	}
}
