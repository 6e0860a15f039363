package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/gateway"
	"github.com/courtside/session-booking/internal/notification"
	"github.com/courtside/session-booking/internal/repository"
)

// newTestCancellation builds the service with a fixed clock so deadline
// checks are deterministic.
func newTestCancellation(store *repository.MemoryStore, gw gateway.PaymentGateway, promoter WaitlistService, now time.Time) CancellationService {
	return &cancellationService{
		store:    store,
		gateway:  gw,
		promoter: promoter,
		notifier: notification.NewNoopNotifier(),
		now:      func() time.Time { return now },
	}
}

func TestCancellationService_Cancel_RefundEligible(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	mock := gateway.NewMockGateway(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Deadline 24h, cancelling 30h before start
	session := newTestSession("session-001", 2)
	session.StartTime = now.Add(30 * time.Hour)
	if err := session.AddAttendee("user-001"); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatal(err)
	}
	seedConfirmedBooking(t, store, "session-001", "user-001", "pi_123")

	svc := newTestCancellation(store, mock, nil, now)
	result, err := svc.Cancel(ctx, "session-001", "user-001")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !result.RefundProcessed {
		t.Error("expected refund to be processed")
	}
	if result.Booking == nil || result.Booking.Status != domain.BookingStatusCancelled {
		t.Fatalf("booking = %+v, want cancelled", result.Booking)
	}
	if result.Booking.PaymentStatus != domain.PaymentRefunded {
		t.Errorf("payment status = %s, want %s", result.Booking.PaymentStatus, domain.PaymentRefunded)
	}

	stored, _ := store.GetSession(ctx, "session-001")
	if stored.HasAttendee("user-001") {
		t.Error("cancelled user still holds a seat")
	}
	if stored.Capacity.CurrentAttendees != 0 {
		t.Errorf("current attendees = %d, want 0", stored.Capacity.CurrentAttendees)
	}

	amount, refunded := mock.RefundedAmount("pi_123")
	if !refunded {
		t.Fatal("expected a refund to be dispatched to the gateway")
	}
	if amount != session.Financial.PriceCents {
		t.Errorf("refunded amount = %d, want %d", amount, session.Financial.PriceCents)
	}
}

func TestCancellationService_Cancel_PastDeadline(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	mock := gateway.NewMockGateway(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Deadline 24h, cancelling only 2h before start
	session := newTestSession("session-001", 2)
	session.StartTime = now.Add(2 * time.Hour)
	if err := session.AddAttendee("user-001"); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatal(err)
	}
	seedConfirmedBooking(t, store, "session-001", "user-001", "pi_123")

	svc := newTestCancellation(store, mock, nil, now)
	result, err := svc.Cancel(ctx, "session-001", "user-001")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if result.RefundProcessed {
		t.Error("expected no refund past the deadline")
	}
	if result.Booking == nil || result.Booking.Status != domain.BookingStatusCancelled {
		t.Fatalf("booking = %+v, want cancelled", result.Booking)
	}

	// The seat is still released
	stored, _ := store.GetSession(ctx, "session-001")
	if stored.HasAttendee("user-001") {
		t.Error("cancelled user still holds a seat")
	}

	if _, refunded := mock.RefundedAmount("pi_123"); refunded {
		t.Error("refund dispatched despite missed deadline")
	}
}

func TestCancellationService_Cancel_UnpaidSession(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	mock := gateway.NewMockGateway(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inside the deadline but nothing was paid, so nothing to refund
	session := newTestSession("session-001", 2)
	session.StartTime = now.Add(30 * time.Hour)
	session.Financial.PaymentStatus = domain.SessionPaymentUnpaid
	if err := session.AddAttendee("user-001"); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	svc := newTestCancellation(store, mock, nil, now)
	result, err := svc.Cancel(ctx, "session-001", "user-001")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if result.RefundProcessed {
		t.Error("expected no refund for an unpaid session")
	}
}

func TestCancellationService_Cancel_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, store *repository.MemoryStore)
		sessionID string
		userID    string
		wantErr   error
	}{
		{
			name:      "session not found",
			setup:     func(t *testing.T, store *repository.MemoryStore) {},
			sessionID: "session-001",
			userID:    "user-001",
			wantErr:   domain.ErrSessionNotFound,
		},
		{
			name: "user not booked",
			setup: func(t *testing.T, store *repository.MemoryStore) {
				if err := store.CreateSession(context.Background(), newTestSession("session-001", 2)); err != nil {
					t.Fatal(err)
				}
			},
			sessionID: "session-001",
			userID:    "user-001",
			wantErr:   domain.ErrNotBooked,
		},
		{
			name:      "unauthenticated",
			setup:     func(t *testing.T, store *repository.MemoryStore) {},
			sessionID: "session-001",
			userID:    "",
			wantErr:   domain.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			tt.setup(t, store)
			svc := newTestCancellation(store, nil, nil, time.Now().UTC())

			if _, err := svc.Cancel(context.Background(), tt.sessionID, tt.userID); !errors.Is(err, tt.wantErr) {
				t.Errorf("Cancel() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCancellationService_Cancel_PromotesWaitlist(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	mock := gateway.NewMockGateway(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Full single-seat session with one user waiting
	session := newTestSession("session-001", 1)
	session.StartTime = now.Add(30 * time.Hour)
	if err := session.AddAttendee("user-001"); err != nil {
		t.Fatal(err)
	}
	session.Capacity.WaitlistCount = 1
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatal(err)
	}
	seedConfirmedBooking(t, store, "session-001", "user-001", "pi_123")
	seedWaitlistEntry(t, store, "session-001", "user-002", now)

	promoter := NewWaitlistService(store, nil)
	svc := newTestCancellation(store, mock, promoter, now)

	result, err := svc.Cancel(ctx, "session-001", "user-001")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if result.PromotedUserID != "user-002" {
		t.Errorf("promoted user = %q, want user-002", result.PromotedUserID)
	}

	stored, _ := store.GetSession(ctx, "session-001")
	if stored.HasAttendee("user-001") {
		t.Error("cancelled user still holds a seat")
	}
	if !stored.HasAttendee("user-002") {
		t.Error("waitlisted user was not promoted into the freed seat")
	}
	if stored.Capacity.CurrentAttendees != 1 {
		t.Errorf("current attendees = %d, want 1", stored.Capacity.CurrentAttendees)
	}
	if stored.Capacity.WaitlistCount != 0 {
		t.Errorf("waitlist count = %d, want 0", stored.Capacity.WaitlistCount)
	}
}
