package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/gateway"
	"github.com/courtside/session-booking/internal/repository"
	"github.com/courtside/session-booking/pkg/logger"
	"github.com/courtside/session-booking/pkg/telemetry"
)

// CheckoutResult is a pending booking plus the payment intent opened for it.
type CheckoutResult struct {
	Booking      *domain.Booking
	ClientSecret string
	AmountCents  int64
	Currency     string
}

// CheckoutService starts bookings and serves reads.
type CheckoutService interface {
	// Checkout creates a pending_payment booking for the session and opens
	// a payment intent carrying the booking id in its metadata. The seat is
	// granted only when the payment confirmation arrives.
	Checkout(ctx context.Context, sessionID, userID, currency string) (*CheckoutResult, error)

	// GetSession returns a session snapshot.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// GetBooking returns the booking when userID owns it.
	GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
}

// CheckoutConfig holds checkout defaults.
type CheckoutConfig struct {
	Currency string
}

type checkoutService struct {
	store   repository.Store
	gateway gateway.PaymentGateway
	config  *CheckoutConfig
}

// NewCheckoutService creates a CheckoutService
func NewCheckoutService(store repository.Store, gw gateway.PaymentGateway, config *CheckoutConfig) CheckoutService {
	if config == nil || config.Currency == "" {
		config = &CheckoutConfig{Currency: "usd"}
	}
	return &checkoutService{
		store:   store,
		gateway: gw,
		config:  config,
	}
}

var _ CheckoutService = (*checkoutService)(nil)

func (s *checkoutService) Checkout(ctx context.Context, sessionID, userID, currency string) (*CheckoutResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.checkout")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "unauthenticated")
		return nil, domain.ErrUnauthenticated
	}
	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}
	if currency == "" {
		currency = s.config.Currency
	}

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("user_id", userID),
	)

	// Early read outside the transaction: reject obviously doomed
	// checkouts. The authoritative capacity check still happens when the
	// payment confirmation arrives.
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if session.IsFull() {
		span.SetStatus(codes.Error, "session full")
		return nil, domain.ErrSessionFull
	}
	if session.HasAttendee(userID) {
		span.SetStatus(codes.Error, "already booked")
		return nil, domain.ErrAlreadyConfirmed
	}

	booking, err := domain.NewBooking(sessionID, userID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, &gateway.PaymentIntentRequest{
		BookingID:   booking.ID,
		SessionID:   sessionID,
		UserID:      userID,
		AmountCents: session.Financial.PriceCents,
		Currency:    currency,
		Description: fmt.Sprintf("Booking for %s", session.Name),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to open payment intent: %w", err)
	}
	booking.PaymentIntentID = intent.PaymentIntentID

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		return tx.CreateBooking(ctx, booking)
	})
	if err != nil {
		// The intent is now orphaned; it expires on the gateway side.
		logger.Get().Error("failed to persist checkout booking",
			zap.String("booking_id", booking.ID),
			zap.String("payment_intent_id", intent.PaymentIntentID),
			zap.Error(err),
		)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &CheckoutResult{
		Booking:      booking,
		ClientSecret: intent.ClientSecret,
		AmountCents:  session.Financial.PriceCents,
		Currency:     currency,
	}, nil
}

func (s *checkoutService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.get_session")
	defer span.End()

	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}
	return s.store.GetSession(ctx, sessionID)
}

func (s *checkoutService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.get_booking")
	defer span.End()

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "unauthenticated")
		return nil, domain.ErrUnauthenticated
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.BelongsToUser(userID) {
		// Do not reveal that the booking exists
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}
