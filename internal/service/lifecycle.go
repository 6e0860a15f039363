package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/dto"
	"github.com/courtside/session-booking/internal/metrics"
	"github.com/courtside/session-booking/internal/notification"
	"github.com/courtside/session-booking/internal/repository"
	"github.com/courtside/session-booking/pkg/logger"
	"github.com/courtside/session-booking/pkg/telemetry"
)

// BookingLifecycle applies payment-provider events to the booking state
// graph. Each applier is safe under duplicate delivery: the booking's
// current state is the idempotency guard.
type BookingLifecycle interface {
	// ApplyPaymentSucceeded confirms the booking and grants its seat, or
	// records failed_overbooked when the capacity race was lost. A missing
	// booking is a no-op (nil, nil): the event still gets acknowledged.
	ApplyPaymentSucceeded(ctx context.Context, bookingID string) (*domain.Booking, error)

	// ApplyPaymentFailed marks the booking failed_payment.
	ApplyPaymentFailed(ctx context.Context, bookingID string) (*domain.Booking, error)

	// ApplyRefund releases the seat of a confirmed booking and marks it
	// cancelled/refunded, then triggers waitlist promotion for the freed
	// seat.
	ApplyRefund(ctx context.Context, bookingID string) (*domain.Booking, error)
}

type bookingLifecycle struct {
	store    repository.Store
	promoter WaitlistService
	notifier notification.Notifier
}

// NewBookingLifecycle creates a BookingLifecycle
func NewBookingLifecycle(store repository.Store, promoter WaitlistService, notifier notification.Notifier) BookingLifecycle {
	if notifier == nil {
		notifier = notification.NewNoopNotifier()
	}
	return &bookingLifecycle{
		store:    store,
		promoter: promoter,
		notifier: notifier,
	}
}

var _ BookingLifecycle = (*bookingLifecycle)(nil)

func (s *bookingLifecycle) ApplyPaymentSucceeded(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.payment_succeeded")
	defer span.End()

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))

	var result *domain.Booking
	var overbooked, confirmed bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		result = nil
		overbooked = false
		confirmed = false

		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrBookingNotFound) {
				// Unknown correlation id. Log and acknowledge so the
				// provider does not redeliver forever.
				logger.Get().Warn("payment succeeded for unknown booking",
					zap.String("booking_id", bookingID),
				)
				return nil
			}
			return err
		}

		if booking.Status == domain.BookingStatusConfirmed {
			// Duplicate delivery. The seat was already granted.
			result = booking
			return nil
		}
		if booking.Status != domain.BookingStatusPendingPayment {
			// Already in a terminal state; nothing to apply.
			result = booking
			return nil
		}

		session, err := tx.GetSession(ctx, booking.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				if err := booking.FailSessionMissing(); err != nil {
					return err
				}
				result = booking
				return tx.PutBooking(ctx, booking)
			}
			return err
		}

		// Capacity check and increment against the same snapshot the
		// write commits on. Reading outside the transaction would
		// reintroduce the race this exists to prevent.
		if err := session.AddAttendee(booking.UserID); err != nil {
			if errors.Is(err, domain.ErrCapacityExhausted) {
				if err := booking.FailOverbooked(); err != nil {
					return err
				}
				overbooked = true
				result = booking
				return tx.PutBooking(ctx, booking)
			}
			return err
		}

		if err := booking.Confirm(); err != nil {
			return err
		}
		if err := tx.PutBooking(ctx, booking); err != nil {
			return err
		}
		if err := tx.PutSession(ctx, session); err != nil {
			return err
		}
		result = booking
		confirmed = true
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	switch {
	case overbooked:
		metrics.RecordBookingOverbooked(ctx, result.SessionID)
		logger.Get().Warn("paid booking lost capacity race, flagged for refund reconciliation",
			zap.String("booking_id", result.ID),
			zap.String("session_id", result.SessionID),
		)
		s.notify(ctx, dto.NotificationBookingFailed, result,
			"Payment received but the session filled up; a refund is being arranged")
	case confirmed:
		metrics.RecordBookingConfirmed(ctx, result.SessionID)
		s.notify(ctx, dto.NotificationBookingConfirmed, result, "Your booking is confirmed")
	}

	return result, nil
}

func (s *bookingLifecycle) ApplyPaymentFailed(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.payment_failed")
	defer span.End()

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))

	// Single-aggregate update, no capacity involved
	var result *domain.Booking
	var failed bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		result = nil
		failed = false

		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrBookingNotFound) {
				logger.Get().Warn("payment failed for unknown booking",
					zap.String("booking_id", bookingID),
				)
				return nil
			}
			return err
		}

		if booking.Status != domain.BookingStatusPendingPayment {
			result = booking
			return nil
		}

		if err := booking.FailPayment(); err != nil {
			return err
		}
		result = booking
		failed = true
		return tx.PutBooking(ctx, booking)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if failed {
		metrics.RecordBookingFailed(ctx, result.SessionID)
	}
	return result, nil
}

func (s *bookingLifecycle) ApplyRefund(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.lifecycle.refund")
	defer span.End()

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))

	var result *domain.Booking
	var seatFreed bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		result = nil
		seatFreed = false

		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, domain.ErrBookingNotFound) {
				logger.Get().Warn("refund for unknown booking",
					zap.String("booking_id", bookingID),
				)
				return nil
			}
			return err
		}

		if booking.Status != domain.BookingStatusConfirmed {
			// Already released (user-initiated cancel) or never held a
			// seat. Duplicate refund deliveries land here.
			result = booking
			return nil
		}

		session, err := tx.GetSession(ctx, booking.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				result = booking
				return nil
			}
			return err
		}

		if err := session.RemoveAttendee(booking.UserID); err != nil {
			if errors.Is(err, domain.ErrNotBooked) {
				result = booking
				return nil
			}
			return err
		}

		if err := booking.CancelRefunded(); err != nil {
			return err
		}
		if err := tx.PutBooking(ctx, booking); err != nil {
			return err
		}
		if err := tx.PutSession(ctx, session); err != nil {
			return err
		}
		result = booking
		seatFreed = true
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if seatFreed {
		metrics.RecordBookingRefunded(ctx, result.SessionID)
		if s.promoter != nil {
			if _, err := s.promoter.PromoteNext(ctx, result.SessionID); err != nil {
				logger.Get().Error("waitlist promotion after refund failed",
					zap.String("session_id", result.SessionID),
					zap.Error(err),
				)
			}
		}
	}

	return result, nil
}

func (s *bookingLifecycle) notify(ctx context.Context, eventType dto.NotificationType, b *domain.Booking, msg string) {
	if err := s.notifier.Notify(ctx, &dto.NotificationEvent{
		EventType: eventType,
		UserID:    b.UserID,
		SessionID: b.SessionID,
		BookingID: b.ID,
		Message:   msg,
	}); err != nil {
		logger.Get().Warn("booking notification failed",
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
