package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/dto"
	"github.com/courtside/session-booking/internal/gateway"
	"github.com/courtside/session-booking/internal/metrics"
	"github.com/courtside/session-booking/internal/notification"
	"github.com/courtside/session-booking/internal/repository"
	"github.com/courtside/session-booking/pkg/logger"
	"github.com/courtside/session-booking/pkg/telemetry"
)

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	Booking         *domain.Booking
	RefundProcessed bool
	PromotedUserID  string
	Message         string
}

// CancellationService releases a caller's seat and evaluates refund
// eligibility against the session's cancellation policy.
type CancellationService interface {
	Cancel(ctx context.Context, sessionID, userID string) (*CancelResult, error)
}

type cancellationService struct {
	store    repository.Store
	gateway  gateway.PaymentGateway
	promoter WaitlistService
	notifier notification.Notifier
	now      func() time.Time
}

// NewCancellationService creates a CancellationService
func NewCancellationService(
	store repository.Store,
	gw gateway.PaymentGateway,
	promoter WaitlistService,
	notifier notification.Notifier,
) CancellationService {
	if notifier == nil {
		notifier = notification.NewNoopNotifier()
	}
	return &cancellationService{
		store:    store,
		gateway:  gw,
		promoter: promoter,
		notifier: notifier,
		now:      time.Now,
	}
}

var _ CancellationService = (*cancellationService)(nil)

func (s *cancellationService) Cancel(ctx context.Context, sessionID, userID string) (*CancelResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cancellation.cancel")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "unauthenticated")
		return nil, domain.ErrUnauthenticated
	}
	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("user_id", userID),
	)

	var (
		result  CancelResult
		session *domain.Session
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		result = CancelResult{}

		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}

		if !session.HasAttendee(userID) {
			return domain.ErrNotBooked
		}

		hoursUntilStart := session.HoursUntilStart(s.now().UTC())
		eligible := hoursUntilStart >= float64(session.Policy.CancellationDeadlineHours)
		refund := eligible && session.Financial.PaymentStatus == domain.SessionPaymentPaid

		booking, err := tx.FindConfirmedBooking(ctx, sessionID, userID)
		if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
			return err
		}
		if booking != nil {
			if refund {
				err = booking.CancelRefunded()
			} else {
				err = booking.Cancel()
			}
			if err != nil {
				return err
			}
			if err := tx.PutBooking(ctx, booking); err != nil {
				return err
			}
		}

		// Seat release happens regardless of refund eligibility, in the
		// same transaction as the attendee check.
		if err := session.RemoveAttendee(userID); err != nil {
			return err
		}
		if err := tx.PutSession(ctx, session); err != nil {
			return err
		}

		result.Booking = booking
		result.RefundProcessed = refund
		if refund {
			result.Message = "booking cancelled, refund is being processed"
		} else if eligible {
			result.Message = "booking cancelled"
		} else {
			result.Message = "booking cancelled past the refund deadline, no refund"
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordBookingCancelled(ctx, sessionID, result.RefundProcessed)

	// Refund dispatch is fire-and-forget. A gateway failure is logged for
	// its own reconciliation, never rolled back against the committed
	// seat release.
	if result.RefundProcessed && s.gateway != nil && result.Booking != nil && result.Booking.PaymentIntentID != "" {
		if err := s.gateway.Refund(ctx, result.Booking.PaymentIntentID, session.Financial.PriceCents); err != nil {
			logger.Get().Error("refund dispatch failed",
				zap.String("booking_id", result.Booking.ID),
				zap.String("payment_intent_id", result.Booking.PaymentIntentID),
				zap.Error(err),
			)
		}
	}

	// Post-commit trigger for the freed seat
	if session.Policy.AutoPromoteWaitlist && !session.IsFull() && s.promoter != nil {
		promoted, err := s.promoter.PromoteNext(ctx, sessionID)
		if err != nil {
			logger.Get().Error("waitlist promotion after cancel failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else if promoted != nil {
			result.PromotedUserID = promoted.UserID
		}
	}

	bookingID := ""
	if result.Booking != nil {
		bookingID = result.Booking.ID
	}
	if err := s.notifier.Notify(ctx, &dto.NotificationEvent{
		EventType: dto.NotificationBookingCancelled,
		UserID:    userID,
		SessionID: sessionID,
		BookingID: bookingID,
		Message:   result.Message,
	}); err != nil {
		logger.Get().Warn("cancellation notification failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	return &result, nil
}
