package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// WaitlistService manages the overflow queue of a full session.
type WaitlistService interface {
	// Join queues userID on the session's waitlist. The session must exist,
	// be full, and have its waitlist enabled; a user queues at most once.
	Join(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error)

	// PromoteNext grants the freed seat to the earliest pending entry.
	// Called post-commit by whichever operation freed a seat. Returns the
	// promoted entry, or nil when there is nothing to promote or the seat
	// was lost to a concurrent writer.
	PromoteNext(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error)
}

type waitlistService struct {
	store    repository.Store
	notifier notification.Notifier
}

// NewWaitlistService creates a WaitlistService
func NewWaitlistService(store repository.Store, notifier notification.Notifier) WaitlistService {
	if notifier == nil {
		notifier = notification.NewNoopNotifier()
	}
	return &waitlistService{
		store:    store,
		notifier: notifier,
	}
}

var _ WaitlistService = (*waitlistService)(nil)

func (s *waitlistService) Join(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.waitlist.join")
	defer span.End()

	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("user_id", userID),
	)

	entry, err := domain.NewWaitlistEntry(sessionID, userID)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsFull() {
			return domain.ErrSessionNotFull
		}
		if !session.Capacity.WaitlistEnabled {
			return domain.ErrWaitlistDisabled
		}

		queued, err := tx.HasPendingWaitlistEntry(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if queued {
			return domain.ErrAlreadyOnWaitlist
		}

		if err := tx.CreateWaitlistEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to create waitlist entry: %w", err)
		}

		session.Capacity.WaitlistCount++
		session.UpdatedAt = time.Now().UTC()
		return tx.PutSession(ctx, session)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordWaitlistJoin(ctx, sessionID)
	return entry, nil
}

func (s *waitlistService) PromoteNext(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.waitlist.promote_next")
	defer span.End()

	if sessionID == "" {
		span.SetStatus(codes.Error, "invalid session_id")
		return nil, domain.ErrInvalidSessionID
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	var promoted *domain.WaitlistEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		promoted = nil

		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.Policy.AutoPromoteWaitlist {
			return nil
		}
		// Re-check capacity inside the transaction. A concurrent
		// confirmation or promotion may have refilled the seat between
		// the post-commit trigger and this snapshot.
		if session.IsFull() {
			return nil
		}

		entry, err := tx.EarliestPendingWaitlist(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNoPendingEntries) {
				return nil
			}
			return err
		}

		if err := session.AddAttendee(entry.UserID); err != nil {
			return err
		}
		session.Capacity.WaitlistCount--
		if session.Capacity.WaitlistCount < 0 {
			session.Capacity.WaitlistCount = 0
		}

		if err := entry.Promote(); err != nil {
			return err
		}

		if err := tx.PutWaitlistEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.PutSession(ctx, session); err != nil {
			return err
		}

		promoted = entry
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if promoted == nil {
		return nil, nil
	}

	metrics.RecordWaitlistPromotion(ctx, sessionID)
	logger.Get().Info("waitlist entry promoted",
		zap.String("session_id", sessionID),
		zap.String("user_id", promoted.UserID),
		zap.String("entry_id", promoted.ID),
	)

	// Best-effort notification, never gates the committed promotion
	if err := s.notifier.Notify(ctx, &dto.NotificationEvent{
		EventType: dto.NotificationWaitlistPromoted,
		UserID:    promoted.UserID,
		SessionID: sessionID,
		Message:   "A seat opened up and your waitlist spot was promoted",
	}); err != nil {
		logger.Get().Warn("promotion notification failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	return promoted, nil
}
