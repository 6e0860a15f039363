package notification

import (
	"context"

	"github.com/courtside/session-booking/internal/dto"
)

// Notifier delivers user-facing booking notifications.
// Delivery is best effort: callers must never fail a booking
// operation because a notification could not be sent.
type Notifier interface {
	Notify(ctx context.Context, event *dto.NotificationEvent) error
}

// NoopNotifier discards all notifications
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

var _ Notifier = (*NoopNotifier)(nil)

func (n *NoopNotifier) Notify(ctx context.Context, event *dto.NotificationEvent) error {
	return nil
}
