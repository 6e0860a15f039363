package dto

import (
	"time"
)

// Topic names for notification events
const (
	TopicNotifications = "booking.notifications"
)

// NotificationType identifies the kind of user notification
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "booking.confirmed"
	NotificationBookingFailed    NotificationType = "booking.failed"
	NotificationBookingCancelled NotificationType = "booking.cancelled"
	NotificationWaitlistPromoted NotificationType = "waitlist.promoted"
)

// NotificationEvent is published when a user should be told about a booking change
type NotificationEvent struct {
	EventType NotificationType `json:"event_type"`
	UserID    string           `json:"user_id"`
	SessionID string           `json:"session_id"`
	BookingID string           `json:"booking_id,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Key returns the Kafka message key for partitioning
func (e *NotificationEvent) Key() string {
	return e.UserID
}
