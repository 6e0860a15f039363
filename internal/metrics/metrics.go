package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/courtside/session-booking/pkg/telemetry"
)

var (
	// Booking lifecycle counters
	BookingsConfirmed  *telemetry.Counter
	BookingsOverbooked *telemetry.Counter
	BookingsFailed     *telemetry.Counter
	BookingsCancelled  *telemetry.Counter
	BookingsRefunded   *telemetry.Counter

	// Waitlist counters
	WaitlistJoins      *telemetry.Counter
	WaitlistPromotions *telemetry.Counter

	// Webhook counters
	WebhooksReceived *telemetry.Counter
	WebhooksFailed   *telemetry.Counter

	// Transaction conflict tracking
	TxConflicts *telemetry.Counter

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_confirmed_total",
		Description: "Total number of bookings confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsOverbooked, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_overbooked_total",
		Description: "Total number of paid bookings that lost the capacity race",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_failed_total",
		Description: "Total number of bookings with failed payment",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_cancelled_total",
		Description: "Total number of cancelled bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsRefunded, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_refunded_total",
		Description: "Total number of refunded bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WaitlistJoins, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "waitlist_join_total",
		Description: "Total number of waitlist joins",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WaitlistPromotions, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "waitlist_promotion_total",
		Description: "Total number of waitlist promotions",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhooksReceived, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "webhook_received_total",
		Description: "Total number of payment webhooks received",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhooksFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "webhook_failed_total",
		Description: "Total number of payment webhooks that failed processing",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TxConflicts, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "tx_conflict_total",
		Description: "Total number of transactions that exhausted conflict retries",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordBookingConfirmed records a confirmed booking
func RecordBookingConfirmed(ctx context.Context, sessionID string) {
	if BookingsConfirmed != nil {
		BookingsConfirmed.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordBookingOverbooked records a booking that lost the capacity race
func RecordBookingOverbooked(ctx context.Context, sessionID string) {
	if BookingsOverbooked != nil {
		BookingsOverbooked.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordBookingFailed records a payment failure
func RecordBookingFailed(ctx context.Context, sessionID string) {
	if BookingsFailed != nil {
		BookingsFailed.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordBookingCancelled records a cancellation
func RecordBookingCancelled(ctx context.Context, sessionID string, refunded bool) {
	if BookingsCancelled != nil {
		BookingsCancelled.Inc(ctx,
			attribute.String("session_id", sessionID),
			attribute.Bool("refunded", refunded),
		)
	}
}

// RecordBookingRefunded records a gateway-driven refund
func RecordBookingRefunded(ctx context.Context, sessionID string) {
	if BookingsRefunded != nil {
		BookingsRefunded.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordWaitlistJoin records a waitlist join
func RecordWaitlistJoin(ctx context.Context, sessionID string) {
	if WaitlistJoins != nil {
		WaitlistJoins.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordWaitlistPromotion records a waitlist promotion
func RecordWaitlistPromotion(ctx context.Context, sessionID string) {
	if WaitlistPromotions != nil {
		WaitlistPromotions.Inc(ctx, attribute.String("session_id", sessionID))
	}
}

// RecordWebhookReceived records an inbound payment webhook
func RecordWebhookReceived(ctx context.Context, eventType string) {
	if WebhooksReceived != nil {
		WebhooksReceived.Inc(ctx, attribute.String("event_type", eventType))
	}
}

// RecordWebhookFailed records a webhook processing failure
func RecordWebhookFailed(ctx context.Context, eventType, reason string) {
	if WebhooksFailed != nil {
		WebhooksFailed.Inc(ctx,
			attribute.String("event_type", eventType),
			attribute.String("reason", reason),
		)
	}
}

// RecordTxConflict records a transaction that exhausted its retries
func RecordTxConflict(ctx context.Context, operation string) {
	if TxConflicts != nil {
		TxConflicts.Inc(ctx, attribute.String("operation", operation))
	}
}
