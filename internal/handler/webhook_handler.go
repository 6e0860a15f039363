package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/courtside/session-booking/internal/metrics"
	"github.com/courtside/session-booking/internal/service"
	"github.com/courtside/session-booking/pkg/logger"
	pkgredis "github.com/courtside/session-booking/pkg/redis"
)

const webhookDedupeTTL = 24 * time.Hour

// WebhookHandler handles Stripe webhook events
type WebhookHandler struct {
	lifecycle     service.BookingLifecycle
	webhookSecret string
	redis         *pkgredis.Client
}

// NewWebhookHandler creates a new WebhookHandler. redis is optional; when
// present it provides a dedupe fast path on the Stripe event id. The
// booking-state idempotency guard remains the authoritative protection.
func NewWebhookHandler(lifecycle service.BookingLifecycle, webhookSecret string, redis *pkgredis.Client) *WebhookHandler {
	return &WebhookHandler{
		lifecycle:     lifecycle,
		webhookSecret: webhookSecret,
		redis:         redis,
	}
}

// HandleStripeWebhook handles incoming Stripe webhook events
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	log := logger.Get()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to read webhook body: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	// Signature check happens before any mutation; a forged event can
	// never have a side effect.
	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to verify webhook signature: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	metrics.RecordWebhookReceived(c.Request.Context(), string(event.Type))

	if h.alreadySeen(c.Request.Context(), event.ID) {
		log.Info(fmt.Sprintf("Duplicate webhook event %s, acknowledging", event.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(c, event)
	case "charge.refunded":
		h.handleChargeRefunded(c, event)
	default:
		log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event type not handled"})
	}
}

// handlePaymentIntentSucceeded confirms the booking named in the intent's
// metadata
func (h *WebhookHandler) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.succeeded: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	bookingID := paymentIntent.Metadata["booking_id"]
	log.Info(fmt.Sprintf("Payment succeeded: booking_id=%s, intent=%s, amount=%d %s",
		bookingID, paymentIntent.ID, paymentIntent.Amount, paymentIntent.Currency))

	if bookingID == "" {
		// Structurally valid but uncorrelated; nothing to redeliver for
		log.Warn(fmt.Sprintf("payment_intent.succeeded without booking_id metadata: %s", paymentIntent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	booking, err := h.lifecycle.ApplyPaymentSucceeded(c.Request.Context(), bookingID)
	if err != nil {
		// Internal failure: let the provider redeliver
		metrics.RecordWebhookFailed(c.Request.Context(), string(event.Type), "apply_failed")
		h.releaseClaim(c.Request.Context(), event.ID)
		log.Error(fmt.Sprintf("Failed to apply payment success for booking %s: %v", bookingID, err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	if booking != nil {
		log.Info(fmt.Sprintf("Booking %s now %s", booking.ID, booking.Status))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handlePaymentIntentFailed marks the booking failed_payment
func (h *WebhookHandler) handlePaymentIntentFailed(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.payment_failed: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	bookingID := paymentIntent.Metadata["booking_id"]

	failureMessage := "Payment failed"
	if paymentIntent.LastPaymentError != nil && paymentIntent.LastPaymentError.Msg != "" {
		failureMessage = paymentIntent.LastPaymentError.Msg
	}
	log.Warn(fmt.Sprintf("Payment failed: booking_id=%s, reason=%s", bookingID, failureMessage))

	if bookingID == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if _, err := h.lifecycle.ApplyPaymentFailed(c.Request.Context(), bookingID); err != nil {
		metrics.RecordWebhookFailed(c.Request.Context(), string(event.Type), "apply_failed")
		h.releaseClaim(c.Request.Context(), event.ID)
		log.Error(fmt.Sprintf("Failed to apply payment failure for booking %s: %v", bookingID, err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleChargeRefunded releases the refunded booking's seat
func (h *WebhookHandler) handleChargeRefunded(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		log.Error(fmt.Sprintf("Failed to parse charge.refunded: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	bookingID := charge.Metadata["booking_id"]
	log.Info(fmt.Sprintf("Charge refunded: booking_id=%s, charge=%s", bookingID, charge.ID))

	if bookingID == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if _, err := h.lifecycle.ApplyRefund(c.Request.Context(), bookingID); err != nil {
		metrics.RecordWebhookFailed(c.Request.Context(), string(event.Type), "apply_failed")
		h.releaseClaim(c.Request.Context(), event.ID)
		log.Error(fmt.Sprintf("Failed to apply refund for booking %s: %v", bookingID, err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// alreadySeen claims the event id in Redis. Fail-open: a Redis outage
// disables the fast path, not webhook processing.
func (h *WebhookHandler) alreadySeen(ctx context.Context, eventID string) bool {
	if h.redis == nil || eventID == "" {
		return false
	}
	ok, err := h.redis.SetNX(ctx, "webhook:event:"+eventID, 1, webhookDedupeTTL).Result()
	if err != nil {
		return false
	}
	return !ok
}

// releaseClaim drops the dedupe claim so the provider's redelivery of a
// failed event is not swallowed as a duplicate.
func (h *WebhookHandler) releaseClaim(ctx context.Context, eventID string) {
	if h.redis == nil || eventID == "" {
		return
	}
	h.redis.Del(ctx, "webhook:event:"+eventID)
}
