package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"

	"github.com/courtside/session-booking/internal/domain"
)

const testWebhookSecret = "whsec_test_secret"

// MockBookingLifecycle is a mock implementation of BookingLifecycle
type MockBookingLifecycle struct {
	ApplyPaymentSucceededFunc func(ctx context.Context, bookingID string) (*domain.Booking, error)
	ApplyPaymentFailedFunc    func(ctx context.Context, bookingID string) (*domain.Booking, error)
	ApplyRefundFunc           func(ctx context.Context, bookingID string) (*domain.Booking, error)
}

func (m *MockBookingLifecycle) ApplyPaymentSucceeded(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if m.ApplyPaymentSucceededFunc != nil {
		return m.ApplyPaymentSucceededFunc(ctx, bookingID)
	}
	return nil, nil
}

func (m *MockBookingLifecycle) ApplyPaymentFailed(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if m.ApplyPaymentFailedFunc != nil {
		return m.ApplyPaymentFailedFunc(ctx, bookingID)
	}
	return nil, nil
}

func (m *MockBookingLifecycle) ApplyRefund(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if m.ApplyRefundFunc != nil {
		return m.ApplyRefundFunc(ctx, bookingID)
	}
	return nil, nil
}

func setupWebhookRouter(lifecycle *MockBookingLifecycle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(lifecycle, testWebhookSecret, nil)
	router.POST("/webhooks/stripe", handler.HandleStripeWebhook)
	return router
}

// signPayload produces a Stripe-Signature header value for the payload
// using the t=timestamp,v1=hmac scheme.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventID, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"type":        eventType,
		"data":        map[string]interface{}{"object": object},
	})
	if err != nil {
		t.Fatalf("failed to marshal event payload: %v", err)
	}
	return payload
}

func postWebhook(router *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_SignatureChecks(t *testing.T) {
	var called bool
	lifecycle := &MockBookingLifecycle{
		ApplyPaymentSucceededFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			called = true
			return nil, nil
		},
	}
	router := setupWebhookRouter(lifecycle)
	payload := eventPayload(t, "evt_001", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_001",
		"object":   "payment_intent",
		"metadata": map[string]string{"booking_id": "booking-001"},
	})

	tests := []struct {
		name      string
		signature string
	}{
		{name: "missing signature header", signature: ""},
		{name: "wrong secret", signature: signPayload(payload, "whsec_wrong")},
		{name: "garbage header", signature: "t=123,v1=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			w := postWebhook(router, payload, tt.signature)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if called {
				t.Error("lifecycle invoked despite rejected signature")
			}
		})
	}
}

func TestWebhookHandler_PaymentIntentSucceeded(t *testing.T) {
	var gotBookingID string
	lifecycle := &MockBookingLifecycle{
		ApplyPaymentSucceededFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			gotBookingID = bookingID
			return &domain.Booking{ID: bookingID, Status: domain.BookingStatusConfirmed}, nil
		},
	}
	router := setupWebhookRouter(lifecycle)

	payload := eventPayload(t, "evt_001", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_001",
		"object":   "payment_intent",
		"amount":   5000,
		"currency": "usd",
		"metadata": map[string]string{"booking_id": "booking-001"},
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotBookingID != "booking-001" {
		t.Errorf("booking id = %q, want booking-001", gotBookingID)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["received"] != true {
		t.Errorf("body = %v, want received=true", body)
	}
}

func TestWebhookHandler_MissingBookingMetadata(t *testing.T) {
	var called bool
	lifecycle := &MockBookingLifecycle{
		ApplyPaymentSucceededFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			called = true
			return nil, nil
		},
	}
	router := setupWebhookRouter(lifecycle)

	payload := eventPayload(t, "evt_002", "payment_intent.succeeded", map[string]interface{}{
		"id":     "pi_002",
		"object": "payment_intent",
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	// Uncorrelated events are acknowledged, not retried
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if called {
		t.Error("lifecycle invoked without a booking id")
	}
}

func TestWebhookHandler_InternalFailure(t *testing.T) {
	lifecycle := &MockBookingLifecycle{
		ApplyPaymentSucceededFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			return nil, errors.New("store unavailable")
		},
	}
	router := setupWebhookRouter(lifecycle)

	payload := eventPayload(t, "evt_003", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_003",
		"object":   "payment_intent",
		"metadata": map[string]string{"booking_id": "booking-001"},
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	// 500 tells the provider to redeliver
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestWebhookHandler_PaymentIntentFailed(t *testing.T) {
	var gotBookingID string
	lifecycle := &MockBookingLifecycle{
		ApplyPaymentFailedFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			gotBookingID = bookingID
			return &domain.Booking{ID: bookingID, Status: domain.BookingStatusFailedPayment}, nil
		},
	}
	router := setupWebhookRouter(lifecycle)

	payload := eventPayload(t, "evt_004", "payment_intent.payment_failed", map[string]interface{}{
		"id":       "pi_004",
		"object":   "payment_intent",
		"metadata": map[string]string{"booking_id": "booking-002"},
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotBookingID != "booking-002" {
		t.Errorf("booking id = %q, want booking-002", gotBookingID)
	}
}

func TestWebhookHandler_ChargeRefunded(t *testing.T) {
	var gotBookingID string
	lifecycle := &MockBookingLifecycle{
		ApplyRefundFunc: func(ctx context.Context, bookingID string) (*domain.Booking, error) {
			gotBookingID = bookingID
			return &domain.Booking{ID: bookingID, Status: domain.BookingStatusCancelled}, nil
		},
	}
	router := setupWebhookRouter(lifecycle)

	payload := eventPayload(t, "evt_005", "charge.refunded", map[string]interface{}{
		"id":       "ch_001",
		"object":   "charge",
		"metadata": map[string]string{"booking_id": "booking-003"},
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotBookingID != "booking-003" {
		t.Errorf("booking id = %q, want booking-003", gotBookingID)
	}
}

func TestWebhookHandler_UnhandledEventType(t *testing.T) {
	router := setupWebhookRouter(&MockBookingLifecycle{})

	payload := eventPayload(t, "evt_006", "customer.created", map[string]interface{}{
		"id":     "cus_001",
		"object": "customer",
	})
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
