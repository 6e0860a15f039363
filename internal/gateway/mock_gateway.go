package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// alphanumericChars for generating Stripe-compatible IDs
const alphanumericChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomAlphanumeric generates a random alphanumeric string of given length
func randomAlphanumeric(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumericChars[rand.Intn(len(alphanumericChars))]
	}
	return string(b)
}

// MockGateway implements PaymentGateway for testing and load testing
type MockGateway struct {
	config  *MockGatewayConfig
	intents sync.Map // map[paymentIntentID]*PaymentIntentResponse
	refunds sync.Map // map[paymentIntentID]int64
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// FailureRate is the probability of a failed intent creation (0.0 to 1.0)
	FailureRate float64

	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		FailureRate: 0,
		DelayMs:     0,
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}
	if config.FailureRate < 0 {
		config.FailureRate = 0
	}
	if config.FailureRate > 1 {
		config.FailureRate = 1
	}

	return &MockGateway{
		config: config,
	}
}

var _ PaymentGateway = (*MockGateway)(nil)

// CreatePaymentIntent simulates opening a payment
func (g *MockGateway) CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("payment intent request is required")
	}

	g.simulateDelay(ctx)

	if rand.Float64() < g.config.FailureRate {
		return nil, fmt.Errorf("mock gateway: intent creation failed")
	}

	metadata := map[string]string{
		"booking_id": req.BookingID,
		"session_id": req.SessionID,
		"user_id":    req.UserID,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	resp := &PaymentIntentResponse{
		PaymentIntentID: "pi_mock_" + randomAlphanumeric(24),
		ClientSecret:    "pi_mock_secret_" + uuid.New().String(),
		Status:          "requires_payment_method",
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Metadata:        metadata,
	}

	g.intents.Store(resp.PaymentIntentID, resp)
	return resp, nil
}

// Refund records a refund against a previously created intent
func (g *MockGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	if paymentIntentID == "" {
		return fmt.Errorf("payment intent ID is required")
	}

	g.simulateDelay(ctx)

	g.refunds.Store(paymentIntentID, amountCents)
	return nil
}

// GetPaymentIntent returns a previously created intent
func (g *MockGateway) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentResponse, error) {
	v, ok := g.intents.Load(paymentIntentID)
	if !ok {
		return nil, fmt.Errorf("mock gateway: unknown payment intent %s", paymentIntentID)
	}
	return v.(*PaymentIntentResponse), nil
}

// RefundedAmount reports the refunded amount for an intent, for test assertions
func (g *MockGateway) RefundedAmount(paymentIntentID string) (int64, bool) {
	v, ok := g.refunds.Load(paymentIntentID)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

func (g *MockGateway) simulateDelay(ctx context.Context) {
	if g.config.DelayMs <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
	case <-ctx.Done():
	}
}
