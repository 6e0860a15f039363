package gateway

import (
	"context"
)

// PaymentGateway defines the interface for payment processing
type PaymentGateway interface {
	// CreatePaymentIntent opens a payment for client-side completion
	CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntentResponse, error)

	// Refund returns part or all of a captured payment
	Refund(ctx context.Context, paymentIntentID string, amountCents int64) error

	// GetPaymentIntent retrieves the current state of a payment intent
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentResponse, error)

	// Name returns the gateway name
	Name() string
}

// PaymentIntentRequest represents a request to open a payment
type PaymentIntentRequest struct {
	BookingID   string
	SessionID   string
	UserID      string
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// PaymentIntentResponse represents a payment intent
type PaymentIntentResponse struct {
	PaymentIntentID string
	ClientSecret    string
	Status          string
	AmountCents     int64
	Currency        string
	Metadata        map[string]string
}
