package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/internal/service"
	"github.com/courtside/session-booking/pkg/middleware"
	"github.com/courtside/session-booking/pkg/response"
)

// MockCheckoutService is a mock implementation of CheckoutService
type MockCheckoutService struct {
	CheckoutFunc   func(ctx context.Context, sessionID, userID, currency string) (*service.CheckoutResult, error)
	GetSessionFunc func(ctx context.Context, sessionID string) (*domain.Session, error)
	GetBookingFunc func(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
}

func (m *MockCheckoutService) Checkout(ctx context.Context, sessionID, userID, currency string) (*service.CheckoutResult, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, sessionID, userID, currency)
	}
	return nil, nil
}

func (m *MockCheckoutService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockCheckoutService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if m.GetBookingFunc != nil {
		return m.GetBookingFunc(ctx, bookingID, userID)
	}
	return nil, domain.ErrBookingNotFound
}

// MockCancellationService is a mock implementation of CancellationService
type MockCancellationService struct {
	CancelFunc func(ctx context.Context, sessionID, userID string) (*service.CancelResult, error)
}

func (m *MockCancellationService) Cancel(ctx context.Context, sessionID, userID string) (*service.CancelResult, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, sessionID, userID)
	}
	return nil, nil
}

func setupBookingRouter(handler *BookingHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, userID)
			c.Next()
		})
	}
	v1 := router.Group("/api/v1")
	v1.POST("/sessions/:id/bookings", handler.Checkout)
	v1.POST("/sessions/:id/cancel", handler.Cancel)
	v1.GET("/sessions/:id", handler.GetSession)
	v1.GET("/bookings/:id", handler.GetBooking)
	return router
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return resp
}

func testBooking(status domain.BookingStatus) *domain.Booking {
	now := time.Now().UTC()
	return &domain.Booking{
		ID:        "booking-001",
		SessionID: "session-001",
		UserID:    "user-001",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBookingHandler_Checkout(t *testing.T) {
	checkout := &MockCheckoutService{
		CheckoutFunc: func(ctx context.Context, sessionID, userID, currency string) (*service.CheckoutResult, error) {
			booking := testBooking(domain.BookingStatusPendingPayment)
			booking.PaymentIntentID = "pi_001"
			return &service.CheckoutResult{
				Booking:      booking,
				ClientSecret: "pi_001_secret",
				AmountCents:  5000,
				Currency:     "usd",
			}, nil
		},
	}
	handler := NewBookingHandler(checkout, &MockCancellationService{})
	router := setupBookingRouter(handler, "user-001")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-001/bookings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if !resp.Success {
		t.Error("expected success envelope")
	}
}

func TestBookingHandler_Checkout_Errors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unauthenticated",
			userID:     "",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHENTICATED",
		},
		{
			name:       "session full",
			userID:     "user-001",
			serviceErr: domain.ErrSessionFull,
			wantStatus: http.StatusConflict,
			wantCode:   "FAILED_PRECONDITION",
		},
		{
			name:       "session not found",
			userID:     "user-001",
			serviceErr: domain.ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "already booked",
			userID:     "user-001",
			serviceErr: domain.ErrAlreadyConfirmed,
			wantStatus: http.StatusConflict,
			wantCode:   "FAILED_PRECONDITION",
		},
		{
			name:       "retries exhausted",
			userID:     "user-001",
			serviceErr: domain.ErrTxConflict,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "CONFLICT_RETRY_EXHAUSTED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := &MockCheckoutService{
				CheckoutFunc: func(ctx context.Context, sessionID, userID, currency string) (*service.CheckoutResult, error) {
					return nil, tt.serviceErr
				},
			}
			handler := NewBookingHandler(checkout, &MockCancellationService{})
			router := setupBookingRouter(handler, tt.userID)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-001/bookings", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeResponse(t, w)
			if resp.Success {
				t.Error("expected error envelope")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestBookingHandler_Cancel(t *testing.T) {
	cancellation := &MockCancellationService{
		CancelFunc: func(ctx context.Context, sessionID, userID string) (*service.CancelResult, error) {
			return &service.CancelResult{
				Booking:         testBooking(domain.BookingStatusCancelled),
				RefundProcessed: true,
				PromotedUserID:  "user-002",
			}, nil
		},
	}
	handler := NewBookingHandler(&MockCheckoutService{}, cancellation)
	router := setupBookingRouter(handler, "user-001")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-001/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			RefundEligible bool   `json:"refund_eligible"`
			PromotedUserID string `json:"promoted_user_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !body.Data.RefundEligible {
		t.Error("expected refund_eligible true")
	}
	if body.Data.PromotedUserID != "user-002" {
		t.Errorf("promoted_user_id = %q, want user-002", body.Data.PromotedUserID)
	}
}

func TestBookingHandler_Cancel_NotBooked(t *testing.T) {
	cancellation := &MockCancellationService{
		CancelFunc: func(ctx context.Context, sessionID, userID string) (*service.CancelResult, error) {
			return nil, domain.ErrNotBooked
		},
	}
	handler := NewBookingHandler(&MockCheckoutService{}, cancellation)
	router := setupBookingRouter(handler, "user-001")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-001/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestBookingHandler_GetBooking(t *testing.T) {
	checkout := &MockCheckoutService{
		GetBookingFunc: func(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
			if bookingID != "booking-001" || userID != "user-001" {
				return nil, domain.ErrBookingNotFound
			}
			return testBooking(domain.BookingStatusConfirmed), nil
		},
	}
	handler := NewBookingHandler(checkout, &MockCancellationService{})
	router := setupBookingRouter(handler, "user-001")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/booking-001", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/booking-999", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestBookingHandler_GetSession(t *testing.T) {
	checkout := &MockCheckoutService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*domain.Session, error) {
			return &domain.Session{
				ID:       sessionID,
				Name:     "Morning Badminton",
				Capacity: domain.Capacity{MaxAttendees: 10, CurrentAttendees: 3},
			}, nil
		},
	}
	handler := NewBookingHandler(checkout, &MockCancellationService{})
	// Session reads do not require auth context
	router := setupBookingRouter(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-001", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeResponse(t, w)
	if !resp.Success {
		t.Error("expected success envelope")
	}
}
