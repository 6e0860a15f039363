package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/pkg/middleware"
)

// MockWaitlistService is a mock implementation of WaitlistService
type MockWaitlistService struct {
	JoinFunc        func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error)
	PromoteNextFunc func(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error)
}

func (m *MockWaitlistService) Join(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, sessionID, userID)
	}
	return nil, nil
}

func (m *MockWaitlistService) PromoteNext(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error) {
	if m.PromoteNextFunc != nil {
		return m.PromoteNextFunc(ctx, sessionID)
	}
	return nil, nil
}

func setupWaitlistRouter(handler *WaitlistHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, userID)
			c.Next()
		})
	}
	router.POST("/api/v1/sessions/:id/waitlist", handler.Join)
	return router
}

func TestWaitlistHandler_Join(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		joinFunc   func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "joined",
			userID: "user-001",
			joinFunc: func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
				return &domain.WaitlistEntry{
					ID:        "entry-001",
					SessionID: sessionID,
					UserID:    userID,
					Status:    domain.WaitlistStatusPending,
					JoinedAt:  time.Now().UTC(),
				}, nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unauthenticated",
			userID:     "",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHENTICATED",
		},
		{
			name:   "session has open seats",
			userID: "user-001",
			joinFunc: func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
				return nil, domain.ErrSessionNotFull
			},
			wantStatus: http.StatusConflict,
			wantCode:   "FAILED_PRECONDITION",
		},
		{
			name:   "waitlist disabled",
			userID: "user-001",
			joinFunc: func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
				return nil, domain.ErrWaitlistDisabled
			},
			wantStatus: http.StatusConflict,
			wantCode:   "FAILED_PRECONDITION",
		},
		{
			name:   "already queued",
			userID: "user-001",
			joinFunc: func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
				return nil, domain.ErrAlreadyOnWaitlist
			},
			wantStatus: http.StatusConflict,
			wantCode:   "FAILED_PRECONDITION",
		},
		{
			name:   "session not found",
			userID: "user-001",
			joinFunc: func(ctx context.Context, sessionID, userID string) (*domain.WaitlistEntry, error) {
				return nil, domain.ErrSessionNotFound
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewWaitlistHandler(&MockWaitlistService{JoinFunc: tt.joinFunc})
			router := setupWaitlistRouter(handler, tt.userID)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-001/waitlist", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				resp := decodeResponse(t, w)
				if resp.Error == nil || resp.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
				}
			}
		})
	}
}
