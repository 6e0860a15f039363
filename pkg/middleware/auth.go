package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/courtside/session-booking/pkg/response"
)

const (
	// ContextKeyUserID is the context key for the authenticated user ID
	ContextKeyUserID = "user_id"
)

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	Secret string
	Issuer string
}

// AuthMiddleware validates the Bearer token and stores the user ID in context
func AuthMiddleware(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("UNAUTHENTICATED", "Missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("UNAUTHENTICATED", "Invalid authorization header format"))
			return
		}

		userID, err := parseUserID(parts[1], cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("UNAUTHENTICATED", "Invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

func parseUserID(tokenString string, cfg *AuthConfig) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != cfg.Issuer {
			return "", fmt.Errorf("invalid token issuer")
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token missing subject")
	}

	return sub, nil
}

// GetUserID extracts the authenticated user ID from gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
