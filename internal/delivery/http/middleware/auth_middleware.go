package middleware

import (
	"context"
	"net/http"
	"strings"

	"ai-booking-assistant/internal/service"
	"ai-booking-assistant/pkg/jwt"
	"ai-booking-assistant/pkg/response"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	TokenIDKey contextKey = "token_id"
)

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenStore service.TokenStore
	log        *logrus.Logger
	bareErrors bool
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenStore service.TokenStore, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenStore: tokenStore,
		log:        log,
	}
}

// WithBareErrors returns a copy that rejects requests with the {"error": ...}
// body used by the assistant endpoint.
func (m *AuthMiddleware) WithBareErrors() *AuthMiddleware {
	clone := *m
	clone.bareErrors = true
	return &clone
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	if m.bareErrors {
		response.Fail(w, http.StatusUnauthorized, message)
		return
	}
	response.Unauthorized(w, message)
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			m.unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.AccessToken {
			m.unauthorized(w, "Invalid token type")
			return
		}

		// Token must still be live in the store (not revoked by logout)
		exists, err := m.tokenStore.Exists(r.Context(), jwt.AccessToken, claims.UserID, claims.TokenID)
		if err != nil {
			m.log.Warnf("Failed to check access token: %+v", err)
			if m.bareErrors {
				response.Fail(w, http.StatusInternalServerError, "Failed to validate token")
				return
			}
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			m.unauthorized(w, "Token has been revoked")
			return
		}

		ctx := ContextWithUser(r.Context(), claims.UserID, claims.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextWithUser attaches the authenticated caller to ctx
func ContextWithUser(ctx context.Context, userID uuid.UUID, tokenID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, TokenIDKey, tokenID)
	return ctx
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
