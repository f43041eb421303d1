package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/authz"
	"storefront/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// Auth failure details
const (
	MsgMissingCredentials = "Authentication credentials were not provided."
	MsgInvalidToken       = "Given token not valid for any token type"
	MsgInvalidHeader      = "Authorization header must contain two space-delimited values"
)

// TokenValidator parses access tokens. service.UserService satisfies it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*service.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores its claims in the context
func AuthMiddleware(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, true)
}

// OptionalAuthMiddleware lets anonymous requests through but still rejects bad tokens
func OptionalAuthMiddleware(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, false)
}

func authenticate(validator TokenValidator, logger *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					logger.Debug("Missing authorization header")
					RespondWithError(w, http.StatusUnauthorized, MsgMissingCredentials)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, MsgInvalidHeader)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), parts[1])
			if err != nil {
				if !errors.Is(err, service.ErrInvalidToken) && !errors.Is(err, service.ErrTokenExpired) {
					RespondWithServerError(w, r, logger, err)
					return
				}
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", claims.UserID.String()),
				zap.String("role", claims.Role),
			)

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores validated claims in ctx
func WithClaims(ctx context.Context, claims *service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims of the authenticated request
func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

// CallerFromContext returns the caller for permission checks, nil when anonymous
func CallerFromContext(ctx context.Context) *authz.Caller {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil
	}
	return &authz.Caller{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return claims.UserID, true
}
