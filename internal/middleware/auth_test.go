package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubValidator accepts exactly one token
type stubValidator struct {
	token  string
	claims *service.Claims
	err    error
}

func (s *stubValidator) ValidateToken(ctx context.Context, tokenString string) (*service.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if tokenString != s.token {
		return nil, service.ErrInvalidToken
	}
	return s.claims, nil
}

func newStubValidator() *stubValidator {
	return &stubValidator{
		token: "good-token",
		claims: &service.Claims{
			UserID:   uuid.New(),
			Username: "alice",
			Role:     domain.RoleUser,
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(newStubValidator(), zap.NewNop())(okHandler())

			req := httptest.NewRequest(method, "/api/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized && decodeDetail(t, w) == MsgMissingCredentials
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "PATCH", "DELETE"),
	))

	properties.Property("malformed authorization headers are rejected by both variants", prop.ForAll(
		func(header string, optional bool) bool {
			mw := AuthMiddleware(newStubValidator(), zap.NewNop())
			if optional {
				mw = OptionalAuthMiddleware(newStubValidator(), zap.NewNop())
			}

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneConstOf("good-token", "Basic good-token", "Bearer", "Bearer a b", "Token good-token", "Bearer bad-token"),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_StoresClaims(t *testing.T) {
	validator := newStubValidator()

	var caller bool
	handler := AuthMiddleware(validator, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := CallerFromContext(r.Context())
		require.NotNil(t, c)
		assert.Equal(t, validator.claims.UserID, c.UserID)
		assert.Equal(t, "alice", c.Username)

		id, ok := GetUserID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, validator.claims.UserID, id)

		assert.Equal(t, domain.RoleUser, c.Role)
		caller = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, caller)
}

func TestOptionalAuthMiddleware_AllowsAnonymous(t *testing.T) {
	handler := OptionalAuthMiddleware(newStubValidator(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, CallerFromContext(r.Context()))
		_, ok := GetUserID(r.Context())
		assert.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_ExpiredAndFailingValidation(t *testing.T) {
	validator := newStubValidator()
	validator.err = service.ErrTokenExpired

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	AuthMiddleware(validator, zap.NewNop())(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgInvalidToken, decodeDetail(t, w))

	validator.err = errors.New("database is gone")
	w = httptest.NewRecorder()
	AuthMiddleware(validator, zap.NewNop())(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ServerErrorMessage, decodeDetail(t, w))
}
