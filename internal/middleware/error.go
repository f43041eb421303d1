package middleware

import (
	"encoding/json"
	"net/http"

	"storefront/internal/domain"

	"go.uber.org/zap"
)

// ServerErrorMessage is the only detail clients see for unexpected failures
const ServerErrorMessage = "A server error occurred."

// ErrorResponse is the body of authentication, permission, not-found and server errors
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondWithError sends a {"detail": message} response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Detail: message})
}

// RespondWithFieldErrors sends a 400 response keyed by field name
func RespondWithFieldErrors(w http.ResponseWriter, errs domain.FieldErrors) {
	RespondWithJSON(w, http.StatusBadRequest, errs)
}

// RespondWithServerError logs err and hides it behind a generic 500
func RespondWithServerError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	logger.Error("Request failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
	RespondWithError(w, http.StatusInternalServerError, ServerErrorMessage)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, ServerErrorMessage)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
