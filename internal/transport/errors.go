package transport

import (
	"errors"
	"net/http"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"go.uber.org/zap"
)

const (
	msgForbidden = "You do not have permission to perform this action."
	msgNotFound  = "Not found."
)

// respondWithServiceError maps service and gate errors to HTTP responses.
// Anything unrecognised is logged and reported as a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var fieldErrs domain.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		middleware.RespondWithFieldErrors(w, fieldErrs)
	case errors.Is(err, authz.ErrUnauthenticated):
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgMissingCredentials)
	case errors.Is(err, authz.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, service.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, service.ErrCategoryInUse):
		middleware.RespondWithError(w, http.StatusBadRequest, "Cannot delete a category that still has products.")
	case errors.Is(err, service.ErrUploadsDisabled):
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "Image uploads are not available.")
	default:
		middleware.RespondWithServerError(w, r, logger, err)
	}
}
