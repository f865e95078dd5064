package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"velvetden/internal/domain"
)

// WriteServiceError maps a service error to its HTTP status and error code.
// Errors outside the domain kinds are logged and reported as 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		WriteJSONError(w, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
	case errors.Is(err, domain.ErrTooManyAttempts):
		WriteJSONError(w, http.StatusTooManyRequests, ErrCodeTooManyRequests, "too many login attempts, try again later")
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
