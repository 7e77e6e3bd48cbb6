package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"hospitaldesk/internal/services"
	"hospitaldesk/internal/utils"
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotRegistered),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrHospitalNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidOrExpired),
		errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoUpdateFields):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError maps a service error to its status. Unexpected
// errors are logged and hidden behind a generic message.
func respondWithServiceError(w http.ResponseWriter, err error, operation string) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("operation", operation).Msg("Request failed")
		utils.SendJSONError(w, "Internal server error", code)
		return
	}
	utils.SendJSONError(w, err.Error(), code)
}
