package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", code).Msg("Failed to encode JSON response")
	}
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, APIResponse{Success: true, Data: data})
}

func RespondWithMessage(w http.ResponseWriter, code int, message string, data interface{}) {
	writeJSON(w, code, APIResponse{Success: true, Message: message, Data: data})
}

func SendJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, APIResponse{Success: false, Error: message})
}

func SendValidationErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Error: "validation failed", Errors: fields})
}
