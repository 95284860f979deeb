package models

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// requestIDHeader mirrors middleware.RequestIDHeader; the middleware sets
// it on the response before any handler runs.
const requestIDHeader = "X-Request-ID"

// ErrorResponse is the JSON envelope of every failed request. RequestID
// lets a client quote the failing call back against the server log.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Code      int    `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes an ErrorResponse with the given status. Error bodies
// are never cached.
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, code, ErrorResponse{
		Status:    "error",
		Message:   message,
		Code:      code,
		RequestID: w.Header().Get(requestIDHeader),
	})
}

// WriteJSON writes v as the response body. Encoding failures after the
// header is sent can only be logged.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Int("status", code).Msg("write response body")
	}
}
