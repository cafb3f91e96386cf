package common

import (
	"encoding/json"
	"net/http"
	"time"

	"autovitrine/precos/internal/logging"
)

// API status values used in the admin envelope.
const (
	APIStatusOk    = "ok"
	APIStatusError = "error"
)

// APIResponse is the envelope used by the admin endpoints.
type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// RespondSuccess sends a standardized JSON success response.
func RespondSuccess(w http.ResponseWriter, initTime time.Time, message string, data any, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := APIResponse{
		Status:       APIStatusOk,
		Message:      message,
		ResponseTime: GetResponseTime(initTime),
		Data:         data,
	}

	WriteJSON(w, code, response)
}

// RespondError sends a standardized JSON error response.
func RespondError(w http.ResponseWriter, initTime time.Time, err error, message string, statusCode ...int) {
	code := http.StatusInternalServerError
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	msg := message
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}

	response := APIResponse{
		Status:       APIStatusError,
		Message:      msg,
		ResponseTime: GetResponseTime(initTime),
	}

	WriteJSON(w, code, response)
}

// WriteJSON marshals body and writes it to the HTTP response.
func WriteJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("JSON encode failed", "error", err.Error())
	}
}
