package api

import (
	"errors"
	"net/http"

	"autovitrine/precos/internal/auth"
	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/services"
)

// ErrorResponse is the body of every public error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	common.WriteJSON(w, statusCode, data)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	common.WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondWithInternalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Error("Request failed",
		"request_id", auth.GetRequestID(r.Context()),
		"path", r.URL.Path,
		"error", err.Error())
	common.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Details: err.Error(),
	})
}

// respondWithServiceError maps catalog errors to 404 and 400 and anything
// else to 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotCurrentlyPriced):
		respondWithError(w, http.StatusNotFound, "not currently priced")
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAmbiguousVersion):
		respondWithError(w, http.StatusBadRequest, "versao is required: "+err.Error())
	default:
		respondWithInternalError(w, r, err)
	}
}
