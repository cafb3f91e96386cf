package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/services"
)

// FilterSessions is the server-side store of filter machines.
type FilterSessions interface {
	Create(ctx context.Context, vehicleType string) (*services.SessionView, error)
	Get(id string) (*services.SessionView, error)
	SetField(ctx context.Context, id string, field filter.Field, value string) (*services.SessionView, error)
	Reset(ctx context.Context, id string) (*services.SessionView, error)
	Retry(ctx context.Context, id string) (*services.SessionView, error)
}

// SetFieldRequest is the body of POST /api/fipe/sessoes/{id}/campo.
type SetFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"required"`
}

var requestValidator = validator.New()

func respondWithSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, filter.ErrOutOfOrder),
		errors.Is(err, filter.ErrUnknownOption),
		errors.Is(err, filter.ErrUnknownField):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithInternalError(w, r, err)
	}
}

// CreateSessionHandler handles POST /api/fipe/sessoes?veiculo=
func CreateSessionHandler(sessions FilterSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleType, ok := vehicleTypeParam(w, r.URL.Query())
		if !ok {
			return
		}
		view, err := sessions.Create(r.Context(), vehicleType)
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, view)
	}
}

// GetSessionHandler handles GET /api/fipe/sessoes/{id}
func GetSessionHandler(sessions FilterSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

// SetSessionFieldHandler handles POST /api/fipe/sessoes/{id}/campo
func SetSessionFieldHandler(sessions FilterSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetFieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := requestValidator.Struct(req); err != nil {
			respondWithError(w, http.StatusBadRequest, "field and value are required")
			return
		}
		field, err := filter.ParseField(req.Field)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		view, err := sessions.SetField(r.Context(), chi.URLParam(r, "id"), field, req.Value)
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

// ResetSessionHandler handles POST /api/fipe/sessoes/{id}/reset
func ResetSessionHandler(sessions FilterSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := sessions.Reset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

// RetrySessionHandler handles POST /api/fipe/sessoes/{id}/retry
func RetrySessionHandler(sessions FilterSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := sessions.Retry(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}
