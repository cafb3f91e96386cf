package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/services"
)

// Mock FilterSessions
type mockSessions struct {
	createFunc   func(ctx context.Context, vehicleType string) (*services.SessionView, error)
	getFunc      func(id string) (*services.SessionView, error)
	setFieldFunc func(ctx context.Context, id string, field filter.Field, value string) (*services.SessionView, error)
	resetFunc    func(ctx context.Context, id string) (*services.SessionView, error)
	retryFunc    func(ctx context.Context, id string) (*services.SessionView, error)
}

func (m *mockSessions) Create(ctx context.Context, vehicleType string) (*services.SessionView, error) {
	return m.createFunc(ctx, vehicleType)
}

func (m *mockSessions) Get(id string) (*services.SessionView, error) {
	return m.getFunc(id)
}

func (m *mockSessions) SetField(ctx context.Context, id string, field filter.Field, value string) (*services.SessionView, error) {
	return m.setFieldFunc(ctx, id, field, value)
}

func (m *mockSessions) Reset(ctx context.Context, id string) (*services.SessionView, error) {
	return m.resetFunc(ctx, id)
}

func (m *mockSessions) Retry(ctx context.Context, id string) (*services.SessionView, error) {
	return m.retryFunc(ctx, id)
}

func sessionRouter(sessions FilterSessions) http.Handler {
	r := chi.NewRouter()
	r.Post("/sessoes", CreateSessionHandler(sessions))
	r.Get("/sessoes/{id}", GetSessionHandler(sessions))
	r.Post("/sessoes/{id}/campo", SetSessionFieldHandler(sessions))
	r.Post("/sessoes/{id}/reset", ResetSessionHandler(sessions))
	r.Post("/sessoes/{id}/retry", RetrySessionHandler(sessions))
	return r
}

func postJSON(h http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreateSessionHandler(t *testing.T) {
	sessions := &mockSessions{
		createFunc: func(ctx context.Context, vehicleType string) (*services.SessionView, error) {
			if vehicleType != "motos" {
				t.Errorf("Expected vehicle type motos, got %q", vehicleType)
			}
			return &services.SessionView{ID: "abc", View: filter.View{Stage: filter.StageEmpty}}, nil
		},
	}

	rr := postJSON(sessionRouter(sessions), "/sessoes?veiculo=motos", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	var view services.SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if view.ID != "abc" || view.Stage != filter.StageEmpty {
		t.Errorf("Unexpected view: %+v", view)
	}
}

func TestGetSessionHandler_NotFound(t *testing.T) {
	sessions := &mockSessions{
		getFunc: func(id string) (*services.SessionView, error) {
			return nil, services.ErrSessionNotFound
		},
	}
	rr := serve(sessionRouter(sessions), "GET", "/sessoes/missing")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestSetSessionFieldHandler(t *testing.T) {
	sessions := &mockSessions{
		setFieldFunc: func(ctx context.Context, id string, field filter.Field, value string) (*services.SessionView, error) {
			if id != "abc" || field != filter.FieldModel || value != "honda-civic" {
				t.Errorf("Unexpected call: id=%s field=%s value=%s", id, field, value)
			}
			return &services.SessionView{ID: id, View: filter.View{Stage: filter.StageModelChosen}}, nil
		},
	}

	rr := postJSON(sessionRouter(sessions), "/sessoes/abc/campo", `{"field":"modelo","value":"honda-civic"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestSetSessionFieldHandler_BadRequests(t *testing.T) {
	sessions := &mockSessions{
		setFieldFunc: func(ctx context.Context, id string, field filter.Field, value string) (*services.SessionView, error) {
			if field == filter.FieldYear {
				return nil, filter.ErrOutOfOrder
			}
			return nil, filter.ErrUnknownOption
		},
	}
	h := sessionRouter(sessions)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing value", `{"field":"marca"}`},
		{"unknown field", `{"field":"cor","value":"azul"}`},
		{"out of order", `{"field":"ano","value":"2017"}`},
		{"unknown option", `{"field":"marca","value":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(h, "/sessoes/abc/campo", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestResetAndRetrySessionHandlers(t *testing.T) {
	var resets, retries int
	sessions := &mockSessions{
		resetFunc: func(ctx context.Context, id string) (*services.SessionView, error) {
			resets++
			return &services.SessionView{ID: id}, nil
		},
		retryFunc: func(ctx context.Context, id string) (*services.SessionView, error) {
			retries++
			return nil, services.ErrSessionNotFound
		},
	}
	h := sessionRouter(sessions)

	if rr := postJSON(h, "/sessoes/abc/reset", ""); rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr := postJSON(h, "/sessoes/abc/retry", ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
	if resets != 1 || retries != 1 {
		t.Errorf("Expected one reset and one retry, got %d and %d", resets, retries)
	}
}
