package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"autovitrine/precos/internal/constants"
	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/fipe"
)

func newFipeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fipe/marcas", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("veiculo") != "carros" {
			t.Errorf("Expected veiculo=carros, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]fipe.Brand{{Code: "honda", Name: "Honda"}})
	})
	mux.HandleFunc("/api/fipe/modelos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("marca") != "honda" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "brand not found"})
			return
		}
		json.NewEncoder(w).Encode([]fipe.Model{{Code: "honda-civic", BrandCode: "honda", Name: "Civic"}})
	})
	mux.HandleFunc("/api/fipe/anos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]int{2017})
	})
	mux.HandleFunc("/api/fipe/versoes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]fipe.PriceVersion{{ModelCode: "honda-civic", Version: "EXL 2.0", Year: 2017, PriceCode: "001234-1"}})
	})
	mux.HandleFunc("/api/fipe/consultar", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("versao") != "EXL 2.0" {
			t.Errorf("Expected versao=EXL 2.0, got %q", r.URL.Query().Get("versao"))
		}
		json.NewEncoder(w).Encode(fipe.PriceVersion{
			ModelCode:      "honda-civic",
			Version:        "EXL 2.0",
			Year:           2017,
			ReferenceMonth: "2024-01",
			Price:          decimal.RequireFromString("85432.10"),
		})
	})
	mux.HandleFunc("/api/fipe/referencia", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error", "details": "db down"})
	})
	return httptest.NewServer(mux)
}

func TestFipeAPIProvider_DrivesFilterMachine(t *testing.T) {
	server := newFipeServer(t)
	defer server.Close()

	provider := NewFipeAPIProvider(server.URL, "carros")
	m := filter.NewMachine(provider)
	ctx := context.Background()

	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	steps := []struct {
		field filter.Field
		value string
	}{
		{filter.FieldBrand, "honda"},
		{filter.FieldModel, "honda-civic"},
		{filter.FieldYear, "2017"},
		{filter.FieldVersion, "001234-1"},
	}
	for _, s := range steps {
		if err := m.SetField(ctx, s.field, s.value); err != nil {
			t.Fatalf("SetField(%s, %s): %v", s.field, s.value, err)
		}
	}

	v := m.View()
	if v.Price == nil {
		t.Fatal("Expected a price")
	}
	if !v.Price.Price.Equal(decimal.RequireFromString("85432.10")) {
		t.Errorf("Expected price 85432.10, got %s", v.Price.Price)
	}
}

func TestFipeAPIProvider_NotFound(t *testing.T) {
	server := newFipeServer(t)
	defer server.Close()

	provider := NewFipeAPIProvider(server.URL, "")
	_, err := provider.ListModels(context.Background(), "gurgel")

	if !errors.Is(err, fipe.ErrNotFound) {
		t.Fatalf("Expected fipe.ErrNotFound, got %v", err)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if perr.Details != "brand not found" {
		t.Errorf("Expected details from body, got %q", perr.Details)
	}
}

func TestFipeAPIProvider_ServerError(t *testing.T) {
	server := newFipeServer(t)
	defer server.Close()

	provider := NewFipeAPIProvider(server.URL, "")
	_, err := provider.ReferenceMonth(context.Background())

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Code != constants.ErrCodeUpstreamError {
		t.Errorf("Expected %s, got %s", constants.ErrCodeUpstreamError, perr.Code)
	}
	if perr.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", perr.Status)
	}
}

func TestFipeAPIProvider_Unreachable(t *testing.T) {
	provider := NewFipeAPIProvider("http://127.0.0.1:1", "")
	_, err := provider.ListBrands(context.Background())

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != constants.ErrCodeNetworkError {
		t.Fatalf("Expected network error, got %v", err)
	}
}
