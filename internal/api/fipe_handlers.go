package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"autovitrine/precos/internal/fipe"
)

// CatalogQuerier is the read side behind the public /api/fipe endpoints.
type CatalogQuerier interface {
	LatestReferenceMonth(ctx context.Context) (string, error)
	ListBrands(ctx context.Context, vehicleType string) ([]fipe.Brand, error)
	ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error)
	ListYears(ctx context.Context, brandCode, modelCode string) ([]int, error)
	ListVersions(ctx context.Context, brandCode, modelCode string, year int) ([]fipe.PriceVersion, error)
	ListModelVersions(ctx context.Context, brandCode, modelCode string) ([]fipe.PriceVersion, error)
	ResolvePrice(ctx context.Context, brandCode, modelCode string, year int, version string) (*fipe.PriceVersion, error)
	CheckVehicleType(ctx context.Context, brandCode, vehicleType string) error
}

// ReferenceMonthResponse is the body of GET /api/fipe/referencia.
type ReferenceMonthResponse struct {
	ReferenceMonth string `json:"referenceMonth"`
}

// requireParams writes a 400 naming every missing parameter.
func requireParams(w http.ResponseWriter, q url.Values, names ...string) bool {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(q.Get(n)) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		respondWithError(w, http.StatusBadRequest, "missing required parameter: "+strings.Join(missing, ", "))
		return false
	}
	return true
}

// vehicleTypeParam validates the optional veiculo parameter.
func vehicleTypeParam(w http.ResponseWriter, q url.Values) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(q.Get("veiculo")))
	if v != "" && !fipe.IsVehicleType(v) {
		respondWithError(w, http.StatusBadRequest, "invalid veiculo: must be carros, motos or caminhoes")
		return "", false
	}
	return v, true
}

func yearParam(w http.ResponseWriter, raw string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid ano: must be a positive integer")
		return 0, false
	}
	return year, true
}

// ListBrandsHandler handles GET /api/fipe/marcas
func ListBrandsHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicleType, ok := vehicleTypeParam(w, r.URL.Query())
		if !ok {
			return
		}
		brands, err := svc.ListBrands(r.Context(), vehicleType)
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, brands)
	}
}

// ListModelsHandler handles GET /api/fipe/modelos?marca=
func ListModelsHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !requireParams(w, q, "marca") {
			return
		}
		models, err := svc.ListModels(r.Context(), q.Get("marca"))
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, models)
	}
}

// ListYearsHandler handles GET /api/fipe/anos?marca=&modelo=&veiculo=
func ListYearsHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !requireParams(w, q, "marca", "modelo") {
			return
		}
		vehicleType, ok := vehicleTypeParam(w, q)
		if !ok {
			return
		}
		ctx := r.Context()
		if vehicleType != "" {
			if err := svc.CheckVehicleType(ctx, q.Get("marca"), vehicleType); err != nil {
				respondWithServiceError(w, r, err)
				return
			}
		}
		years, err := svc.ListYears(ctx, q.Get("marca"), q.Get("modelo"))
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, years)
	}
}

// ListVersionsHandler handles GET /api/fipe/versoes?marca=&modelo=&ano=
// Without ano every year of the model is listed.
func ListVersionsHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !requireParams(w, q, "marca", "modelo") {
			return
		}
		ctx := r.Context()

		var (
			versions []fipe.PriceVersion
			err      error
		)
		if raw := q.Get("ano"); raw != "" {
			year, ok := yearParam(w, raw)
			if !ok {
				return
			}
			versions, err = svc.ListVersions(ctx, q.Get("marca"), q.Get("modelo"), year)
		} else {
			versions, err = svc.ListModelVersions(ctx, q.Get("marca"), q.Get("modelo"))
		}
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, versions)
	}
}

// GetPriceHandler handles GET /api/fipe/consultar?marca=&modelo=&ano=&versao=&veiculo=
func GetPriceHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !requireParams(w, q, "marca", "modelo", "ano") {
			return
		}
		vehicleType, ok := vehicleTypeParam(w, q)
		if !ok {
			return
		}
		year, ok := yearParam(w, q.Get("ano"))
		if !ok {
			return
		}
		ctx := r.Context()
		if vehicleType != "" {
			if err := svc.CheckVehicleType(ctx, q.Get("marca"), vehicleType); err != nil {
				respondWithServiceError(w, r, err)
				return
			}
		}

		pv, err := svc.ResolvePrice(ctx, q.Get("marca"), q.Get("modelo"), year, strings.TrimSpace(q.Get("versao")))
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, pv)
	}
}

// ReferenceMonthHandler handles GET /api/fipe/referencia
func ReferenceMonthHandler(svc CatalogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err := svc.LatestReferenceMonth(r.Context())
		if err != nil {
			respondWithInternalError(w, r, err)
			return
		}
		if month == "" {
			respondWithError(w, http.StatusNotFound, "no prices loaded")
			return
		}
		respondWithJSON(w, http.StatusOK, ReferenceMonthResponse{ReferenceMonth: month})
	}
}
