package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autovitrine/precos/internal/api"
	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/config"
	"autovitrine/precos/internal/db/dbtest"
	"autovitrine/precos/internal/fipe"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	gormDB, sqlxDB := dbtest.Open(t)
	cfg := &config.Config{
		Env:       "test",
		Cache:     config.CacheConfig{Backend: "memory", DefaultTTL: time.Minute},
		Admin:     config.AdminConfig{JWTSecret: testSecret},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
		Fipe: config.FipeConfig{
			LatestMonthTTL:     time.Minute,
			ImportBatchSize:    100,
			NormalizeBatchSize: 100,
			NormalizeWorkers:   1,
			SessionTTL:         time.Minute,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	deps, err := api.InitDependencies(ctx, cfg, sqlxDB, gormDB, reg)
	require.NoError(t, err)

	return RegisterRoutes(cfg, deps, reg, time.Now())
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := common.NewTokenSigner([]byte(testSecret)).Issue("router-test", common.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterImportNormalizeAndQuery(t *testing.T) {
	h := newTestRouter(t)
	token := adminToken(t)

	rr := do(h, http.MethodGet, "/api/fipe/referencia", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	export := `[
		{"Brand Value":"Honda","Model Value":"Civic","Year Code":"2017-1","Fipe Code":"014072-2","Price":"R$ 78.500,00","Version Value":"LXR 2.0"},
		{"Brand Value":"Honda","Model Value":"Civic","Year Code":"2017-1","Fipe Code":"014073-0","Price":"R$ 92.100,00","Version Value":"Touring 1.5 Turbo"}
	]`
	rr = do(h, http.MethodPost, "/api/admin/fipe/import?mes=2024-06", token, export)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, http.MethodPost, "/api/admin/fipe/normalize", token, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, http.MethodGet, "/api/fipe/referencia", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"referenceMonth":"2024-06"}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/api/fipe/consultar?marca=honda&modelo=honda-civic&ano=2017&versao=LXR%202.0", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var pv fipe.PriceVersion
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&pv))
	assert.True(t, decimal.RequireFromString("78500").Equal(pv.Price), pv.Price.String())

	// Two versions for the year, so versao is required.
	rr = do(h, http.MethodGet, "/api/fipe/consultar?marca=honda&modelo=honda-civic&ano=2017", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodGet, "/api/admin/fipe/runs", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var runs common.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&runs))
	assert.Len(t, runs.Data, 1)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	h := newTestRouter(t)

	rr := do(h, http.MethodPost, "/api/admin/fipe/normalize", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/api/admin/fipe/raw/stats", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/api/admin/fipe/raw/stats", adminToken(t), "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterSessionsAndOps(t *testing.T) {
	h := newTestRouter(t)

	rr := do(h, http.MethodPost, "/api/fipe/sessoes", "", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var view struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	require.NotEmpty(t, view.ID)
	assert.Equal(t, "empty", view.Stage)

	rr = do(h, http.MethodGet, "/api/fipe/sessoes/"+view.ID, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/healthCheck", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fipe_http_requests_total")
}
