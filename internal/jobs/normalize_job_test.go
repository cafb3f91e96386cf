package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlib "gorm.io/gorm"

	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/db/dbtest"
	"autovitrine/precos/internal/db/repositories"
	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/metrics"
	gormModels "autovitrine/precos/internal/models/gorm"
	"autovitrine/precos/internal/services"
)

type harness struct {
	db      *gormlib.DB
	job     *NormalizeJob
	imports *services.ImportService
	catalog *services.CatalogService
	metrics *metrics.MetricsRegistry
}

func newHarness(t *testing.T, cfg NormalizeConfig) *harness {
	t.Helper()
	return newCachedHarness(t, cfg, nil)
}

// newCachedHarness serves catalog listings through cache.
func newCachedHarness(t *testing.T, cfg NormalizeConfig, cache common.CacheInterface) *harness {
	t.Helper()
	gormDB, sqlxDB := dbtest.Open(t)
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())

	query := repositories.NewCatalogQueryRepo(sqlxDB)
	latest := services.NewLatestMonthCache(query.CatalogVersion, time.Hour, nil, nil)
	job := NewNormalizeJob(gormDB, cfg, reg)
	job.OnComplete(latest.Invalidate)

	return &harness{
		db:      gormDB,
		job:     job,
		imports: services.NewImportService(repositories.NewRawPriceRepo(gormDB), 2, nil),
		catalog: services.NewCatalogService(query, latest, cache, time.Hour, nil),
		metrics: reg,
	}
}

func (h *harness) load(t *testing.T, month string, records ...fipe.ImportRecord) {
	t.Helper()
	report, err := h.imports.Import(context.Background(), month, records)
	require.NoError(t, err)
	require.Zero(t, report.Skipped)
}

func row(brand, model, yearCode, priceCode, price string) fipe.ImportRecord {
	return fipe.ImportRecord{Brand: brand, Model: model, YearCode: yearCode, PriceCode: priceCode, Price: price}
}

func count[T any](t *testing.T, db *gormlib.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(new(T)).Count(&n).Error)
	return n
}

func TestNormalizeHondaCivicEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	civic := []fipe.ImportRecord{
		row("Honda", "Civic", "2017-1", "001234-1", "R$ 85.432,10"),
		row("Honda", "Civic", "2017-2", "001234-1", "R$ 85.432,10"),
	}

	check := func() {
		brands, err := h.catalog.ListBrands(ctx, "")
		require.NoError(t, err)
		require.Len(t, brands, 1)
		assert.Equal(t, "honda", brands[0].Code)
		assert.Equal(t, "Honda", brands[0].Name)

		models, err := h.catalog.ListModels(ctx, "honda")
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, "honda-civic", models[0].Code)
		assert.Equal(t, "Civic", models[0].Name)

		years, err := h.catalog.ListYears(ctx, "honda", "honda-civic")
		require.NoError(t, err)
		assert.Equal(t, []int{2017}, years)

		pv, err := h.catalog.GetPrice(ctx, "honda", "honda-civic", 2017, "001234-1")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("85432.10").Equal(pv.Price), pv.Price.String())
	}

	h.load(t, "2024-01", civic...)
	run, err := h.job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, run.Status)
	assert.Equal(t, 2, run.RowsProcessed)
	assert.Equal(t, 1, run.VersionsInserted)
	assert.Equal(t, 1, run.BrandsCreated)
	assert.Equal(t, 1, run.ModelsCreated)
	check()

	h.load(t, "2024-01", civic...)
	run, err = h.job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, run.RowsProcessed)
	assert.Zero(t, run.BrandsCreated)
	assert.Zero(t, run.ModelsCreated)
	assert.Zero(t, run.VersionsInserted)
	assert.Equal(t, 1, run.VersionsUnchanged)
	check()

	assert.Equal(t, int64(1), count[gormModels.Brand](t, h.db))
	assert.Equal(t, int64(1), count[gormModels.Model](t, h.db))
	assert.Equal(t, int64(1), count[gormModels.PriceVersion](t, h.db))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 3, Workers: 2})

	h.load(t, "2024-05",
		row("Fiat", "Uno", "2010-1", "001001-1", "R$ 15.000,00"),
		row("Fiat", "Palio", "2012-1", "001002-1", "R$ 20.000,00"),
		row("VW", "Gol", "2015-1", "005001-1", "R$ 30.000,00"),
		row("VW", "Gol", "2016-1", "005001-1", "R$ 32.000,00"),
		row("VW - VolksWagen", "Gol", "2016-1", "005001-1", "R$ 32.000,00"),
	)

	_, err := h.job.Run(ctx)
	require.NoError(t, err)

	snapshot := func() []gormModels.PriceVersion {
		var rows []gormModels.PriceVersion
		require.NoError(t, h.db.Order("model_code, version, year, reference_month").Find(&rows).Error)
		return rows
	}
	first := snapshot()
	require.Len(t, first, 5)

	run, err := h.job.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeRebuild, run.Mode)
	assert.Equal(t, 5, run.RowsProcessed)

	second := snapshot()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
		assert.True(t, first[i].Price.Equal(second[i].Price))
	}

	// Nothing left to do.
	run, err = h.job.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, run.RowsProcessed)
}

func TestNormalizeUpdatesChangedPrice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05", row("Honda", "Fit", "2015-1", "014050-1", "R$ 50.000,00"))
	_, err := h.job.Run(ctx)
	require.NoError(t, err)

	h.load(t, "2024-05", row("Honda", "Fit", "2015-1", "014050-1", "R$ 49.500,00"))
	run, err := h.job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.VersionsUpdated)

	pv, err := h.catalog.GetPrice(ctx, "honda", "honda-fit", 2015, "Fit")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("49500").Equal(pv.Price))
}

func TestNormalizeResolvesCodeCollisions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05",
		row("Citroën", "C3", "2018-1", "1", "R$ 40.000,00"),
		row("Citroen", "C3", "2018-1", "2", "R$ 41.000,00"),
		row("CITROEN", "C3", "2018-1", "2", "R$ 41.000,00"),
	)
	_, err := h.job.Run(ctx)
	require.NoError(t, err)

	var brands []gormModels.Brand
	require.NoError(t, h.db.Order("code").Find(&brands).Error)
	require.Len(t, brands, 2)
	assert.Equal(t, "citroen", brands[0].Code)
	assert.Equal(t, "Citroën", brands[0].Name)
	assert.Equal(t, "citroen1", brands[1].Code)

	var models []gormModels.Model
	require.NoError(t, h.db.Order("code").Find(&models).Error)
	require.Len(t, models, 2)
	assert.Equal(t, "citroen-c3", models[0].Code)
	assert.Equal(t, "citroen1-c3", models[1].Code)
}

func TestNormalizeSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05",
		row("Honda", "Civic", "2017-1", "1", "R$ 85.000,00"),
		row("   ", "Civic", "2017-1", "1", "R$ 85.000,00"),
		row("Honda", "Civic", "1800-1", "1", "R$ 85.000,00"),
		row("Honda", "Civic", "2017-1", "1", "R$ -5,00"),
	)
	run, err := h.job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.RowsProcessed)
	assert.Equal(t, 3, run.RowsSkipped)
	assert.Equal(t, StatusSuccess, run.Status)

	stats, err := repositories.NewRawPriceRepo(h.db).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Unprocessed)

	assert.Equal(t, float64(3), testutil.ToFloat64(h.metrics.NormalizeRowsTotal.WithLabelValues("skipped")))
}

func TestNormalizeSkipsOversizedPriceCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05",
		row("Honda", "Civic", "2017-1", "014071-4", "R$ 85.000,00"),
		row("Honda", "Civic", "2018-1", strings.Repeat("9", 40), "R$ 92.000,00"),
		row("Honda", "Fit", "2015-1", "014050-1", "R$ 50.000,00"),
	)
	assert.Equal(t, int64(3), count[gormModels.RawPrice](t, h.db))

	run, err := h.job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, run.RowsProcessed)
	assert.Equal(t, 1, run.RowsSkipped)
	assert.Equal(t, int64(2), count[gormModels.PriceVersion](t, h.db))
}

func TestNormalizeRecordsRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05", row("Honda", "Civic", "2017-1", "1", "R$ 85.000,00"))
	run, err := h.job.Run(ctx)
	require.NoError(t, err)

	runs, err := repositories.NewNormalizationRunRepo(h.db).ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, StatusSuccess, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestNormalizeRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, NormalizeConfig{})

	h.job.mu.Lock()
	defer h.job.mu.Unlock()

	_, err := h.job.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = h.job.Rebuild(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestNormalizeInvalidatesLatestMonth(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1})

	h.load(t, "2024-05", row("Honda", "Civic", "2017-1", "1", "R$ 85.000,00"))
	_, err := h.job.Run(ctx)
	require.NoError(t, err)

	month, err := h.catalog.LatestReferenceMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", month)

	h.load(t, "2024-06", row("Honda", "Civic", "2017-1", "1", "R$ 84.000,00"))
	_, err = h.job.Run(ctx)
	require.NoError(t, err)

	month, err = h.catalog.LatestReferenceMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", month)
}

func TestNormalizeRefreshesCachedListings(t *testing.T) {
	ctx := context.Background()
	h := newCachedHarness(t, NormalizeConfig{BatchSize: 10, Workers: 1}, common.NewCacheService(time.Hour, time.Hour))

	h.load(t, "2024-01", row("Honda", "Civic", "2017-1", "014071-4", "R$ 85.000,00"))
	_, err := h.job.Run(ctx)
	require.NoError(t, err)

	years, err := h.catalog.ListYears(ctx, "honda", "honda-civic")
	require.NoError(t, err)
	assert.Equal(t, []int{2017}, years)

	// Same reference month, one more year.
	h.load(t, "2024-01", row("Honda", "Civic", "2018-1", "014071-4", "R$ 92.000,00"))
	_, err = h.job.Run(ctx)
	require.NoError(t, err)

	years, err = h.catalog.ListYears(ctx, "honda", "honda-civic")
	require.NoError(t, err)
	assert.Equal(t, []int{2018, 2017}, years)

	require.NoError(t, h.db.Where("year = ?", 2017).Delete(&gormModels.RawPrice{}).Error)
	_, err = h.job.Rebuild(ctx)
	require.NoError(t, err)

	years, err = h.catalog.ListYears(ctx, "honda", "honda-civic")
	require.NoError(t, err)
	assert.Equal(t, []int{2018}, years)

	versions, err := h.catalog.ListModelVersions(ctx, "honda", "honda-civic")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 2018, versions[0].Year)
}

func TestPartition(t *testing.T) {
	assert.Equal(t, []idRange{{1, 10}}, partition(1, 10, 1))
	assert.Equal(t, []idRange{{1, 4}, {5, 8}, {9, 10}}, partition(1, 10, 3))
	assert.Equal(t, []idRange{{7, 7}}, partition(7, 7, 4))
	assert.Equal(t, []idRange{{3, 4}, {5, 6}}, partition(3, 6, 2))
}
