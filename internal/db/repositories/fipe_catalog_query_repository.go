package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"autovitrine/precos/internal/fipe"
)

// CatalogQueryRepo is the read side of the normalized tables. Every listing
// is restricted to active entities priced in the given reference month.
type CatalogQueryRepo struct {
	db *sqlx.DB
}

// NewCatalogQueryRepo creates a new catalog query repository
func NewCatalogQueryRepo(db *sqlx.DB) *CatalogQueryRepo {
	return &CatalogQueryRepo{db: db}
}

const (
	queryLatestReferenceMonth = `SELECT MAX(reference_month) FROM fipe_price_versions`

	// Runs are append-only, so the count of passes that wrote to the
	// catalog only ever grows.
	queryCatalogGeneration = `
	SELECT COUNT(*)
	FROM fipe_normalization_runs
	WHERE rows_processed > 0 OR mode = ?`

	queryListBrands = `
	SELECT b.code, b.name, b.vehicle_type, b.active
	FROM fipe_brands b
	WHERE b.active = ?
	  AND (CAST(? AS TEXT) = '' OR b.vehicle_type = ?)
	  AND EXISTS (
	    SELECT 1 FROM fipe_models m
	    JOIN fipe_price_versions pv ON pv.model_code = m.code
	    WHERE m.brand_code = b.code AND m.active = ? AND pv.reference_month = ?
	  )
	ORDER BY b.name ASC, b.code ASC`

	queryGetBrand = `
	SELECT code, name, vehicle_type, active
	FROM fipe_brands
	WHERE code = ? AND active = ?`

	queryGetModel = `
	SELECT code, brand_code, name, active
	FROM fipe_models
	WHERE brand_code = ? AND code = ? AND active = ?`

	queryListModels = `
	SELECT m.code, m.brand_code, m.name, m.active
	FROM fipe_models m
	WHERE m.brand_code = ? AND m.active = ?
	  AND EXISTS (
	    SELECT 1 FROM fipe_price_versions pv
	    WHERE pv.model_code = m.code AND pv.reference_month = ?
	  )
	ORDER BY m.name ASC, m.code ASC`

	queryListYears = `
	SELECT DISTINCT year
	FROM fipe_price_versions
	WHERE model_code = ? AND reference_month = ?
	ORDER BY year DESC`

	queryListVersionsForYear = `
	SELECT model_code, version, year, price_code, reference_month, price
	FROM fipe_price_versions
	WHERE model_code = ? AND year = ? AND reference_month = ?
	ORDER BY version ASC`

	queryListVersionsForModel = `
	SELECT model_code, version, year, price_code, reference_month, price
	FROM fipe_price_versions
	WHERE model_code = ? AND reference_month = ?
	ORDER BY year DESC, version ASC`

	queryFindPrice = `
	SELECT model_code, version, year, price_code, reference_month, price
	FROM fipe_price_versions
	WHERE model_code = ? AND year = ? AND reference_month = ?
	  AND (version = ? OR price_code = ?)
	ORDER BY CASE WHEN version = ? THEN 0 ELSE 1 END, version ASC
	LIMIT 1`

	queryLastPricedMonth = `
	SELECT MAX(reference_month)
	FROM fipe_price_versions
	WHERE model_code = ? AND year = ? AND (version = ? OR price_code = ?)`
)

// LatestReferenceMonth returns the newest month present in
// fipe_price_versions, or "" when the table is empty.
func (r *CatalogQueryRepo) LatestReferenceMonth(ctx context.Context) (string, error) {
	var month sql.NullString
	if err := r.db.GetContext(ctx, &month, r.db.Rebind(queryLatestReferenceMonth)); err != nil {
		return "", err
	}
	return month.String, nil
}

// CatalogVersion returns the latest reference month together with the
// catalog generation.
func (r *CatalogQueryRepo) CatalogVersion(ctx context.Context) (fipe.CatalogVersion, error) {
	month, err := r.LatestReferenceMonth(ctx)
	if err != nil {
		return fipe.CatalogVersion{}, err
	}
	var generation int64
	if err := r.db.GetContext(ctx, &generation, r.db.Rebind(queryCatalogGeneration), "rebuild"); err != nil {
		return fipe.CatalogVersion{}, err
	}
	return fipe.CatalogVersion{Month: month, Generation: generation}, nil
}

// ListBrands lists active brands priced in month, optionally of one vehicle type.
func (r *CatalogQueryRepo) ListBrands(ctx context.Context, month, vehicleType string) ([]fipe.Brand, error) {
	brands := []fipe.Brand{}
	err := r.db.SelectContext(ctx, &brands, r.db.Rebind(queryListBrands), true, vehicleType, vehicleType, true, month)
	return brands, err
}

// GetBrand returns an active brand, or nil when none matches.
func (r *CatalogQueryRepo) GetBrand(ctx context.Context, code string) (*fipe.Brand, error) {
	var brand fipe.Brand
	err := r.db.GetContext(ctx, &brand, r.db.Rebind(queryGetBrand), code, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetModel returns an active model of brandCode, or nil when none matches.
func (r *CatalogQueryRepo) GetModel(ctx context.Context, brandCode, modelCode string) (*fipe.Model, error) {
	var model fipe.Model
	err := r.db.GetContext(ctx, &model, r.db.Rebind(queryGetModel), brandCode, modelCode, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ListModels lists active models of brandCode priced in month.
func (r *CatalogQueryRepo) ListModels(ctx context.Context, brandCode, month string) ([]fipe.Model, error) {
	models := []fipe.Model{}
	err := r.db.SelectContext(ctx, &models, r.db.Rebind(queryListModels), brandCode, true, month)
	return models, err
}

// ListYears lists the distinct years priced for modelCode in month, newest first.
func (r *CatalogQueryRepo) ListYears(ctx context.Context, modelCode, month string) ([]int, error) {
	years := []int{}
	err := r.db.SelectContext(ctx, &years, r.db.Rebind(queryListYears), modelCode, month)
	return years, err
}

// ListVersions lists the versions of modelCode for one year in month.
func (r *CatalogQueryRepo) ListVersions(ctx context.Context, modelCode string, year int, month string) ([]fipe.PriceVersion, error) {
	versions := []fipe.PriceVersion{}
	err := r.db.SelectContext(ctx, &versions, r.db.Rebind(queryListVersionsForYear), modelCode, year, month)
	return versions, err
}

// ListModelVersions lists every version of modelCode in month.
func (r *CatalogQueryRepo) ListModelVersions(ctx context.Context, modelCode, month string) ([]fipe.PriceVersion, error) {
	versions := []fipe.PriceVersion{}
	err := r.db.SelectContext(ctx, &versions, r.db.Rebind(queryListVersionsForModel), modelCode, month)
	return versions, err
}

// FindPrice looks up one version by name or price code. An exact version
// name match wins over a price code match.
func (r *CatalogQueryRepo) FindPrice(ctx context.Context, modelCode string, year int, versionOrCode, month string) (*fipe.PriceVersion, error) {
	var pv fipe.PriceVersion
	err := r.db.GetContext(ctx, &pv, r.db.Rebind(queryFindPrice), modelCode, year, month, versionOrCode, versionOrCode, versionOrCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pv, nil
}

// LastPricedMonth returns the newest month in which the configuration was
// priced at all, or "" if never.
func (r *CatalogQueryRepo) LastPricedMonth(ctx context.Context, modelCode string, year int, versionOrCode string) (string, error) {
	var month sql.NullString
	err := r.db.GetContext(ctx, &month, r.db.Rebind(queryLastPricedMonth), modelCode, year, versionOrCode, versionOrCode)
	if err != nil {
		return "", err
	}
	return month.String, nil
}

// Ping checks the underlying connection.
func (r *CatalogQueryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
