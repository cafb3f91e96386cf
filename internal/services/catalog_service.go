package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
)

var (
	// ErrNotFound is returned when a brand, model or price does not resolve
	// at the latest reference month.
	ErrNotFound = fipe.ErrNotFound
	// ErrNotCurrentlyPriced means the configuration exists in an earlier
	// month only. It matches ErrNotFound under errors.Is.
	ErrNotCurrentlyPriced = fmt.Errorf("%w: not priced at the latest reference month", ErrNotFound)
	// ErrAmbiguousVersion is returned by ResolvePrice when no version was
	// given and the year has more than one.
	ErrAmbiguousVersion = errors.New("more than one version priced for this year")
)

// CatalogReader is the read side the catalog service queries.
type CatalogReader interface {
	LatestReferenceMonth(ctx context.Context) (string, error)
	ListBrands(ctx context.Context, month, vehicleType string) ([]fipe.Brand, error)
	GetBrand(ctx context.Context, code string) (*fipe.Brand, error)
	GetModel(ctx context.Context, brandCode, modelCode string) (*fipe.Model, error)
	ListModels(ctx context.Context, brandCode, month string) ([]fipe.Model, error)
	ListYears(ctx context.Context, modelCode, month string) ([]int, error)
	ListVersions(ctx context.Context, modelCode string, year int, month string) ([]fipe.PriceVersion, error)
	ListModelVersions(ctx context.Context, modelCode, month string) ([]fipe.PriceVersion, error)
	FindPrice(ctx context.Context, modelCode string, year int, versionOrCode, month string) (*fipe.PriceVersion, error)
	LastPricedMonth(ctx context.Context, modelCode string, year int, versionOrCode string) (string, error)
}

// CatalogService answers the hierarchical brand > model > year > version
// queries. Every answer is pinned to the latest reference month.
type CatalogService struct {
	repo     CatalogReader
	latest   *LatestMonthCache
	cache    common.CacheInterface
	cacheTTL time.Duration
	metrics  *metrics.MetricsRegistry
}

// NewCatalogService wires the service. cache may be nil to disable response
// caching.
func NewCatalogService(
	repo CatalogReader,
	latest *LatestMonthCache,
	cache common.CacheInterface,
	cacheTTL time.Duration,
	m *metrics.MetricsRegistry,
) *CatalogService {
	return &CatalogService{repo: repo, latest: latest, cache: cache, cacheTTL: cacheTTL, metrics: m}
}

// LatestReferenceMonth returns the month every listing is pinned to, or ""
// when nothing has been normalized yet.
func (s *CatalogService) LatestReferenceMonth(ctx context.Context) (string, error) {
	v, err := s.version(ctx)
	return v.Month, err
}

func (s *CatalogService) version(ctx context.Context) (fipe.CatalogVersion, error) {
	v, err := s.latest.Version(ctx)
	if err != nil {
		return fipe.CatalogVersion{}, fmt.Errorf("latest reference month: %w", err)
	}
	return v, nil
}

// ListBrands lists active brands priced at the latest month, by name.
// An empty vehicleType lists every type.
func (s *CatalogService) ListBrands(ctx context.Context, vehicleType string) ([]fipe.Brand, error) {
	v, err := s.version(ctx)
	if err != nil || v.Month == "" {
		return []fipe.Brand{}, err
	}
	return cached(ctx, s, catalogKey(v, "brands", vehicleType), func() ([]fipe.Brand, error) {
		return s.repo.ListBrands(ctx, v.Month, vehicleType)
	})
}

// ListModels lists the active models of brandCode priced at the latest month.
func (s *CatalogService) ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error) {
	if _, err := s.brand(ctx, brandCode); err != nil {
		return nil, err
	}
	v, err := s.version(ctx)
	if err != nil || v.Month == "" {
		return []fipe.Model{}, err
	}
	return cached(ctx, s, catalogKey(v, "models", brandCode), func() ([]fipe.Model, error) {
		return s.repo.ListModels(ctx, brandCode, v.Month)
	})
}

// ListYears lists the years priced at the latest month, newest first.
func (s *CatalogService) ListYears(ctx context.Context, brandCode, modelCode string) ([]int, error) {
	if _, err := s.model(ctx, brandCode, modelCode); err != nil {
		return nil, err
	}
	v, err := s.version(ctx)
	if err != nil || v.Month == "" {
		return []int{}, err
	}
	return cached(ctx, s, catalogKey(v, "years", modelCode), func() ([]int, error) {
		return s.repo.ListYears(ctx, modelCode, v.Month)
	})
}

// ListVersions lists the versions of one model year, by version name.
func (s *CatalogService) ListVersions(ctx context.Context, brandCode, modelCode string, year int) ([]fipe.PriceVersion, error) {
	if _, err := s.model(ctx, brandCode, modelCode); err != nil {
		return nil, err
	}
	v, err := s.version(ctx)
	if err != nil || v.Month == "" {
		return []fipe.PriceVersion{}, err
	}
	return cached(ctx, s, catalogKey(v, "versions", modelCode, strconv.Itoa(year)), func() ([]fipe.PriceVersion, error) {
		return s.repo.ListVersions(ctx, modelCode, year, v.Month)
	})
}

// ListModelVersions lists every version of a model across years, newest
// year first.
func (s *CatalogService) ListModelVersions(ctx context.Context, brandCode, modelCode string) ([]fipe.PriceVersion, error) {
	if _, err := s.model(ctx, brandCode, modelCode); err != nil {
		return nil, err
	}
	v, err := s.version(ctx)
	if err != nil || v.Month == "" {
		return []fipe.PriceVersion{}, err
	}
	return cached(ctx, s, catalogKey(v, "versions", modelCode), func() ([]fipe.PriceVersion, error) {
		return s.repo.ListModelVersions(ctx, modelCode, v.Month)
	})
}

// GetPrice resolves one price at the latest month. versionOrPriceCode
// matches either the version name or the FIPE price code.
func (s *CatalogService) GetPrice(ctx context.Context, brandCode, modelCode string, year int, versionOrPriceCode string) (*fipe.PriceVersion, error) {
	if _, err := s.model(ctx, brandCode, modelCode); err != nil {
		return nil, err
	}
	month, err := s.LatestReferenceMonth(ctx)
	if err != nil {
		return nil, err
	}
	if month == "" {
		return nil, ErrNotFound
	}

	pv, err := s.repo.FindPrice(ctx, modelCode, year, versionOrPriceCode, month)
	if err != nil {
		return nil, fmt.Errorf("find price: %w", err)
	}
	if pv != nil {
		return pv, nil
	}

	last, err := s.repo.LastPricedMonth(ctx, modelCode, year, versionOrPriceCode)
	if err != nil {
		return nil, fmt.Errorf("last priced month: %w", err)
	}
	if last != "" && last < month {
		return nil, ErrNotCurrentlyPriced
	}
	return nil, ErrNotFound
}

// ResolvePrice is GetPrice for callers that may omit the version. Without
// one the year must have exactly one priced version.
func (s *CatalogService) ResolvePrice(ctx context.Context, brandCode, modelCode string, year int, version string) (*fipe.PriceVersion, error) {
	if version != "" {
		return s.GetPrice(ctx, brandCode, modelCode, year, version)
	}
	versions, err := s.ListVersions(ctx, brandCode, modelCode, year)
	if err != nil {
		return nil, err
	}
	switch len(versions) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &versions[0], nil
	default:
		return nil, ErrAmbiguousVersion
	}
}

// CheckVehicleType reports ErrNotFound when brandCode is not of vehicleType.
func (s *CatalogService) CheckVehicleType(ctx context.Context, brandCode, vehicleType string) error {
	b, err := s.brand(ctx, brandCode)
	if err != nil {
		return err
	}
	if vehicleType != "" && b.VehicleType != vehicleType {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) brand(ctx context.Context, brandCode string) (*fipe.Brand, error) {
	b, err := s.repo.GetBrand(ctx, brandCode)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *CatalogService) model(ctx context.Context, brandCode, modelCode string) (*fipe.Model, error) {
	if _, err := s.brand(ctx, brandCode); err != nil {
		return nil, err
	}
	m, err := s.repo.GetModel(ctx, brandCode, modelCode)
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// catalogKey scopes a response cache key to one catalog version, so a
// normalization pass that changes the catalog moves readers to new keys.
func catalogKey(v fipe.CatalogVersion, parts ...string) string {
	return "fipe:" + strconv.FormatInt(v.Generation, 10) + ":" + v.Month + ":" + strings.Join(parts, ":")
}

// cached serves a listing from the response cache, loading and storing it on
// a miss.
func cached[T any](ctx context.Context, s *CatalogService, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}

	var (
		loaded T
		missed bool
	)
	data, err := s.cache.GetOrSet(ctx, key, s.cacheTTL, func() ([]byte, error) {
		missed = true
		v, err := load()
		if err != nil {
			return nil, err
		}
		loaded = v
		return json.Marshal(v)
	})
	s.countCache(!missed)
	if err != nil {
		var zero T
		return zero, err
	}
	if missed {
		return loaded, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logging.Warn("[Catalog] Dropping undecodable cache entry", "key", key)
		s.cache.Delete(ctx, key)
		return load()
	}
	return v, nil
}

func (s *CatalogService) countCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues("catalog").Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues("catalog").Inc()
	}
}
