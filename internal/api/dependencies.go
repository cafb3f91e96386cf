package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/config"
	"autovitrine/precos/internal/db/repositories"
	"autovitrine/precos/internal/jobs"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
	"autovitrine/precos/internal/services"
	"autovitrine/precos/internal/workers"
)

type Repositories struct {
	Raw     *repositories.RawPriceRepo
	Catalog *repositories.CatalogQueryRepo
	Runs    *repositories.NormalizationRunRepo
}

type Services struct {
	Cache       common.CacheInterface
	LatestMonth *services.LatestMonthCache
	Catalog     *services.CatalogService
	Import      *services.ImportService
	Sessions    *services.FilterSessionService
	Signer      *common.TokenSigner
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Jobs     *jobs.NormalizeJob
	Workers  *workers.WorkersContainer
	Metrics  *metrics.MetricsRegistry

	// Health lists what /healthCheck probes.
	Health map[string]Pinger
}

// InitDependencies wires repositories, services, workers and the normalize
// job. Background work runs under ctx; the scheduler only starts when
// cfg.Fipe.NormalizeInterval is positive.
func InitDependencies(
	ctx context.Context,
	cfg *config.Config,
	sqlxDB *sqlx.DB,
	gormDB *gorm.DB,
	reg prometheus.Registerer,
) (*Dependencies, error) {
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET must be set")
	}

	metricsReg := metrics.NewMetricsRegistry(reg)

	repos := &Repositories{
		Raw:     repositories.NewRawPriceRepo(gormDB),
		Catalog: repositories.NewCatalogQueryRepo(sqlxDB),
		Runs:    repositories.NewNormalizationRunRepo(gormDB),
	}

	health := map[string]Pinger{"postgres": repos.Catalog}

	var cacheSvc common.CacheInterface
	switch cfg.Cache.Backend {
	case "redis":
		client, err := common.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		redisCache := common.NewRedisCacheService(client, "precos:")
		health["redis"] = redisCache
		cacheSvc = redisCache
		logging.Info("Using Redis response cache", "addr", cfg.Redis.Addr())
	default:
		cacheSvc = common.NewCacheService(cfg.Cache.DefaultTTL, 2*cfg.Cache.DefaultTTL)
		logging.Info("Using in-memory response cache")
	}

	latest := services.NewLatestMonthCache(repos.Catalog.CatalogVersion, cfg.Fipe.LatestMonthTTL, services.SystemClock, metricsReg)
	catalog := services.NewCatalogService(repos.Catalog, latest, cacheSvc, cfg.Cache.DefaultTTL, metricsReg)

	svcs := &Services{
		Cache:       cacheSvc,
		LatestMonth: latest,
		Catalog:     catalog,
		Import:      services.NewImportService(repos.Raw, cfg.Fipe.ImportBatchSize, metricsReg),
		Sessions:    services.NewFilterSessionService(catalog, cfg.Fipe.SessionTTL),
		Signer:      common.NewTokenSigner([]byte(cfg.Admin.JWTSecret)),
	}

	workersContainer := workers.InitWorkers(ctx, catalog)

	normalizeJob := jobs.InitializeJobs(
		ctx,
		gormDB,
		jobs.NormalizeConfig{
			BatchSize: cfg.Fipe.NormalizeBatchSize,
			Workers:   cfg.Fipe.NormalizeWorkers,
		},
		cfg.Fipe.NormalizeInterval,
		metricsReg,
		latest.Invalidate,
		workersContainer.CacheWarmer.Trigger,
	)

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Jobs:     normalizeJob,
		Workers:  workersContainer,
		Metrics:  metricsReg,
		Health:   health,
	}, nil
}
