package workers

import (
	"context"
	"time"

	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
)

// CatalogLister is the part of the catalog the warmer reads through.
type CatalogLister interface {
	ListBrands(ctx context.Context, vehicleType string) ([]fipe.Brand, error)
	ListModels(ctx context.Context, brandCode string) ([]fipe.Model, error)
}

var warmVehicleTypes = []string{"", fipe.VehicleCars, fipe.VehicleBikes, fipe.VehicleTrucks}

// CatalogWarmer refills the response cache with the brand and model lists
// after the catalog changes, so the first visitors of a new month do not
// all miss at once.
type CatalogWarmer struct {
	catalog CatalogLister
	trigger chan struct{}
}

func NewCatalogWarmer(catalog CatalogLister) *CatalogWarmer {
	return &CatalogWarmer{
		catalog: catalog,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger schedules a warm pass. Calls made while a pass is pending collapse
// into that pass.
func (w *CatalogWarmer) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Start warms once, then again on every Trigger until ctx is done.
func (w *CatalogWarmer) Start(ctx context.Context) {
	w.Warm(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
			w.Warm(ctx)
		}
	}
}

// Warm lists every brand per vehicle type and the models of each brand.
// Failures are logged and skipped.
func (w *CatalogWarmer) Warm(ctx context.Context) (brands, models int) {
	start := time.Now()
	seen := make(map[string]struct{})

	for _, vt := range warmVehicleTypes {
		list, err := w.catalog.ListBrands(ctx, vt)
		if err != nil {
			logging.Warn("[CatalogWarmer] Failed to list brands", "vehicle_type", vt, "error", err.Error())
			continue
		}
		for _, b := range list {
			if _, ok := seen[b.Code]; ok {
				continue
			}
			seen[b.Code] = struct{}{}
			brands++

			ms, err := w.catalog.ListModels(ctx, b.Code)
			if err != nil {
				logging.Warn("[CatalogWarmer] Failed to list models", "brand", b.Code, "error", err.Error())
				continue
			}
			models += len(ms)
		}
	}

	logging.Info("[CatalogWarmer] Cache warmed",
		"brands", brands,
		"models", models,
		"duration", time.Since(start).String())
	return brands, models
}
