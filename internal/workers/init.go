package workers

import (
	"context"
)

type WorkersContainer struct {
	CacheWarmer *CatalogWarmer
}

// InitWorkers starts the background workers under ctx.
func InitWorkers(ctx context.Context, catalog CatalogLister) *WorkersContainer {
	warmer := NewCatalogWarmer(catalog)

	// Start workers
	go warmer.Start(ctx)

	return &WorkersContainer{
		CacheWarmer: warmer,
	}
}
