package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"autovitrine/precos/internal/metrics"
)

// InitializeJobs builds the normalize job and, when interval is positive,
// starts its scheduler in the background.
func InitializeJobs(
	ctx context.Context,
	db *gorm.DB,
	cfg NormalizeConfig,
	interval time.Duration,
	m *metrics.MetricsRegistry,
	onComplete ...func(),
) *NormalizeJob {
	normalizeJob := NewNormalizeJob(db, cfg, m)
	for _, fn := range onComplete {
		normalizeJob.OnComplete(fn)
	}

	if interval > 0 {
		go normalizeJob.RunScheduled(ctx, interval)
	}

	return normalizeJob
}
