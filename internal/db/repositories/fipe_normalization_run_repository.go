package repositories

import (
	"context"

	"autovitrine/precos/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// NormalizationRunRepo handles fipe_normalization_runs.
type NormalizationRunRepo struct {
	db *gormlib.DB
}

// NewNormalizationRunRepo creates a new run history repository
func NewNormalizationRunRepo(db *gormlib.DB) *NormalizationRunRepo {
	return &NormalizationRunRepo{db: db}
}

// Save inserts or replaces a run record.
func (r *NormalizationRunRepo) Save(ctx context.Context, run *gorm.NormalizationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// ListRecent returns the latest runs, newest first.
func (r *NormalizationRunRepo) ListRecent(ctx context.Context, limit int) ([]gorm.NormalizationRun, error) {
	var runs []gorm.NormalizationRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
