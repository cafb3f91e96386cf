package repositories

import (
	"context"

	"autovitrine/precos/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// RawPriceRepo handles fipe_raw_prices, the import buffer.
type RawPriceRepo struct {
	db *gormlib.DB
}

// NewRawPriceRepo creates a new raw price repository
func NewRawPriceRepo(db *gormlib.DB) *RawPriceRepo {
	return &RawPriceRepo{db: db}
}

// WithTx returns a repository bound to tx.
func (r *RawPriceRepo) WithTx(tx *gormlib.DB) *RawPriceRepo {
	return &RawPriceRepo{db: tx}
}

// AppendBatch inserts one chunk of rows in its own transaction.
func (r *RawPriceRepo) AppendBatch(ctx context.Context, rows []gorm.RawPrice) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		return tx.Create(&rows).Error
	})
}

// UnprocessedBounds returns the smallest and largest id of rows still waiting
// for normalization. ok is false when there are none.
func (r *RawPriceRepo) UnprocessedBounds(ctx context.Context) (minID, maxID uint, ok bool, err error) {
	var bounds struct {
		MinID *uint
		MaxID *uint
	}
	err = r.db.WithContext(ctx).
		Model(&gorm.RawPrice{}).
		Select("MIN(id) AS min_id, MAX(id) AS max_id").
		Where("normalized = ?", false).
		Scan(&bounds).Error
	if err != nil || bounds.MinID == nil || bounds.MaxID == nil {
		return 0, 0, false, err
	}
	return *bounds.MinID, *bounds.MaxID, true, nil
}

// RawName is one distinct (brand, model, vehicle type) triple of the buffer,
// with the id of its first appearance.
type RawName struct {
	Brand       string
	Model       string
	VehicleType string
	FirstID     uint
}

// DistinctUnprocessedNames lists the distinct names of unprocessed rows up to
// maxID, in order of first appearance.
func (r *RawPriceRepo) DistinctUnprocessedNames(ctx context.Context, maxID uint) ([]RawName, error) {
	var names []RawName
	err := r.db.WithContext(ctx).
		Model(&gorm.RawPrice{}).
		Select("brand, model, vehicle_type, MIN(id) AS first_id").
		Where("normalized = ? AND id <= ?", false, maxID).
		Group("brand, model, vehicle_type").
		Order("first_id ASC").
		Scan(&names).Error
	return names, err
}

// SelectUnprocessed returns up to limit unprocessed rows with afterID < id <= maxID,
// ordered by id.
func (r *RawPriceRepo) SelectUnprocessed(ctx context.Context, afterID, maxID uint, limit int) ([]gorm.RawPrice, error) {
	var rows []gorm.RawPrice
	err := r.db.WithContext(ctx).
		Where("normalized = ? AND id > ? AND id <= ?", false, afterID, maxID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkProcessed flips normalized for ids.
func (r *RawPriceRepo) MarkProcessed(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&gorm.RawPrice{}).
		Where("id IN ?", ids).
		Update("normalized", true).Error
}

// ResetAll marks every row as unprocessed again.
func (r *RawPriceRepo) ResetAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&gorm.RawPrice{}).
		Where("normalized = ?", true).
		Update("normalized", false).Error
}

// RawPriceStats summarizes the buffer.
type RawPriceStats struct {
	Total       int64    `json:"total"`
	Unprocessed int64    `json:"unprocessed"`
	Months      []string `json:"reference_months"`
}

// Stats returns row counts and the reference months present.
func (r *RawPriceRepo) Stats(ctx context.Context) (*RawPriceStats, error) {
	stats := &RawPriceStats{}
	db := r.db.WithContext(ctx)

	if err := db.Model(&gorm.RawPrice{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&gorm.RawPrice{}).Where("normalized = ?", false).Count(&stats.Unprocessed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&gorm.RawPrice{}).Distinct().Order("reference_month DESC").Pluck("reference_month", &stats.Months).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// Purge deletes buffer rows. With onlyProcessed it keeps rows the normalizer
// has not consumed yet.
func (r *RawPriceRepo) Purge(ctx context.Context, onlyProcessed bool) (int64, error) {
	q := r.db.WithContext(ctx)
	if onlyProcessed {
		q = q.Where("normalized = ?", true)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&gorm.RawPrice{})
	return res.RowsAffected, res.Error
}
