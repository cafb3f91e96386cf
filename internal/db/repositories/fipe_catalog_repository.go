package repositories

import (
	"context"

	"autovitrine/precos/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepo is the write side of the normalized tables. Only the
// normalizer uses it.
type CatalogRepo struct {
	db *gormlib.DB
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *gormlib.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// WithTx returns a repository bound to tx.
func (r *CatalogRepo) WithTx(tx *gormlib.DB) *CatalogRepo {
	return &CatalogRepo{db: tx}
}

// Transaction runs fn with repositories bound to one transaction.
func (r *CatalogRepo) Transaction(ctx context.Context, fn func(tx *gormlib.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// AllBrands returns every brand, active or not.
func (r *CatalogRepo) AllBrands(ctx context.Context) ([]gorm.Brand, error) {
	var brands []gorm.Brand
	err := r.db.WithContext(ctx).Order("code ASC").Find(&brands).Error
	return brands, err
}

// AllModels returns every model, active or not.
func (r *CatalogRepo) AllModels(ctx context.Context) ([]gorm.Model, error) {
	var models []gorm.Model
	err := r.db.WithContext(ctx).Order("code ASC").Find(&models).Error
	return models, err
}

// CreateBrands inserts brands; codes that already exist are left alone.
func (r *CatalogRepo) CreateBrands(ctx context.Context, brands []gorm.Brand) error {
	if len(brands) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		CreateInBatches(brands, 100).Error
}

// CreateModels inserts models; codes that already exist are left alone.
func (r *CatalogRepo) CreateModels(ctx context.Context, models []gorm.Model) error {
	if len(models) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		CreateInBatches(models, 100).Error
}

// FindVersions loads the stored versions matching any of keys.
func (r *CatalogRepo) FindVersions(ctx context.Context, keys []gorm.PriceVersionKey) (map[gorm.PriceVersionKey]gorm.PriceVersion, error) {
	found := make(map[gorm.PriceVersionKey]gorm.PriceVersion, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	wanted := make(map[gorm.PriceVersionKey]struct{}, len(keys))
	modelSet := make(map[string]struct{})
	monthSet := make(map[string]struct{})
	for _, k := range keys {
		wanted[k] = struct{}{}
		modelSet[k.ModelCode] = struct{}{}
		monthSet[k.ReferenceMonth] = struct{}{}
	}

	var rows []gorm.PriceVersion
	err := r.db.WithContext(ctx).
		Where("model_code IN ? AND reference_month IN ?", setKeys(modelSet), setKeys(monthSet)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if _, ok := wanted[row.Key()]; ok {
			found[row.Key()] = row
		}
	}
	return found, nil
}

// UpsertVersions writes versions keyed by (model_code, version, year,
// reference_month). An existing key gets its price and price code replaced.
func (r *CatalogRepo) UpsertVersions(ctx context.Context, versions []gorm.PriceVersion) error {
	if len(versions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "model_code"},
				{Name: "version"},
				{Name: "year"},
				{Name: "reference_month"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"price", "price_code", "updated_at"}),
		}).
		CreateInBatches(versions, 100).Error
}

// DeleteAll empties the normalized tables, children first.
func (r *CatalogRepo) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&gorm.PriceVersion{}).Error; err != nil {
		return err
	}
	if err := db.Where("1 = 1").Delete(&gorm.Model{}).Error; err != nil {
		return err
	}
	return db.Where("1 = 1").Delete(&gorm.Brand{}).Error
}

func setKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
