package gorm

import (
	"time"

	"github.com/shopspring/decimal"

	"autovitrine/precos/internal/fipe"
)

// PriceVersion is a priced configuration for one reference month, unique on
// (model_code, version, year, reference_month).
type PriceVersion struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	ModelCode      string          `gorm:"column:model_code;type:varchar(60);not null;uniqueIndex:idx_fipe_price_versions_key,priority:1"`
	Version        string          `gorm:"column:version;type:varchar(200);not null;uniqueIndex:idx_fipe_price_versions_key,priority:2"`
	Year           int             `gorm:"column:year;not null;uniqueIndex:idx_fipe_price_versions_key,priority:3"`
	ReferenceMonth string          `gorm:"column:reference_month;type:char(7);not null;uniqueIndex:idx_fipe_price_versions_key,priority:4;index"`
	PriceCode      string          `gorm:"column:price_code;type:varchar(16)"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (PriceVersion) TableName() string {
	return "fipe_price_versions"
}

// PriceVersionKey is the natural key of a PriceVersion.
type PriceVersionKey struct {
	ModelCode      string
	Version        string
	Year           int
	ReferenceMonth string
}

func (p PriceVersion) Key() PriceVersionKey {
	return PriceVersionKey{ModelCode: p.ModelCode, Version: p.Version, Year: p.Year, ReferenceMonth: p.ReferenceMonth}
}

func (p PriceVersion) ToDomain() fipe.PriceVersion {
	return fipe.PriceVersion{
		ModelCode:      p.ModelCode,
		Version:        p.Version,
		Year:           p.Year,
		PriceCode:      p.PriceCode,
		ReferenceMonth: p.ReferenceMonth,
		Price:          p.Price,
	}
}
