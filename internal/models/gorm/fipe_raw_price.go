package gorm

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawPrice is one row of the import buffer, stored exactly as coerced from
// the monthly export. Duplicates are expected. Length bounds are checked by
// the normalizer, not by the columns.
type RawPrice struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	Brand          string          `gorm:"column:brand;type:text;not null"`
	Model          string          `gorm:"column:model;type:text;not null"`
	Version        string          `gorm:"column:version;type:text"`
	VehicleType    string          `gorm:"column:vehicle_type;type:text"`
	Year           int             `gorm:"column:year;not null"`
	YearCode       string          `gorm:"column:year_code;type:text"`
	PriceCode      string          `gorm:"column:price_code;type:text"`
	ReferenceMonth string          `gorm:"column:reference_month;type:char(7);not null;index"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Normalized     bool            `gorm:"column:normalized;not null;default:false;index"`
	ImportBatch    string          `gorm:"column:import_batch;type:varchar(36);index"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (RawPrice) TableName() string {
	return "fipe_raw_prices"
}
