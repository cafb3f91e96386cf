package gorm

import (
	"time"

	"autovitrine/precos/internal/fipe"
)

// Model belongs to one Brand. Code embeds the brand code and is unique on its
// own as well as per brand.
type Model struct {
	Code      string    `gorm:"column:code;primaryKey;type:varchar(60);uniqueIndex:idx_fipe_models_brand_code,priority:2"`
	BrandCode string    `gorm:"column:brand_code;type:varchar(20);not null;uniqueIndex:idx_fipe_models_brand_code,priority:1;uniqueIndex:idx_fipe_models_brand_name,priority:1"`
	NameKey   string    `gorm:"column:name_key;type:varchar(200);not null;uniqueIndex:idx_fipe_models_brand_name,priority:2"`
	Name      string    `gorm:"column:name;type:varchar(200);not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Model) TableName() string {
	return "fipe_models"
}

func (m Model) ToDomain() fipe.Model {
	return fipe.Model{Code: m.Code, BrandCode: m.BrandCode, Name: m.Name, Active: m.Active}
}
