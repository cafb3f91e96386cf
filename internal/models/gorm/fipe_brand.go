package gorm

import (
	"time"

	"autovitrine/precos/internal/fipe"
)

// Brand is a normalized brand. Code is the stable slug; NameKey is the
// case and spacing insensitive identity of the source name.
type Brand struct {
	Code        string    `gorm:"column:code;primaryKey;type:varchar(20)"`
	NameKey     string    `gorm:"column:name_key;type:varchar(160);not null;uniqueIndex"`
	Name        string    `gorm:"column:name;type:varchar(160);not null"`
	VehicleType string    `gorm:"column:vehicle_type;type:varchar(16);not null"`
	Active      bool      `gorm:"column:active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Brand) TableName() string {
	return "fipe_brands"
}

func (b Brand) ToDomain() fipe.Brand {
	return fipe.Brand{Code: b.Code, Name: b.Name, VehicleType: b.VehicleType, Active: b.Active}
}
