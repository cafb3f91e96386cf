package fipe

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound reports that a brand, model, year or version does not resolve
// at the latest reference month.
var ErrNotFound = errors.New("not found")

// Vehicle type segments used by the FIPE table.
const (
	VehicleCars   = "carros"
	VehicleBikes  = "motos"
	VehicleTrucks = "caminhoes"
)

// DefaultVehicleType is assumed for raw rows that do not carry one.
const DefaultVehicleType = VehicleCars

// Code length bounds.
const (
	BrandCodeMaxLen = 20
	ModelCodeMaxLen = 60
)

// Brand is a normalized vehicle brand.
type Brand struct {
	Code        string `json:"code" db:"code"`
	Name        string `json:"name" db:"name"`
	VehicleType string `json:"vehicleType" db:"vehicle_type"`
	Active      bool   `json:"active" db:"active"`
}

// Model belongs to exactly one brand.
type Model struct {
	Code      string `json:"code" db:"code"`
	BrandCode string `json:"brandCode" db:"brand_code"`
	Name      string `json:"name" db:"name"`
	Active    bool   `json:"active" db:"active"`
}

// PriceVersion is a priced vehicle configuration for one reference month.
type PriceVersion struct {
	ModelCode      string          `json:"modelCode" db:"model_code"`
	Version        string          `json:"version" db:"version"`
	Year           int             `json:"year" db:"year"`
	PriceCode      string          `json:"priceCode" db:"price_code"`
	ReferenceMonth string          `json:"referenceMonth" db:"reference_month"`
	Price          decimal.Decimal `json:"price" db:"price"`
}

// MarshalJSON writes the price as a number with exactly two decimals.
func (pv PriceVersion) MarshalJSON() ([]byte, error) {
	type plain PriceVersion
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain: plain(pv), Price: json.Number(pv.Price.StringFixed(2))})
}

// CatalogVersion identifies the state of the normalized catalog: the newest
// reference month and a generation that changes whenever a normalization
// pass writes to the tables.
type CatalogVersion struct {
	Month      string
	Generation int64
}

// IsVehicleType reports whether s names a known vehicle type.
func IsVehicleType(s string) bool {
	switch s {
	case VehicleCars, VehicleBikes, VehicleTrucks:
		return true
	}
	return false
}
