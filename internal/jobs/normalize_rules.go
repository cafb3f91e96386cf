package jobs

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"autovitrine/precos/internal/fipe"
)

// normalizedRow is a raw row after name canonicalization. Rows that fail
// validation are skipped and stay in the buffer. FIPE uses year 32000 for
// zero-km vehicles.
type normalizedRow struct {
	Brand          string `validate:"required,max=160"`
	Model          string `validate:"required,max=200"`
	Version        string `validate:"required,max=200"`
	VehicleType    string `validate:"oneof=carros motos caminhoes"`
	Year           int    `validate:"gte=1900,lte=2100|eq=32000"`
	ReferenceMonth string `validate:"reference_month"`
	PriceCode      string `validate:"max=16"`
	Price          decimal.Decimal
}

func newRowValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("reference_month", func(fl validator.FieldLevel) bool {
		return fipe.ValidateReferenceMonth(fl.Field().String()) == nil
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		row := sl.Current().Interface().(normalizedRow)
		if row.Price.IsNegative() {
			sl.ReportError(row.Price, "Price", "Price", "nonnegative", "")
		}
	}, normalizedRow{})
	return v
}
