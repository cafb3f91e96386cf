// Package filter implements the cascading brand > model > year > version
// selection used to resolve one FIPE reference price.
package filter

import (
	"fmt"
	"strings"
)

// Field is one level of the selection, in cascade order.
type Field int

const (
	FieldBrand Field = iota
	FieldModel
	FieldYear
	FieldVersion
)

// Fields lists every field in cascade order.
var Fields = []Field{FieldBrand, FieldModel, FieldYear, FieldVersion}

// targetPrice is the fetch target once every field is chosen.
const targetPrice = len(fieldNames)

var fieldNames = [...]string{"brand", "model", "year", "version"}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField accepts the English names and their Portuguese query-string
// counterparts (marca, modelo, ano, versao).
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brand", "marca":
		return FieldBrand, nil
	case "model", "modelo":
		return FieldModel, nil
	case "year", "ano":
		return FieldYear, nil
	case "version", "versao":
		return FieldVersion, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Stage names the state of the machine by how many fields are chosen.
type Stage string

const (
	StageEmpty         Stage = "empty"
	StageBrandChosen   Stage = "brand_chosen"
	StageModelChosen   Stage = "model_chosen"
	StageYearChosen    Stage = "year_chosen"
	StageVersionChosen Stage = "version_chosen"
)

var stages = [...]Stage{StageEmpty, StageBrandChosen, StageModelChosen, StageYearChosen, StageVersionChosen}
