package fipe

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Source column names of the monthly export.
const (
	ColumnBrand       = "Brand Value"
	ColumnModel       = "Model Value"
	ColumnYearCode    = "Year Code"
	ColumnPriceCode   = "Fipe Code"
	ColumnPrice       = "Price"
	ColumnVersion     = "Version Value"
	ColumnVehicleType = "Vehicle Type"
)

// Import formats accepted by DecodeRecords.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported import format")

// ImportRecord is one row of the export exactly as scraped.
type ImportRecord struct {
	Brand       string `json:"Brand Value"`
	Model       string `json:"Model Value"`
	YearCode    string `json:"Year Code"`
	PriceCode   string `json:"Fipe Code"`
	Price       string `json:"Price"`
	Version     string `json:"Version Value,omitempty"`
	VehicleType string `json:"Vehicle Type,omitempty"`
}

// CoercedRecord is an ImportRecord after type coercion.
type CoercedRecord struct {
	Brand       string
	Model       string
	Version     string
	VehicleType string
	Year        int
	YearCode    string
	PriceCode   string
	Price       decimal.Decimal
}

// Coerce parses the price and the year code. Nothing else is checked.
func (r ImportRecord) Coerce() (CoercedRecord, error) {
	price, err := ParsePrice(r.Price)
	if err != nil {
		return CoercedRecord{}, err
	}
	year, err := ParseYearCode(r.YearCode)
	if err != nil {
		return CoercedRecord{}, err
	}
	return CoercedRecord{
		Brand:       r.Brand,
		Model:       r.Model,
		Version:     r.Version,
		VehicleType: strings.ToLower(strings.TrimSpace(r.VehicleType)),
		Year:        year,
		YearCode:    strings.TrimSpace(r.YearCode),
		PriceCode:   strings.TrimSpace(r.PriceCode),
		Price:       price,
	}, nil
}

// DecodeRecords reads an export in the given format.
func DecodeRecords(format string, r io.Reader) ([]ImportRecord, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		var records []ImportRecord
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return records, nil
	case FormatCSV:
		// Ragged rows are kept; a short one fails coercion on its own.
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		return recordsFromRows(rows)
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer func() { _ = f.Close() }()

		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet: %w", err)
		}
		return recordsFromRows(rows)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// recordsFromRows maps a header row plus data rows onto records. Columns are
// matched by name; unknown columns are ignored.
func recordsFromRows(rows [][]string) ([]ImportRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnBrand, ColumnModel, ColumnYearCode, ColumnPrice} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]ImportRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		records = append(records, ImportRecord{
			Brand:       cell(row, ColumnBrand),
			Model:       cell(row, ColumnModel),
			YearCode:    cell(row, ColumnYearCode),
			PriceCode:   cell(row, ColumnPriceCode),
			Price:       cell(row, ColumnPrice),
			Version:     cell(row, ColumnVersion),
			VehicleType: cell(row, ColumnVehicleType),
		})
	}
	return records, nil
}
