package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
	"autovitrine/precos/internal/models/gorm"
)

// DefaultImportBatchSize is the number of rows appended per transaction.
const DefaultImportBatchSize = 500

// ErrMalformedFile is returned when an export cannot be decoded at all.
var ErrMalformedFile = errors.New("malformed import file")

// RawAppender stores chunks of raw rows.
type RawAppender interface {
	AppendBatch(ctx context.Context, rows []gorm.RawPrice) error
}

// ImportReport summarizes one bulk load.
type ImportReport struct {
	ImportBatch    string  `json:"import_batch"`
	ReferenceMonth string  `json:"reference_month"`
	Received       int     `json:"received"`
	Inserted       int     `json:"inserted"`
	Skipped        int     `json:"skipped"`
	Failed         int     `json:"failed"`
	Batches        int     `json:"batches"`
	FailedBatches  int     `json:"failed_batches"`
	SuccessRate    float64 `json:"success_rate"`
}

// ImportService appends monthly exports to the raw buffer. It only coerces
// types; deduplication belongs to the normalizer.
type ImportService struct {
	repo      RawAppender
	batchSize int
	metrics   *metrics.MetricsRegistry
}

func NewImportService(repo RawAppender, batchSize int, m *metrics.MetricsRegistry) *ImportService {
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	return &ImportService{repo: repo, batchSize: batchSize, metrics: m}
}

// ImportFile decodes r in format and imports its rows for month.
func (s *ImportService) ImportFile(ctx context.Context, month, format string, r io.Reader) (*ImportReport, error) {
	if err := fipe.ValidateReferenceMonth(month); err != nil {
		return nil, err
	}
	records, err := fipe.DecodeRecords(format, r)
	if err != nil {
		if errors.Is(err, fipe.ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	return s.Import(ctx, month, records)
}

// Import coerces records and appends them in batches. Rows that cannot be
// coerced are skipped. A failed batch is counted and the next one still runs.
func (s *ImportService) Import(ctx context.Context, month string, records []fipe.ImportRecord) (*ImportReport, error) {
	if err := fipe.ValidateReferenceMonth(month); err != nil {
		return nil, err
	}

	report := &ImportReport{
		ImportBatch:    uuid.New().String(),
		ReferenceMonth: month,
		Received:       len(records),
	}

	rows := make([]gorm.RawPrice, 0, len(records))
	for i, rec := range records {
		c, err := rec.Coerce()
		if err != nil {
			report.Skipped++
			logging.Debug("[Import] Skipping row", "row", i, "error", err.Error())
			continue
		}
		rows = append(rows, gorm.RawPrice{
			Brand:          c.Brand,
			Model:          c.Model,
			Version:        c.Version,
			VehicleType:    c.VehicleType,
			Year:           c.Year,
			YearCode:       c.YearCode,
			PriceCode:      c.PriceCode,
			ReferenceMonth: month,
			Price:          c.Price,
			ImportBatch:    report.ImportBatch,
		})
	}

	for start := 0; start < len(rows); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+s.batchSize, len(rows))
		chunk := rows[start:end]
		report.Batches++

		if err := s.repo.AppendBatch(ctx, chunk); err != nil {
			report.FailedBatches++
			report.Failed += len(chunk)
			logging.Error("[Import] Batch failed",
				"import_batch", report.ImportBatch,
				"batch", report.Batches,
				"rows", len(chunk),
				"error", err.Error())
			continue
		}
		report.Inserted += len(chunk)
	}

	if report.Received > 0 {
		rate := float64(report.Inserted) / float64(report.Received) * 100
		report.SuccessRate = math.Round(rate*100) / 100
	}

	if s.metrics != nil {
		s.metrics.ImportRowsTotal.WithLabelValues("inserted").Add(float64(report.Inserted))
		s.metrics.ImportRowsTotal.WithLabelValues("skipped").Add(float64(report.Skipped))
		s.metrics.ImportRowsTotal.WithLabelValues("failed").Add(float64(report.Failed))
	}

	logging.Info("[Import] Completed",
		"import_batch", report.ImportBatch,
		"reference_month", month,
		"received", report.Received,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"success_rate", report.SuccessRate)

	return report, nil
}
