package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"autovitrine/precos/internal/auth"
	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/db/repositories"
	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/jobs"
	"autovitrine/precos/internal/logging"
	gormModels "autovitrine/precos/internal/models/gorm"
	"autovitrine/precos/internal/services"
)

// maxImportBytes bounds the size of an uploaded export.
const maxImportBytes = 64 << 20

// Importer loads an export into the raw buffer.
type Importer interface {
	ImportFile(ctx context.Context, month, format string, r io.Reader) (*services.ImportReport, error)
}

// Normalizer runs normalization passes.
type Normalizer interface {
	Run(ctx context.Context) (*gormModels.NormalizationRun, error)
	Rebuild(ctx context.Context) (*gormModels.NormalizationRun, error)
}

// RunHistory lists recorded normalization runs.
type RunHistory interface {
	ListRecent(ctx context.Context, limit int) ([]gormModels.NormalizationRun, error)
}

// RawBuffer exposes buffer maintenance.
type RawBuffer interface {
	Stats(ctx context.Context) (*repositories.RawPriceStats, error)
	Purge(ctx context.Context, onlyProcessed bool) (int64, error)
}

func adminSubject(r *http.Request) string {
	if claims := auth.GetAdminClaims(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

func boolParam(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}

// ImportHandler handles POST /api/admin/fipe/import?mes=YYYY-MM&formato=json|csv|xlsx
// The request body is the export file.
func ImportHandler(importer Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()

		month := q.Get("mes")
		if err := fipe.ValidateReferenceMonth(month); err != nil {
			common.RespondError(w, start, err, "", http.StatusBadRequest)
			return
		}
		format := q.Get("formato")
		if format == "" {
			format = fipe.FormatJSON
		}

		logging.Info("[Admin] Import requested", "by", adminSubject(r), "reference_month", month, "format", format)

		body := http.MaxBytesReader(w, r.Body, maxImportBytes)
		report, err := importer.ImportFile(r.Context(), month, format, body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				common.RespondError(w, start, nil, "Import file too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, fipe.ErrUnsupportedFormat), errors.Is(err, services.ErrMalformedFile):
				common.RespondError(w, start, err, "", http.StatusBadRequest)
			default:
				logging.Error("[Admin] Import failed", "error", err.Error())
				common.RespondError(w, start, err, "Import failed", http.StatusInternalServerError)
			}
			return
		}

		common.RespondSuccess(w, start, "Import completed", report)
	}
}

// NormalizeHandler handles POST /api/admin/fipe/normalize?rebuild=bool
func NormalizeHandler(normalizer Normalizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rebuild, err := boolParam(r.URL.Query().Get("rebuild"), false)
		if err != nil {
			common.RespondError(w, start, nil, "Invalid rebuild flag", http.StatusBadRequest)
			return
		}

		logging.Info("[Admin] Normalization requested", "by", adminSubject(r), "rebuild", rebuild)

		var run *gormModels.NormalizationRun
		if rebuild {
			run, err = normalizer.Rebuild(r.Context())
		} else {
			run, err = normalizer.Run(r.Context())
		}
		if errors.Is(err, jobs.ErrRunInProgress) {
			common.RespondError(w, start, err, "", http.StatusConflict)
			return
		}
		if err != nil {
			common.RespondError(w, start, err, "Normalization failed", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, start, "Normalization completed", run)
	}
}

// ListRunsHandler handles GET /api/admin/fipe/runs?limit=
func ListRunsHandler(history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				common.RespondError(w, start, nil, "limit must be between 1 and 100", http.StatusBadRequest)
				return
			}
			limit = n
		}

		runs, err := history.ListRecent(r.Context(), limit)
		if err != nil {
			common.RespondError(w, start, err, "Failed to list runs", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, start, "Runs retrieved", runs)
	}
}

// RawStatsHandler handles GET /api/admin/fipe/raw/stats
func RawStatsHandler(buffer RawBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		stats, err := buffer.Stats(r.Context())
		if err != nil {
			common.RespondError(w, start, err, "Failed to read buffer stats", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, start, "Buffer stats retrieved", stats)
	}
}

// PurgeRawHandler handles DELETE /api/admin/fipe/raw?processed=bool
// By default only normalized rows are removed.
func PurgeRawHandler(buffer RawBuffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		onlyProcessed, err := boolParam(r.URL.Query().Get("processed"), true)
		if err != nil {
			common.RespondError(w, start, nil, "Invalid processed flag", http.StatusBadRequest)
			return
		}

		deleted, err := buffer.Purge(r.Context(), onlyProcessed)
		if err != nil {
			common.RespondError(w, start, err, "Failed to purge buffer", http.StatusInternalServerError)
			return
		}

		logging.Info("[Admin] Buffer purged", "by", adminSubject(r), "only_processed", onlyProcessed, "deleted", deleted)
		common.RespondSuccess(w, start, "Buffer purged", map[string]int64{"deleted": deleted})
	}
}
