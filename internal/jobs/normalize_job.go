package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"autovitrine/precos/internal/db/repositories"
	"autovitrine/precos/internal/fipe"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
	gormModels "autovitrine/precos/internal/models/gorm"
)

// ErrRunInProgress is returned when a normalization pass is already running
// in this process.
var ErrRunInProgress = errors.New("normalization run already in progress")

// Run modes and statuses recorded in fipe_normalization_runs.
const (
	ModeIncremental = "incremental"
	ModeRebuild     = "rebuild"

	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// NormalizeConfig tunes a NormalizeJob.
type NormalizeConfig struct {
	BatchSize int
	Workers   int
}

// NormalizeJob turns the raw price buffer into brands, models and price
// versions. It is the only writer of those tables.
type NormalizeJob struct {
	raw      *repositories.RawPriceRepo
	catalog  *repositories.CatalogRepo
	runs     *repositories.NormalizationRunRepo
	validate *validator.Validate
	metrics  *metrics.MetricsRegistry
	cfg      NormalizeConfig

	onComplete []func()
	mu         sync.Mutex
}

// NewNormalizeJob creates a new normalize job instance
func NewNormalizeJob(db *gorm.DB, cfg NormalizeConfig, m *metrics.MetricsRegistry) *NormalizeJob {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &NormalizeJob{
		raw:      repositories.NewRawPriceRepo(db),
		catalog:  repositories.NewCatalogRepo(db),
		runs:     repositories.NewNormalizationRunRepo(db),
		validate: newRowValidator(),
		metrics:  m,
		cfg:      cfg,
	}
}

// OnComplete registers fn to run after every pass that wrote something.
func (j *NormalizeJob) OnComplete(fn func()) {
	j.onComplete = append(j.onComplete, fn)
}

// Run normalizes every row that is unprocessed when the pass starts.
func (j *NormalizeJob) Run(ctx context.Context) (*gormModels.NormalizationRun, error) {
	if !j.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer j.mu.Unlock()
	return j.run(ctx, ModeIncremental, nil)
}

// Rebuild empties the normalized tables, marks the whole buffer unprocessed
// and normalizes it again.
func (j *NormalizeJob) Rebuild(ctx context.Context) (*gormModels.NormalizationRun, error) {
	if !j.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer j.mu.Unlock()

	return j.run(ctx, ModeRebuild, func(ctx context.Context) error {
		return j.catalog.Transaction(ctx, func(tx *gorm.DB) error {
			if err := j.catalog.WithTx(tx).DeleteAll(ctx); err != nil {
				return fmt.Errorf("clear normalized tables: %w", err)
			}
			if err := j.raw.WithTx(tx).ResetAll(ctx); err != nil {
				return fmt.Errorf("reset buffer: %w", err)
			}
			return nil
		})
	})
}

// RunScheduled runs the job on a fixed interval until ctx is cancelled.
func (j *NormalizeJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("[NormalizeJob] Scheduler started", "interval", interval.String())
	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					logging.Info("[NormalizeJob] Previous run still active, skipping tick")
					continue
				}
				logging.Error("[NormalizeJob] Error in scheduled run", "error", err.Error())
			}
		case <-ctx.Done():
			logging.Info("[NormalizeJob] Shutting down scheduler")
			return
		}
	}
}

func (j *NormalizeJob) run(ctx context.Context, mode string, prepare func(context.Context) error) (*gormModels.NormalizationRun, error) {
	start := time.Now()
	rec := &gormModels.NormalizationRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    StatusRunning,
		StartedAt: start,
	}
	logging.Info("[NormalizeJob] Starting", "run_id", rec.ID, "mode", mode)

	err := j.execute(ctx, rec, prepare)

	finished := time.Now()
	rec.FinishedAt = &finished
	switch {
	case err != nil:
		rec.Status = StatusFailed
		rec.Error = err.Error()
	case rec.RowsFailed > 0:
		rec.Status = StatusPartial
	default:
		rec.Status = StatusSuccess
	}

	if saveErr := j.runs.Save(context.WithoutCancel(ctx), rec); saveErr != nil {
		logging.Error("[NormalizeJob] Failed to record run", "run_id", rec.ID, "error", saveErr.Error())
	}
	j.observe(rec, finished.Sub(start))

	if err != nil {
		logging.Error("[NormalizeJob] Run failed", "run_id", rec.ID, "error", err.Error())
		return rec, err
	}

	if rec.RowsProcessed > 0 || mode == ModeRebuild {
		for _, fn := range j.onComplete {
			fn()
		}
	}

	logging.Info("[NormalizeJob] Completed",
		"run_id", rec.ID,
		"status", rec.Status,
		"processed", rec.RowsProcessed,
		"skipped", rec.RowsSkipped,
		"failed", rec.RowsFailed,
		"inserted", rec.VersionsInserted,
		"updated", rec.VersionsUpdated,
		"unchanged", rec.VersionsUnchanged,
		"duration", finished.Sub(start).String())
	return rec, nil
}

func (j *NormalizeJob) execute(ctx context.Context, rec *gormModels.NormalizationRun, prepare func(context.Context) error) error {
	if prepare != nil {
		if err := prepare(ctx); err != nil {
			return err
		}
	}

	minID, maxID, ok, err := j.raw.UnprocessedBounds(ctx)
	if err != nil {
		return fmt.Errorf("read buffer bounds: %w", err)
	}
	if !ok {
		logging.Info("[NormalizeJob] Nothing to normalize")
		return nil
	}

	book, err := j.extractCodes(ctx, maxID, rec)
	if err != nil {
		return err
	}

	return j.extractVersions(ctx, minID, maxID, book, rec)
}

type modelKey struct {
	brandCode string
	nameKey   string
}

// codeBook maps canonical names to codes. It is filled before any worker
// starts and only read afterwards.
type codeBook struct {
	brands map[string]string
	models map[modelKey]string
}

func (b *codeBook) modelCode(brand, model string) (string, bool) {
	brandCode, ok := b.brands[fipe.NameKey(brand)]
	if !ok {
		return "", false
	}
	code, ok := b.models[modelKey{brandCode: brandCode, nameKey: fipe.NameKey(model)}]
	return code, ok
}

// extractCodes assigns codes to every brand and model name present in the
// unprocessed rows up to maxID. Existing entities keep their codes; new names
// are allocated in order of first appearance.
func (j *NormalizeJob) extractCodes(ctx context.Context, maxID uint, rec *gormModels.NormalizationRun) (*codeBook, error) {
	names, err := j.raw.DistinctUnprocessedNames(ctx, maxID)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	brands, err := j.catalog.AllBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	models, err := j.catalog.AllModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}

	book := &codeBook{
		brands: make(map[string]string, len(brands)),
		models: make(map[modelKey]string, len(models)),
	}
	brandAlloc := fipe.NewCodeAllocator(fipe.BrandCodeMaxLen)
	for _, b := range brands {
		book.brands[b.NameKey] = b.Code
		brandAlloc.Reserve(b.Code)
	}
	modelAlloc := fipe.NewCodeAllocator(fipe.ModelCodeMaxLen)
	for _, m := range models {
		book.models[modelKey{brandCode: m.BrandCode, nameKey: m.NameKey}] = m.Code
		modelAlloc.Reserve(m.Code)
	}

	var newBrands []gormModels.Brand
	var newModels []gormModels.Model
	for _, n := range names {
		brandName := fipe.CanonicalName(n.Brand)
		if j.validate.Var(brandName, "required,max=160") != nil {
			continue
		}
		brandKey := fipe.NameKey(brandName)
		brandCode, ok := book.brands[brandKey]
		if !ok {
			brandCode = brandAlloc.Assign(fipe.BrandCode(brandName))
			book.brands[brandKey] = brandCode
			vehicleType := n.VehicleType
			if !fipe.IsVehicleType(vehicleType) {
				vehicleType = fipe.DefaultVehicleType
			}
			newBrands = append(newBrands, gormModels.Brand{
				Code:        brandCode,
				NameKey:     brandKey,
				Name:        brandName,
				VehicleType: vehicleType,
				Active:      true,
			})
		}

		modelName := fipe.CanonicalName(n.Model)
		if j.validate.Var(modelName, "required,max=200") != nil {
			continue
		}
		key := modelKey{brandCode: brandCode, nameKey: fipe.NameKey(modelName)}
		if _, ok := book.models[key]; ok {
			continue
		}
		modelCode := modelAlloc.Assign(fipe.ModelCode(brandCode, modelName))
		book.models[key] = modelCode
		newModels = append(newModels, gormModels.Model{
			Code:      modelCode,
			BrandCode: brandCode,
			NameKey:   key.nameKey,
			Name:      modelName,
			Active:    true,
		})
	}

	err = j.catalog.Transaction(ctx, func(tx *gorm.DB) error {
		repo := j.catalog.WithTx(tx)
		if err := repo.CreateBrands(ctx, newBrands); err != nil {
			return fmt.Errorf("create brands: %w", err)
		}
		if err := repo.CreateModels(ctx, newModels); err != nil {
			return fmt.Errorf("create models: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec.BrandsCreated = len(newBrands)
	rec.ModelsCreated = len(newModels)
	logging.Info("[NormalizeJob] Codes assigned",
		"run_id", rec.ID,
		"names", len(names),
		"brands_created", rec.BrandsCreated,
		"models_created", rec.ModelsCreated)
	return book, nil
}

// batchResult counts what one batch did.
type batchResult struct {
	processed int
	skipped   int
	failed    int
	inserted  int
	updated   int
	unchanged int
}

func (r *batchResult) add(o batchResult) {
	r.processed += o.processed
	r.skipped += o.skipped
	r.failed += o.failed
	r.inserted += o.inserted
	r.updated += o.updated
	r.unchanged += o.unchanged
}

// extractVersions splits [minID, maxID] into one contiguous id range per
// worker and upserts price versions batch by batch.
func (j *NormalizeJob) extractVersions(ctx context.Context, minID, maxID uint, book *codeBook, rec *gormModels.NormalizationRun) error {
	var (
		mu    sync.Mutex
		total batchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range partition(minID, maxID, j.cfg.Workers) {
		r := r
		g.Go(func() error {
			after := r.from - 1
			for {
				rows, err := j.raw.SelectUnprocessed(gctx, after, r.to, j.cfg.BatchSize)
				if err != nil {
					return fmt.Errorf("select rows after %d: %w", after, err)
				}
				if len(rows) == 0 {
					return nil
				}
				after = rows[len(rows)-1].ID

				res := j.processBatch(gctx, rows, book)
				mu.Lock()
				total.add(res)
				mu.Unlock()

				if len(rows) < j.cfg.BatchSize {
					return nil
				}
			}
		})
	}
	err := g.Wait()

	rec.RowsProcessed = total.processed
	rec.RowsSkipped = total.skipped
	rec.RowsFailed = total.failed
	rec.VersionsInserted = total.inserted
	rec.VersionsUpdated = total.updated
	rec.VersionsUnchanged = total.unchanged
	return err
}

type idRange struct {
	from, to uint
}

// partition splits [minID, maxID] into at most n non-overlapping ranges.
func partition(minID, maxID uint, n int) []idRange {
	span := maxID - minID + 1
	if n < 1 {
		n = 1
	}
	if uint(n) > span {
		n = int(span)
	}
	width := (span + uint(n) - 1) / uint(n)

	ranges := make([]idRange, 0, n)
	for from := minID; from <= maxID; from += width {
		to := from + width - 1
		if to > maxID || to < from {
			to = maxID
		}
		ranges = append(ranges, idRange{from: from, to: to})
		if to == maxID {
			break
		}
	}
	return ranges
}

// processBatch upserts the versions of one batch and marks its rows as
// processed in the same transaction. A failed batch is logged and counted;
// it never stops the run.
func (j *NormalizeJob) processBatch(ctx context.Context, rows []gormModels.RawPrice, book *codeBook) batchResult {
	var res batchResult

	pending := make(map[gormModels.PriceVersionKey]gormModels.PriceVersion, len(rows))
	order := make([]gormModels.PriceVersionKey, 0, len(rows))
	ids := make([]uint, 0, len(rows))

	for _, raw := range rows {
		row := canonicalRow(raw)
		if err := j.validate.Struct(row); err != nil {
			res.skipped++
			logging.Debug("[NormalizeJob] Skipping invalid row", "id", raw.ID, "error", err.Error())
			continue
		}
		modelCode, ok := book.modelCode(row.Brand, row.Model)
		if !ok {
			res.skipped++
			logging.Warn("[NormalizeJob] No code for row", "id", raw.ID, "brand", row.Brand, "model", row.Model)
			continue
		}

		pv := gormModels.PriceVersion{
			ModelCode:      modelCode,
			Version:        row.Version,
			Year:           row.Year,
			ReferenceMonth: row.ReferenceMonth,
			PriceCode:      row.PriceCode,
			Price:          row.Price,
		}
		// Rows arrive ordered by id, so the last duplicate wins.
		if _, seen := pending[pv.Key()]; !seen {
			order = append(order, pv.Key())
		}
		pending[pv.Key()] = pv
		ids = append(ids, raw.ID)
	}

	if len(ids) == 0 {
		return res
	}

	var counts batchResult
	err := j.catalog.Transaction(ctx, func(tx *gorm.DB) error {
		counts = batchResult{}
		catalog := j.catalog.WithTx(tx)

		existing, err := catalog.FindVersions(ctx, order)
		if err != nil {
			return fmt.Errorf("find versions: %w", err)
		}

		writes := make([]gormModels.PriceVersion, 0, len(order))
		for _, key := range order {
			pv := pending[key]
			old, found := existing[key]
			switch {
			case !found:
				counts.inserted++
			case !old.Price.Equal(pv.Price) || old.PriceCode != pv.PriceCode:
				counts.updated++
			default:
				counts.unchanged++
				continue
			}
			writes = append(writes, pv)
		}

		if err := catalog.UpsertVersions(ctx, writes); err != nil {
			return fmt.Errorf("upsert versions: %w", err)
		}
		// Marking is the last statement so a rolled back batch is retried
		// by the next run.
		if err := j.raw.WithTx(tx).MarkProcessed(ctx, ids); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		return nil
	})
	if err != nil {
		res.failed += len(ids)
		logging.Error("[NormalizeJob] Batch failed",
			"first_id", rows[0].ID,
			"last_id", rows[len(rows)-1].ID,
			"rows", len(ids),
			"error", err.Error())
		return res
	}

	counts.processed = len(ids)
	counts.skipped = res.skipped
	return counts
}

func canonicalRow(raw gormModels.RawPrice) normalizedRow {
	model := fipe.CanonicalName(raw.Model)
	version := fipe.CanonicalName(raw.Version)
	if version == "" {
		version = model
	}
	vehicleType := raw.VehicleType
	if vehicleType == "" {
		vehicleType = fipe.DefaultVehicleType
	}
	return normalizedRow{
		Brand:          fipe.CanonicalName(raw.Brand),
		Model:          model,
		Version:        version,
		VehicleType:    vehicleType,
		Year:           raw.Year,
		ReferenceMonth: raw.ReferenceMonth,
		PriceCode:      raw.PriceCode,
		Price:          raw.Price,
	}
}

func (j *NormalizeJob) observe(rec *gormModels.NormalizationRun, elapsed time.Duration) {
	if j.metrics == nil {
		return
	}
	rows := j.metrics.NormalizeRowsTotal
	rows.WithLabelValues("inserted").Add(float64(rec.VersionsInserted))
	rows.WithLabelValues("updated").Add(float64(rec.VersionsUpdated))
	rows.WithLabelValues("unchanged").Add(float64(rec.VersionsUnchanged))
	rows.WithLabelValues("skipped").Add(float64(rec.RowsSkipped))
	rows.WithLabelValues("failed").Add(float64(rec.RowsFailed))
	j.metrics.NormalizeRunSeconds.WithLabelValues(rec.Mode, rec.Status).Observe(elapsed.Seconds())
}
