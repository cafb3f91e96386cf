package gorm

import "time"

// NormalizationRun records one pass of the normalizer.
type NormalizationRun struct {
	ID                string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Mode              string     `gorm:"column:mode;type:varchar(16);not null" json:"mode"`
	Status            string     `gorm:"column:status;type:varchar(16);not null" json:"status"`
	RowsProcessed     int        `gorm:"column:rows_processed" json:"rows_processed"`
	RowsSkipped       int        `gorm:"column:rows_skipped" json:"rows_skipped"`
	RowsFailed        int        `gorm:"column:rows_failed" json:"rows_failed"`
	BrandsCreated     int        `gorm:"column:brands_created" json:"brands_created"`
	ModelsCreated     int        `gorm:"column:models_created" json:"models_created"`
	VersionsInserted  int        `gorm:"column:versions_inserted" json:"versions_inserted"`
	VersionsUpdated   int        `gorm:"column:versions_updated" json:"versions_updated"`
	VersionsUnchanged int        `gorm:"column:versions_unchanged" json:"versions_unchanged"`
	Error             string     `gorm:"column:error;type:text" json:"error,omitempty"`
	StartedAt         time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt        *time.Time `gorm:"column:finished_at" json:"finished_at"`
}

// TableName specifies the table name for GORM
func (NormalizationRun) TableName() string {
	return "fipe_normalization_runs"
}
