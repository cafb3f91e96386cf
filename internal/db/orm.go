package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenORM wraps an existing sqlx pool with GORM so both share connections.
func OpenORM(sqlxDB *sqlx.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlxDB.DB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over postgres: %w", err)
	}
	return db, nil
}

// SQLX exposes the connection behind a GORM handle to sqlx, using the bind
// style of driverName ("postgres" or "sqlite3").
func SQLX(db *gorm.DB, driverName string) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}
