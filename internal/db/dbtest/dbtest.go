// Package dbtest opens throwaway sqlite databases with the catalog schema.
package dbtest

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autovitrine/precos/internal/db"
)

// Open returns a migrated in-memory database as both a GORM and an sqlx
// handle over the same single connection.
func Open(t testing.TB) (*gorm.DB, *sqlx.DB) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	sqlxDB, err := db.SQLX(gormDB, "sqlite3")
	if err != nil {
		t.Fatalf("Failed to wrap sqlx: %v", err)
	}
	return gormDB, sqlxDB
}
