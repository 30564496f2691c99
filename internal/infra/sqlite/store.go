// Package sqlite is the GORM/SQLite repository backing the merchant
// directory: the merchants table, the data_date singleton and the
// ingestion_runs audit table.
package sqlite

import (
	"context"
	"fmt"
	"sync"

	driver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yhzhou/merchant-query/internal/domain"
)

// Store owns a shared database handle. It is safe for concurrent use; see
// ReplaceAllMerchants for the write-serialization contract.
type Store struct {
	db *gorm.DB

	// replaceMu serializes full-replace transactions. SQLite already allows
	// only one writer, but taking the lock up front keeps a second ingestion
	// from failing on SQLITE_BUSY mid-transaction.
	replaceMu sync.Mutex
}

// Open opens (or creates) the database at dsn and migrates the schema. The
// source system created its tables at startup; AutoMigrate keeps that
// behavior.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(driver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Open: opening %q: %w", dsn, err)
	}

	if err := db.AutoMigrate(&domain.Merchant{}, &domain.DataDate{}, &domain.IngestionRun{}); err != nil {
		return nil, fmt.Errorf("Open: migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return sqlDB.Close()
}

// Stats summarizes the database contents for operational checks.
type Stats struct {
	Merchants     int64
	IngestionRuns int64
	DataDate      string
}

// Stats reports row counts and the current data-date label.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats

	if err := s.db.WithContext(ctx).Model(&domain.Merchant{}).Count(&st.Merchants).Error; err != nil {
		return nil, fmt.Errorf("Stats: counting merchants: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&domain.IngestionRun{}).Count(&st.IngestionRuns).Error; err != nil {
		return nil, fmt.Errorf("Stats: counting ingestion runs: %w", err)
	}

	date, err := s.GetDataDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	st.DataDate = date

	return &st, nil
}
