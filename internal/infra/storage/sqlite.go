package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"mm_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists simulation runs in SQLite
type Storage struct {
	db *gorm.DB
}

var _ domain.RunRepository = (*Storage)(nil)

// NewStorage opens (or creates) the run database. An empty path uses the user config dir.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		if dbPath, err = getDBPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.RunRecord{}, &domain.IntervalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "MMSim", "data", "mmsim.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Run Operations
// ======================================================================================

// SaveRun creates or replaces a run together with its interval rows
func (s *Storage) SaveRun(run *domain.RunRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&domain.IntervalRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(run).Error; err != nil {
			return err
		}
		if len(run.IntervalValues) == 0 {
			return nil
		}
		for i := range run.IntervalValues {
			run.IntervalValues[i].ID = 0
			run.IntervalValues[i].RunID = run.ID
		}
		return tx.CreateInBatches(run.IntervalValues, 500).Error
	})
}

// GetRun retrieves a run with its interval rows
func (s *Storage) GetRun(id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := s.db.
		Preload("IntervalValues", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves run summaries, newest first
func (s *Storage) ListRuns() ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	err := s.db.Order("started_at DESC").Find(&runs).Error
	return runs, err
}

// DeleteRun deletes a run and its interval rows
func (s *Storage) DeleteRun(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&domain.IntervalRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.RunRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRunNotFound
		}
		return nil
	})
}
