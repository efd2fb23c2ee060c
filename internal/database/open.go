package database

import (
	"errors"
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"github.com/groupscope/dashboard/internal/profiles"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrMissingDSN        = errors.New("database dsn is required")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Open connects to the profile store and brings its schema up to date.
func Open(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := connect(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&profiles.Profile{}, &migrationRecord{}); err != nil {
		return nil, err
	}
	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", normalizeDriver(driver)))
	}
	return db, nil
}

// OpenReadOnly connects to the results store without touching its schema.
func OpenReadOnly(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("results store connected", zap.String("driver", normalizeDriver(driver)))
	}
	return db, nil
}

func connect(driver, dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	config := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch normalizeDriver(driver) {
	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), config)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

func normalizeDriver(driver string) string {
	normalized := strings.ToLower(strings.TrimSpace(driver))
	if normalized == "" {
		return DriverSQLite
	}
	return normalized
}
