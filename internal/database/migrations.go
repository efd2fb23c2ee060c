package database

import (
	"errors"
	"time"

	"github.com/groupscope/dashboard/internal/profiles"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationNormalizeProfileAccess = "2025-09-01_normalize_profile_access"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeProfileAccess, apply: normalizeProfileAccess},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeProfileAccess lowercases role and status values written by older
// clients and resets anything unrecognized to pending.
func normalizeProfileAccess(db *gorm.DB) error {
	steps := []struct {
		column string
		known  []string
		reset  string
	}{
		{column: "role", known: []string{string(profiles.RoleAdmin), string(profiles.RoleUser), string(profiles.RolePending)}, reset: string(profiles.RolePending)},
		{column: "status", known: []string{string(profiles.StatusActive), string(profiles.StatusInactive), string(profiles.StatusPending)}, reset: string(profiles.StatusPending)},
	}
	for _, step := range steps {
		if err := db.Model(&profiles.Profile{}).
			Where("1 = 1").
			UpdateColumn(step.column, gorm.Expr("LOWER(TRIM("+step.column+"))")).Error; err != nil {
			return err
		}
		if err := db.Model(&profiles.Profile{}).
			Where(step.column+" NOT IN ?", step.known).
			UpdateColumn(step.column, step.reset).Error; err != nil {
			return err
		}
	}
	return nil
}
