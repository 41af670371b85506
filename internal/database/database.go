package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"order-matching-service/internal/models"
)

// Connect opens the Postgres connection pool
func Connect(dsn, environment string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the schema, one model at a time
func Migrate(db *gorm.DB, log *logrus.Entry) error {
	modelsToMigrate := []struct {
		name  string
		model interface{}
	}{
		{"Product", &models.Product{}},
		{"Order", &models.Order{}},
		{"BundleMatch", &models.BundleMatch{}},
		{"ActivityLog", &models.ActivityLog{}},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", m.name, err)
		}
		log.WithField("model", m.name).Debug("Migrated")
	}
	return nil
}
