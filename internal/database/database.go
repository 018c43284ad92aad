package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/models"
)

// DB is the global database instance
var DB *gorm.DB

// Models lists every table managed by AutoMigrate, parents first
var Models = []interface{}{
	&models.Content{},
	&models.DailyMetric{},
	&models.Tag{},
	&models.ContentTag{},
	&models.TrackedIntegration{},
	&models.IntegrationGroup{},
	&models.Playbook{},
	&models.PlaybookSourceContent{},
	&models.PlaybookVariant{},
	&models.Experiment{},
	&models.ExperimentVariant{},
	&models.ExperimentTrackedContent{},
	&models.AlertConfig{},
	&models.Alert{},
	&models.IngestAPIKey{},
}

// NewGormLogger bridges GORM logging onto logrus
func NewGormLogger() logger.Interface {
	return logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// InitDB initializes the database connection and performs migrations
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
		return nil, fmt.Errorf("missing required database environment variables. Please check your .env file")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   NewGormLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	DB = db
	logrus.Info("Database connection established")
	return db, nil
}

// Migrate creates or updates every analytics table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
