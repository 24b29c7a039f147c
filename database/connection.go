package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/models"
)

// Connect opens the PostgreSQL pool described by cfg.
func Connect(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected", "pool_size", cfg.PoolSize, "max_overflow", cfg.MaxOverflow)
	return db, nil
}

// Migrate creates the pgvector extension and the application tables.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}

	err := db.AutoMigrate(
		&models.Lead{},
		&models.ChatMessage{},
		&models.KnowledgeDocument{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}
