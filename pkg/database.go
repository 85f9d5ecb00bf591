package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

// InitDatabase opens the row-level-security aware connection used by request handlers
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	return openPostgres(cfg.Database.URL, cfg.Database)
}

// InitAdminDatabase opens the elevated connection used for membership lookups.
// When no separate admin URL is configured the regular connection is reused.
func InitAdminDatabase(cfg *config.Config, regular *gorm.DB) (*gorm.DB, error) {
	if cfg.Database.AdminURL == "" || cfg.Database.AdminURL == cfg.Database.URL {
		return regular, nil
	}
	return openPostgres(cfg.Database.AdminURL, cfg.Database)
}

func openPostgres(dsn string, dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if dbCfg.LogQueries {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	return db, nil
}
