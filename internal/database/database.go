package database

import (
	"fmt"
	"log"
	"time"

	"skinvault/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(databasePath string) (*gorm.DB, error) {
	if databasePath == "" {
		databasePath = "skinvault.db"
	}

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// A single writer keeps sqlite happy under concurrent flows.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.CatalogItem{},
		&models.PriceSnapshot{},
		&models.PriceHistoryPoint{},
		&models.SyncMeta{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("Database initialized successfully")
	return db, nil
}
