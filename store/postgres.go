package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"standards-gateway/common"
)

// Store wraps the pooled *gorm.DB handle shared by every mutating
// operation; the task state machine, the auth user table, and result
// persistence all go through the same connection pool.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and configures the pool with bounded idle/open
// connections, recycled hourly.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	common.Logger.Info("connected to postgres store")
	return &Store{db: db}, nil
}

// Migrate runs AutoMigrate across every entity at startup.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Task{}, &TaskFile{}, &TaskResult{})
}

// DB exposes the underlying handle for components (e.g. the export
// layer's bulk result read) that need direct query building.
func (s *Store) DB() *gorm.DB { return s.db }
