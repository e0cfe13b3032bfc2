package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database described by the DSN.
//
// DSNs beginning with postgres:// or postgresql:// use the PostgreSQL
// driver; sqlite:// prefixes (or bare file paths) use SQLite, which is the
// development and test backend.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		conn *gorm.DB
		err  error
	)
	switch {
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		conn, err = gorm.Open(postgres.Open(trimmed), gormCfg)
	case strings.HasPrefix(trimmed, "sqlite://"):
		conn, err = gorm.Open(sqlite.Open(strings.TrimPrefix(trimmed, "sqlite://")), gormCfg)
	default:
		conn, err = gorm.Open(sqlite.Open(trimmed), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, errPool := conn.DB()
	if errPool != nil {
		return nil, fmt.Errorf("db: pool: %w", errPool)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return conn, nil
}
