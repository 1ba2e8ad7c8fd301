package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/catering-golang/internal/config"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// OpenDB creates and verifies the primary connection pool.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connection pool established",
		zap.String("addr", cfg.Addr()),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return db, nil
}

// normalizeDSN forces the options the stores rely on: parseTime for DATETIME columns
// and multiStatements for the embedded schema.
func normalizeDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database dsn: %w", err)
	}
	parsed.ParseTime = true
	parsed.MultiStatements = true
	if parsed.Loc == nil {
		parsed.Loc = time.UTC
	}
	return parsed.FormatDSN(), nil
}
