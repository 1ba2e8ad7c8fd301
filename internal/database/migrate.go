package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema. Every statement is CREATE TABLE IF NOT EXISTS,
// so running it against an existing database is a no-op.
func Migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info("database schema applied")
	return nil
}
