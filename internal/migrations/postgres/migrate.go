package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"showings/pkg/logger"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var Schema string

// RunMigration applies the showings schema. Every statement is idempotent.
func RunMigration(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	log.Info("Running PostgreSQL migrations")
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply showings schema: %w", err)
	}
	log.Info("PostgreSQL migrations applied")
	return nil
}
