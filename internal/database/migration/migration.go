package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entryapi/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_entries",
		SQL: `CREATE TABLE IF NOT EXISTS entries (
  id              UUID        PRIMARY KEY,
  parent_id       UUID        REFERENCES entries (id) ON DELETE CASCADE,
  title           TEXT        NOT NULL CHECK (length(title) BETWEEN 1 AND 200),
  body            TEXT        NOT NULL DEFAULT '',
  attachment_path TEXT        NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_entries_parent_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_entries_parent_id ON entries (parent_id, created_at);`,
	},
	{
		Name: "create_index_entries_roots_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_entries_roots_created_at ON entries (created_at DESC) WHERE parent_id IS NULL;`,
	},
}

// EnsureMigrated checks whether the entries table exists and creates the schema if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logging.Component(logger, "database").With("db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.entries') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			logging.KeyError, fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"reason", "schema already exists",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				logging.KeyError, err,
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
