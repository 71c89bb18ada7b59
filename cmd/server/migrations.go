package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/config"
	"github.com/phrazzld/teamtasks-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// migrationsSourceDir is where -migrate=create writes new migration files,
// relative to the repository root.
const migrationsSourceDir = "internal/platform/postgres/migrations"

// slogGooseLogger routes goose output through slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level. goose's default logger would exit the process.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// runMigrations executes a goose command against the configured database
// using the migrations embedded in the postgres package.
func runMigrations(cfg *config.Config, command string, verbose bool, name string) error {
	migrationLogger := slog.Default().With(
		"component", "migrations",
		"command", command,
	)
	start := time.Now()

	goose.SetLogger(&slogGooseLogger{logger: migrationLogger})
	goose.SetVerbose(verbose)
	goose.SetTableName(postgres.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if command == "create" {
		if name == "" {
			return fmt.Errorf("migration name is required: use -name")
		}
		goose.SetBaseFS(nil)
		if err := goose.Create(nil, migrationsSourceDir, name, "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := setupAppDatabase(ctx, cfg, migrationLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			migrationLogger.Error("Error closing database connection", "error", err)
		}
	}()

	goose.SetBaseFS(postgres.Migrations)
	if err := gooseCommand(ctx, db, command); err != nil {
		return err
	}

	migrationLogger.Info("Migration operation completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func gooseCommand(ctx context.Context, db *sqlx.DB, command string) error {
	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db.DB, postgres.MigrationsDir)
	case "down":
		err = goose.DownContext(ctx, db.DB, postgres.MigrationsDir)
	case "reset":
		err = goose.ResetContext(ctx, db.DB, postgres.MigrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db.DB, postgres.MigrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db.DB, postgres.MigrationsDir)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}
