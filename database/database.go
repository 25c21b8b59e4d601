// Package database connects the configured metadata backend and returns a
// ready MetadataRepo. Connecting runs migrations when asked to, then probes
// the table's actual column set; the probe result drives every statement the
// repo issues, so a table missing optional columns degrades instead of
// failing per request.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"filedrop"
	"filedrop/database/postgres"
	"filedrop/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Table is the name of the file metadata table
	Table string `mapstructure:"table"`
	// AutoMigrate creates the full schema on startup when true. Deployments
	// that manage the table themselves leave it off and get whatever column
	// set the probe finds.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Connect establishes a connection to the configured database backend,
// optionally migrates, probes the schema capabilities, and returns a
// MetadataRepo. The returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (filedrop.MetadataRepo, func(), error) {
	tables := filedrop.Tables{FileMetadata: cfg.Table}
	if err := tables.Validate(); err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg, tables)
	case "postgres":
		return connectPostgres(ctx, cfg, tables)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, cfg Config, tables filedrop.Tables) (filedrop.MetadataRepo, func(), error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if cfg.AutoMigrate {
		if err = sqlite.Migrate(ctx, db, tables); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	caps, err := sqlite.ProbeCapabilities(ctx, db, tables)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("probe sqlite schema: %w", err)
	}
	logCapabilities(caps)

	repo, err := sqlite.NewRepo(db, tables, caps)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite repo: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return repo, cleanup, nil
}

func connectPostgres(ctx context.Context, cfg Config, tables filedrop.Tables) (filedrop.MetadataRepo, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err = postgres.Migrate(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	caps, err := postgres.ProbeCapabilities(ctx, pool, tables)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("probe postgres schema: %w", err)
	}
	logCapabilities(caps)

	repo, err := postgres.NewRepo(pool, tables, caps)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres repo: %w", err)
	}

	return repo, pool.Close, nil
}

func logCapabilities(caps filedrop.Capabilities) {
	slog.Info("probed metadata schema",
		"starred", caps.Starred,
		"time_column", caps.TimeColumn,
		"text_share", caps.TextShare,
		"storage_key", caps.StorageKey,
		"soft_delete", caps.SoftDelete,
	)
}
