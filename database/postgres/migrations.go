package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filedrop"
)

// Migrate creates the file metadata table and its indexes if they do not
// exist. Deployments that manage the schema themselves skip this and rely on
// the capability probe instead.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filedrop.Tables) error {
	if err := createFileMetadataTable(ctx, pool, tables.FileMetadata); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func createFileMetadataTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexFilename := pgx.Identifier{fmt.Sprintf("idx_%s_filename", tableName)}.Sanitize()
	indexListOrder := pgx.Identifier{fmt.Sprintf("idx_%s_list_order", tableName)}.Sanitize()
	indexPendingDelete := pgx.Identifier{fmt.Sprintf("idx_%s_pending_delete", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			storage_key TEXT,
			url TEXT NOT NULL,
			size BIGINT NOT NULL,
			uploader TEXT,
			starred BOOLEAN NOT NULL DEFAULT FALSE,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_text BOOLEAN NOT NULL DEFAULT FALSE,
			text_title TEXT,
			text_content TEXT,
			deleted_at TIMESTAMPTZ,
			purged_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (filename)
		WHERE (deleted_at IS NULL);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (starred DESC, uploaded_at DESC)
		WHERE (deleted_at IS NULL);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (deleted_at, purged_at)
		WHERE (deleted_at IS NOT NULL AND purged_at IS NULL);
	`,
		quotedTable,
		indexFilename, quotedTable,
		indexListOrder, quotedTable,
		indexPendingDelete, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create file metadata table: %w", err)
	}
	return nil
}

// DropTables removes the file metadata table. Used by tests.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filedrop.Tables) error {
	quotedTable := pgx.Identifier{tables.FileMetadata}.Sanitize()
	_, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quotedTable))
	if err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}
