package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"filedrop"
)

// requiredColumns is the minimal column set every deployed table must
// have; everything else is optional and recorded in the capability probe.
var requiredColumns = []string{"id", "filename", "url", "size", "uploader"}

// ProbeCapabilities inspects the deployed table's column set once and maps
// it to a Capabilities descriptor. It fails when the table is missing or
// lacks the required columns.
func ProbeCapabilities(ctx context.Context, pool *pgxpool.Pool, tables filedrop.Tables) (filedrop.Capabilities, error) {
	tableName := tables.FileMetadata
	if !filedrop.IsValidTableName(tableName) {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: %w", err)
	}
	if !exists {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: query columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: scan column: %w", err)
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: rows: %w", err)
	}

	return capabilitiesFromColumns(tableName, columns)
}

func capabilitiesFromColumns(tableName string, columns map[string]bool) (filedrop.Capabilities, error) {
	var missing []string
	for _, col := range requiredColumns {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return filedrop.Capabilities{}, fmt.Errorf("table %s is missing required columns: %s", tableName, strings.Join(missing, ", "))
	}

	caps := filedrop.Capabilities{
		Starred:    columns["starred"],
		TextShare:  columns["is_text"] && columns["text_title"] && columns["text_content"],
		StorageKey: columns["storage_key"],
		SoftDelete: columns["deleted_at"] && columns["purged_at"],
	}

	switch {
	case columns["uploaded_at"]:
		caps.TimeColumn = "uploaded_at"
	case columns["created_at"]:
		caps.TimeColumn = "created_at"
	}

	return caps, nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	err := pool.QueryRow(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}
