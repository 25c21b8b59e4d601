package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"filedrop"
)

// requiredColumns are the columns every deployable file_metadata table must
// have; everything else is optional and recorded in the capability probe.
var requiredColumns = []string{"id", "filename", "url", "size", "uploader"}

// ProbeCapabilities inspects the deployed table's column set once and maps
// it to a Capabilities descriptor. It fails when the table is missing or
// lacks the required columns.
func ProbeCapabilities(ctx context.Context, db *sql.DB, tables filedrop.Tables) (filedrop.Capabilities, error) {
	tableName := tables.FileMetadata
	if !filedrop.IsValidTableName(tableName) {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: %w", err)
	}

	if !exists {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: table %s does not exist", tableName)
	}

	// SQLite uses PRAGMA table_info to get column information
	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: scan column: %w", err)
		}
		columns[strings.ToLower(name)] = true
	}

	if err := rows.Err(); err != nil {
		return filedrop.Capabilities{}, fmt.Errorf("probe capabilities: rows error: %w", err)
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

	// Older deployments named the upload timestamp created_at
	switch {
	case columns["uploaded_at"]:
		caps.TimeColumn = "uploaded_at"
	case columns["created_at"]:
		caps.TimeColumn = "created_at"
	}

	return caps, nil
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}
