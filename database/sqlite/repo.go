// Package sqlite implements the metadata repo using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"filedrop"
)

type Repo struct {
	db        *sql.DB
	tableName string
	caps      filedrop.Capabilities
}

// NewRepo creates a repo bound to a probed capability set. Statements are
// shaped from the capabilities, never rediscovered at query time.
func NewRepo(db *sql.DB, tables filedrop.Tables, caps filedrop.Capabilities) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.FileMetadata, caps: caps}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Capabilities() filedrop.Capabilities {
	return r.caps
}

func (r *Repo) Insert(ctx context.Context, rec filedrop.FileRecord) (filedrop.FileRecord, error) {
	now := time.Now().UTC()

	cols := []string{"filename", "url", "size", "uploader"}
	args := []any{rec.Filename, rec.URL, rec.Size, nullString(rec.Uploader)}

	if r.caps.StorageKey {
		cols = append(cols, "storage_key")
		args = append(args, nullString(rec.StorageKey))
	}
	if r.caps.Starred {
		cols = append(cols, "starred")
		args = append(args, rec.Starred)
	}
	if r.caps.TimeColumn != "" {
		cols = append(cols, r.caps.TimeColumn)
		args = append(args, now.Format(time.RFC3339Nano))
	}
	if r.caps.TextShare && rec.IsText {
		cols = append(cols, "is_text", "text_title", "text_content")
		args = append(args, true, rec.TextTitle, rec.TextContent)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdentifier(r.tableName),
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return filedrop.FileRecord{}, fmt.Errorf("insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return filedrop.FileRecord{}, fmt.Errorf("insert: last insert id: %w", err)
	}

	rec.ID = id
	if r.caps.TimeColumn != "" {
		rec.UploadedAt = now
	}
	if !r.caps.Starred {
		rec.Starred = false
	}
	if !r.caps.StorageKey {
		rec.StorageKey = ""
	}
	if !r.caps.TextShare {
		rec.IsText = false
		rec.TextTitle = ""
		rec.TextContent = ""
	}

	return rec, nil
}

func (r *Repo) List(ctx context.Context) ([]filedrop.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s`, //nolint:gosec // G201: table name is validated
		strings.Join(r.selectColumns(), ", "),
		quoteIdentifier(r.tableName),
		r.liveCondition(),
		r.listOrder(),
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []filedrop.FileRecord{}
	for rows.Next() {
		rec, err := r.scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return records, nil
}

func (r *Repo) FindByFilename(ctx context.Context, filename string) (filedrop.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE filename = ?%s ORDER BY id DESC LIMIT 1`, //nolint:gosec // G201: table name is validated
		strings.Join(r.selectColumns(), ", "),
		quoteIdentifier(r.tableName),
		r.liveConditionAnd(),
	)

	rec, err := r.scanRecord(r.db.QueryRowContext(ctx, query, filename).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filedrop.FileRecord{}, filedrop.ErrNotFound
		}
		return filedrop.FileRecord{}, fmt.Errorf("find by filename: %w", err)
	}

	return rec, nil
}

func (r *Repo) SetStarred(ctx context.Context, filename string, starred bool) (int64, error) {
	if !r.caps.Starred {
		return 0, fmt.Errorf("set starred: %w", filedrop.ErrUnsupported)
	}

	query := fmt.Sprintf(`UPDATE %s SET starred = ? WHERE filename = ?%s`, //nolint:gosec // G201: table name is validated
		quoteIdentifier(r.tableName),
		r.liveConditionAnd(),
	)

	res, err := r.db.ExecContext(ctx, query, starred, filename)
	if err != nil {
		return 0, fmt.Errorf("set starred: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set starred: rows affected: %w", err)
	}

	return n, nil
}

func (r *Repo) MarkPendingDelete(ctx context.Context, filename string) ([]filedrop.FileRecord, error) {
	if !r.caps.SoftDelete {
		return nil, fmt.Errorf("mark pending delete: %w", filedrop.ErrUnsupported)
	}

	// Select-then-update is not atomic; a row inserted between the two
	// statements survives, which matches the service's last-writer-wins
	// stance on racing writes.
	selectQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE filename = ? AND deleted_at IS NULL`, //nolint:gosec // G201: table name is validated
		strings.Join(r.selectColumns(), ", "),
		quoteIdentifier(r.tableName),
	)

	rows, err := r.db.QueryContext(ctx, selectQuery, filename)
	if err != nil {
		return nil, fmt.Errorf("mark pending delete: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []filedrop.FileRecord{}
	for rows.Next() {
		rec, err := r.scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("mark pending delete: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark pending delete: rows: %w", err)
	}

	if len(records) == 0 {
		return records, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	updateQuery := fmt.Sprintf(`UPDATE %s SET deleted_at = ? WHERE filename = ? AND deleted_at IS NULL`, //nolint:gosec // G201: table name is validated
		quoteIdentifier(r.tableName),
	)

	if _, err := r.db.ExecContext(ctx, updateQuery, now, filename); err != nil {
		return nil, fmt.Errorf("mark pending delete: %w", err)
	}

	return records, nil
}

func (r *Repo) MarkPurged(ctx context.Context, id int64) error {
	if !r.caps.SoftDelete {
		return fmt.Errorf("mark purged: %w", filedrop.ErrUnsupported)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET purged_at = ?
		WHERE id = ? AND deleted_at IS NOT NULL AND purged_at IS NULL`, quoteIdentifier(r.tableName))

	res, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("mark purged: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark purged: rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("mark purged: %w", filedrop.ErrNotFound)
	}

	return nil
}

func (r *Repo) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE filename = ?`, //nolint:gosec // G201: table name is validated
		quoteIdentifier(r.tableName),
	)

	res, err := r.db.ExecContext(ctx, query, filename)
	if err != nil {
		return 0, fmt.Errorf("delete by filename: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete by filename: rows affected: %w", err)
	}

	return n, nil
}

func (r *Repo) ListPendingDelete(ctx context.Context, limit int) ([]filedrop.FileRecord, error) {
	if !r.caps.SoftDelete {
		return nil, fmt.Errorf("list pending delete: %w", filedrop.ErrUnsupported)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE deleted_at IS NOT NULL AND purged_at IS NULL
		ORDER BY id
		LIMIT ?`,
		strings.Join(r.selectColumns(), ", "),
		quoteIdentifier(r.tableName),
	)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending delete: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []filedrop.FileRecord{}
	for rows.Next() {
		rec, err := r.scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list pending delete: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending delete: rows: %w", err)
	}

	return records, nil
}

// selectColumns returns the column list for reads, required columns first,
// optional columns only when the probe found them.
func (r *Repo) selectColumns() []string {
	cols := []string{"id", "filename", "url", "size", "uploader"}
	if r.caps.StorageKey {
		cols = append(cols, "storage_key")
	}
	if r.caps.Starred {
		cols = append(cols, "starred")
	}
	if r.caps.TimeColumn != "" {
		cols = append(cols, r.caps.TimeColumn)
	}
	if r.caps.TextShare {
		cols = append(cols, "is_text", "text_title", "text_content")
	}
	return cols
}

// scanRecord scans one row in selectColumns order, coercing NULLs: a missing
// starred value always comes back as false.
func (r *Repo) scanRecord(scan func(dest ...any) error) (filedrop.FileRecord, error) {
	var rec filedrop.FileRecord
	var uploader, storageKey, uploadedAt, textTitle, textContent sql.NullString
	var starred, isText sql.NullBool

	dest := []any{&rec.ID, &rec.Filename, &rec.URL, &rec.Size, &uploader}
	if r.caps.StorageKey {
		dest = append(dest, &storageKey)
	}
	if r.caps.Starred {
		dest = append(dest, &starred)
	}
	if r.caps.TimeColumn != "" {
		dest = append(dest, &uploadedAt)
	}
	if r.caps.TextShare {
		dest = append(dest, &isText, &textTitle, &textContent)
	}

	if err := scan(dest...); err != nil {
		return filedrop.FileRecord{}, err
	}

	rec.Uploader = uploader.String
	rec.StorageKey = storageKey.String
	rec.Starred = starred.Valid && starred.Bool
	rec.IsText = isText.Valid && isText.Bool
	rec.TextTitle = textTitle.String
	rec.TextContent = textContent.String

	if uploadedAt.Valid && uploadedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, uploadedAt.String)
		if err != nil {
			return filedrop.FileRecord{}, fmt.Errorf("parse %s: %w", r.caps.TimeColumn, err)
		}
		rec.UploadedAt = t
	}

	return rec, nil
}

// liveCondition returns a WHERE clause excluding soft-deleted rows, or
// nothing on schemas without the soft-delete columns.
func (r *Repo) liveCondition() string {
	if !r.caps.SoftDelete {
		return ""
	}
	return "WHERE deleted_at IS NULL"
}

// liveConditionAnd is liveCondition for queries that already have a WHERE.
func (r *Repo) liveConditionAnd() string {
	if !r.caps.SoftDelete {
		return ""
	}
	return " AND deleted_at IS NULL"
}

// listOrder is the canonical listing order, degraded to what the schema can
// express: starred group first when the column exists, then the upload
// timestamp when one exists, with id as the recency proxy otherwise.
func (r *Repo) listOrder() string {
	switch {
	case r.caps.Starred && r.caps.TimeColumn != "":
		return fmt.Sprintf("COALESCE(starred, 0) DESC, %s DESC, id DESC", r.caps.TimeColumn)
	case r.caps.Starred:
		return "COALESCE(starred, 0) DESC, id DESC"
	case r.caps.TimeColumn != "":
		return fmt.Sprintf("%s DESC, id DESC", r.caps.TimeColumn)
	default:
		return "id DESC"
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
