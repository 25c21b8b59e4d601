// Package postgres implements the metadata repo using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filedrop"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
	caps      filedrop.Capabilities
}

// NewRepo creates a repo bound to a probed capability set. Statements are
// shaped from the capabilities, never rediscovered at query time.
func NewRepo(pool *pgxpool.Pool, tables filedrop.Tables, caps filedrop.Capabilities) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.FileMetadata, caps: caps}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
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
		args = append(args, now)
	}
	if r.caps.TextShare && rec.IsText {
		cols = append(cols, "is_text", "text_title", "text_content")
		args = append(args, true, rec.TextTitle, rec.TextContent)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		RETURNING id
	`, r.tableName, strings.Join(cols, ", "), placeholders(len(cols)))

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID); err != nil {
		return filedrop.FileRecord{}, fmt.Errorf("insert: %w", err)
	}

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
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY %s
	`, strings.Join(r.selectColumns(), ", "), r.tableName, r.liveCondition(), r.listOrder())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	records, err := r.collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return records, nil
}

func (r *Repo) FindByFilename(ctx context.Context, filename string) (filedrop.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE filename = $1%s
		ORDER BY id DESC
		LIMIT 1
	`, strings.Join(r.selectColumns(), ", "), r.tableName, r.liveConditionAnd())

	rec, err := r.scanRecord(r.pool.QueryRow(ctx, query, filename).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := fmt.Sprintf(`
		UPDATE %s
		SET starred = $1
		WHERE filename = $2%s
	`, r.tableName, r.liveConditionAnd())

	result, err := r.pool.Exec(ctx, query, starred, filename)
	if err != nil {
		return 0, fmt.Errorf("set starred: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *Repo) MarkPendingDelete(ctx context.Context, filename string) ([]filedrop.FileRecord, error) {
	if !r.caps.SoftDelete {
		return nil, fmt.Errorf("mark pending delete: %w", filedrop.ErrUnsupported)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE filename = $1 AND deleted_at IS NULL
		RETURNING %s
	`, r.tableName, strings.Join(r.selectColumns(), ", "))

	rows, err := r.pool.Query(ctx, query, filename)
	if err != nil {
		return nil, fmt.Errorf("mark pending delete: %w", err)
	}
	defer rows.Close()

	records, err := r.collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("mark pending delete: %w", err)
	}

	return records, nil
}

func (r *Repo) MarkPurged(ctx context.Context, id int64) error {
	if !r.caps.SoftDelete {
		return fmt.Errorf("mark purged: %w", filedrop.ErrUnsupported)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET purged_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL AND purged_at IS NULL
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark purged: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark purged: %w", filedrop.ErrNotFound)
	}

	return nil
}

func (r *Repo) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE filename = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, filename)
	if err != nil {
		return 0, fmt.Errorf("delete by filename: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *Repo) ListPendingDelete(ctx context.Context, limit int) ([]filedrop.FileRecord, error) {
	if !r.caps.SoftDelete {
		return nil, fmt.Errorf("list pending delete: %w", filedrop.ErrUnsupported)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NOT NULL AND purged_at IS NULL
		ORDER BY id
		LIMIT $1
	`, strings.Join(r.selectColumns(), ", "), r.tableName)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending delete: %w", err)
	}
	defer rows.Close()

	records, err := r.collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list pending delete: %w", err)
	}

	return records, nil
}

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

func (r *Repo) collectRecords(rows pgx.Rows) ([]filedrop.FileRecord, error) {
	records := []filedrop.FileRecord{}
	for rows.Next() {
		rec, err := r.scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return records, nil
}

// scanRecord scans one row in selectColumns order, coercing NULLs: a missing
// starred value always comes back as false.
func (r *Repo) scanRecord(scan func(dest ...any) error) (filedrop.FileRecord, error) {
	var rec filedrop.FileRecord
	var uploader, storageKey, textTitle, textContent sql.NullString
	var starred, isText sql.NullBool
	var uploadedAt sql.NullTime

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
	if uploadedAt.Valid {
		rec.UploadedAt = uploadedAt.Time
	}

	return rec, nil
}

func (r *Repo) liveCondition() string {
	if !r.caps.SoftDelete {
		return ""
	}
	return "WHERE deleted_at IS NULL"
}

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
		return fmt.Sprintf("COALESCE(starred, FALSE) DESC, %s DESC, id DESC", r.caps.TimeColumn)
	case r.caps.Starred:
		return "COALESCE(starred, FALSE) DESC, id DESC"
	case r.caps.TimeColumn != "":
		return fmt.Sprintf("%s DESC, id DESC", r.caps.TimeColumn)
	default:
		return "id DESC"
	}
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
