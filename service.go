package filedrop

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MetadataRepo defines the interface for the file_metadata table.
// Implementations probe the deployed column set once at connect time and
// shape every statement from the resulting Capabilities; callers never see
// an undefined starred flag or a column-does-not-exist failure for the
// optional columns.
//
// All methods accept a context for cancellation and timeout control.
type MetadataRepo interface {
	// Capabilities returns the column set probed at connect time.
	Capabilities() Capabilities

	// Insert creates a metadata row, dropping fields whose columns the
	// deployed schema lacks, and returns the row as stored with its
	// store-assigned id and timestamp.
	Insert(ctx context.Context, rec FileRecord) (FileRecord, error)

	// List returns all live records in canonical order: starred before
	// unstarred (missing starred treated as false), newest first within each
	// group. Recency is the upload timestamp when the schema has one and the
	// monotonic id otherwise. Empty tables yield an empty slice, not an error.
	List(ctx context.Context) ([]FileRecord, error)

	// FindByFilename returns the newest live record with the given filename,
	// or ErrNotFound.
	FindByFilename(ctx context.Context, filename string) (FileRecord, error)

	// SetStarred updates the starred flag on every live row matching the
	// filename and returns how many rows matched. Zero matches is not an
	// error. Schemas without the starred column report ErrUnsupported.
	SetStarred(ctx context.Context, filename string, starred bool) (int64, error)

	// MarkPendingDelete soft-deletes every live row matching the filename and
	// returns the affected records, blob keys included. Only valid on schemas
	// with SoftDelete capability.
	MarkPendingDelete(ctx context.Context, filename string) ([]FileRecord, error)

	// MarkPurged records that a pending-delete row's blob is confirmed gone.
	MarkPurged(ctx context.Context, id int64) error

	// DeleteByFilename hard-deletes every row matching the filename and
	// returns how many rows were removed. Fallback for schemas without
	// soft-delete columns.
	DeleteByFilename(ctx context.Context, filename string) (int64, error)

	// ListPendingDelete returns up to limit rows that were soft-deleted but
	// whose blob deletion was never confirmed (deleted_at set, purged_at not).
	ListPendingDelete(ctx context.Context, limit int) ([]FileRecord, error)
}

// ObjectStore defines the interface for blob storage. Implementations can
// use the local filesystem or any S3-compatible service.
type ObjectStore interface {
	// Put stores a payload under the given key, overwriting any existing
	// blob at that key, and returns the blob's public URL.
	Put(ctx context.Context, key, contentType string, payload []byte) (string, error)

	// Delete removes the blob at key. ErrNotFound when no such blob exists.
	//
	// Note: this only deletes the blob, not its metadata row. Callers are
	// responsible for coordinating the two.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the public URL for a key without checking that a
	// blob exists there, or ErrNotFound when the store cannot produce one.
	PublicURL(key string) (string, error)
}

type ShareService struct {
	repo           MetadataRepo
	store          ObjectStore
	auth           Authorizer
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for ShareService.
type ServiceConfig struct {
	CleanupTimeout time.Duration // Timeout for compensating blob deletes (default: 30s)
}

func NewShareService(repo MetadataRepo, store ObjectStore, auth Authorizer, cfg ServiceConfig) (*ShareService, error) {
	if repo == nil || store == nil || auth == nil {
		return nil, errors.New("new share service: repo, store and authorizer are required")
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &ShareService{
		repo:           repo,
		store:          store,
		auth:           auth,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Upload stores a payload in the object store and inserts its metadata row.
//
// The payload must be non-empty and the filename a valid bare name; both are
// rejected before any store interaction. On schemas with the storage_key
// column the blob is keyed by a generated opaque key, so same-named uploads
// coexist; legacy schemas key blobs by the filename itself, where a second
// upload silently overwrites the first blob even though each upload gets its
// own metadata row.
//
// If the metadata insert fails after the blob was written, the blob is
// deleted again under a background context so a cancelled request cannot
// leave an orphan behind.
func (s *ShareService) Upload(ctx context.Context, req UploadRequest, payload []byte) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("upload: %w", err)
	}

	if !IsValidFilename(req.Filename) {
		return FileRecord{}, fmt.Errorf("upload %q: %w: invalid filename", req.Filename, ErrInvalidInput)
	}

	if req.ContentType == "" {
		return FileRecord{}, fmt.Errorf("upload %s: %w: content type cannot be empty", req.Filename, ErrInvalidInput)
	}

	if len(payload) == 0 {
		return FileRecord{}, fmt.Errorf("upload %s: %w: empty payload", req.Filename, ErrInvalidInput)
	}

	rec := FileRecord{
		Filename: req.Filename,
		Uploader: req.Uploader,
	}

	return s.create(ctx, rec, req.ContentType, payload)
}

// ShareText publishes a text snippet as a file-like entry. The filename is
// derived from the title (see TextFilename) and the blob embeds the title,
// optional author and body as plain text. On schemas with the text columns
// the row additionally carries the raw title and content for in-place
// preview.
func (s *ShareService) ShareText(ctx context.Context, share TextShare) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("share text: %w", err)
	}

	if share.Title == "" || share.Content == "" {
		return FileRecord{}, fmt.Errorf("share text: %w: title and content are required", ErrInvalidInput)
	}

	rec := FileRecord{
		Filename:    TextFilename(share.Title),
		Uploader:    share.Author,
		IsText:      true,
		TextTitle:   share.Title,
		TextContent: share.Content,
	}

	return s.create(ctx, rec, "text/plain", TextBody(share.Title, share.Author, share.Content))
}

// create writes the blob and inserts the metadata row, compensating a failed
// insert with a best-effort blob delete.
func (s *ShareService) create(ctx context.Context, rec FileRecord, contentType string, payload []byte) (FileRecord, error) {
	key := rec.Filename
	if s.repo.Capabilities().StorageKey {
		key = NewStorageKey(rec.Filename)
	}

	url, err := s.store.Put(ctx, key, contentType, payload)
	if err != nil {
		return FileRecord{}, fmt.Errorf("create %s: write blob: %w", rec.Filename, err)
	}

	rec.StorageKey = key
	rec.URL = url
	rec.Size = int64(len(payload))

	created, insertErr := s.repo.Insert(ctx, rec)
	if insertErr != nil {
		// Use a background context for cleanup since the original context may
		// already be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.store.Delete(cleanupCtx, key); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return FileRecord{}, fmt.Errorf("create %s: metadata insert failed (%w) and blob cleanup failed: %w", rec.Filename, insertErr, delErr)
		}
		return FileRecord{}, fmt.Errorf("create %s: metadata insert failed: %w", rec.Filename, insertErr)
	}

	return created, nil
}

// SaveRecord inserts a metadata row directly, bypassing the object store.
// Kept for clients that upload out of band and register the result.
func (s *ShareService) SaveRecord(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("save record: %w", err)
	}

	if !IsValidFilename(rec.Filename) {
		return FileRecord{}, fmt.Errorf("save record %q: %w: invalid filename", rec.Filename, ErrInvalidInput)
	}

	created, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return FileRecord{}, fmt.Errorf("save record %s: %w", rec.Filename, err)
	}

	return created, nil
}

// List returns all live records, starred first, newest first within each
// group. The result is never nil and every record carries a concrete
// starred boolean.
func (s *ShareService) List(ctx context.Context) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	if recs == nil {
		recs = []FileRecord{}
	}

	return recs, nil
}

// SetStarred updates the starred flag on every record matching the filename.
// There is no ownership check; any client may star or unstar any entry.
// Zero matching rows is a silent no-op, reported through the returned count.
func (s *ShareService) SetStarred(ctx context.Context, filename string, starred bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("set starred: %w", err)
	}

	if !IsValidFilename(filename) {
		return 0, fmt.Errorf("set starred %q: %w: invalid filename", filename, ErrInvalidInput)
	}

	n, err := s.repo.SetStarred(ctx, filename, starred)
	if err != nil {
		return 0, fmt.Errorf("set starred %s: %w", filename, err)
	}

	return n, nil
}

// Delete removes every record matching the filename together with its blob.
// The caller's secret is checked first; a mismatch rejects with no side
// effects.
//
// On schemas with soft-delete columns the rows are marked pending-delete
// before any blob is touched, each blob is deleted, and the rows are then
// marked purged; an interruption between the phases leaves rows in the
// pending-delete state for Reconcile to repair. Legacy schemas fall back to
// blob-then-hard-delete with no repair trail.
func (s *ShareService) Delete(ctx context.Context, filename, secret string) error {
	if err := s.auth.AuthorizeAdmin(secret); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if !IsValidFilename(filename) {
		return fmt.Errorf("delete %q: %w: invalid filename", filename, ErrInvalidInput)
	}

	if !s.repo.Capabilities().SoftDelete {
		return s.deleteLegacy(ctx, filename)
	}

	recs, err := s.repo.MarkPendingDelete(ctx, filename)
	if err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}

	if len(recs) == 0 {
		return fmt.Errorf("delete %s: %w", filename, ErrNotFound)
	}

	for _, rec := range recs {
		delErr := s.store.Delete(ctx, rec.Key())
		// Ignore ErrNotFound - the blob may be gone already
		if delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return fmt.Errorf("delete %s: blob %s: %w", filename, rec.Key(), delErr)
		}

		if err := s.repo.MarkPurged(ctx, rec.ID); err != nil {
			return fmt.Errorf("delete %s: %w", filename, err)
		}
	}

	return nil
}

// deleteLegacy is the storage-then-metadata ordering used when the schema
// has no pending-delete state to record.
func (s *ShareService) deleteLegacy(ctx context.Context, filename string) error {
	delErr := s.store.Delete(ctx, filename)
	if delErr != nil && !errors.Is(delErr, ErrNotFound) {
		return fmt.Errorf("delete %s: blob: %w", filename, delErr)
	}

	n, err := s.repo.DeleteByFilename(ctx, filename)
	if err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}

	if n == 0 {
		return fmt.Errorf("delete %s: %w", filename, ErrNotFound)
	}

	return nil
}

// ResolveURL returns the public download URL for a filename. On schemas with
// opaque storage keys the newest matching record maps the filename to its
// blob key first; legacy schemas pass the filename straight through to the
// store's URL generation with no metadata lookup at all.
func (s *ShareService) ResolveURL(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve url: %w", err)
	}

	if !IsValidFilename(filename) {
		return "", fmt.Errorf("resolve url %q: %w: invalid filename", filename, ErrInvalidInput)
	}

	key := filename
	if s.repo.Capabilities().StorageKey {
		rec, err := s.repo.FindByFilename(ctx, filename)
		if err != nil {
			return "", fmt.Errorf("resolve url %s: %w", filename, err)
		}
		key = rec.Key()
	}

	url, err := s.store.PublicURL(key)
	if err != nil {
		return "", fmt.Errorf("resolve url %s: %w", filename, err)
	}

	return url, nil
}

// Reconcile sweeps rows stuck in the pending-delete state: the blob is
// deleted (an already-missing blob counts as done) and the row is marked
// purged. It returns how many rows were repaired. Run it periodically to
// clean up after interrupted deletes.
func (s *ShareService) Reconcile(ctx context.Context, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	if !s.repo.Capabilities().SoftDelete {
		return 0, fmt.Errorf("reconcile: %w", ErrUnsupported)
	}

	if limit <= 0 {
		limit = 100
	}

	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("reconcile: %w", err)
		}

		recs, err := s.repo.ListPendingDelete(ctx, limit)
		if err != nil {
			return total, fmt.Errorf("reconcile: %w", err)
		}

		if len(recs) == 0 {
			return total, nil
		}

		for _, rec := range recs {
			delErr := s.store.Delete(ctx, rec.Key())
			if delErr != nil && !errors.Is(delErr, ErrNotFound) {
				return total, fmt.Errorf("reconcile %s: %w", rec.Key(), delErr)
			}

			if err := s.repo.MarkPurged(ctx, rec.ID); err != nil {
				return total, fmt.Errorf("reconcile %s: %w", rec.Key(), err)
			}

			total++
		}
	}
}
