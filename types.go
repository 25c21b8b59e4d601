package filedrop

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// FileRecord is one row of the file_metadata table: an uploaded file or a
// shared text snippet. Fields whose columns are absent from the deployed
// schema carry their zero value; Starred in particular is always a concrete
// boolean, never undefined.
type FileRecord struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	Uploader    string    `json:"uploader,omitempty"`
	Starred     bool      `json:"starred"`
	UploadedAt  time.Time `json:"uploaded_at"`
	IsText      bool      `json:"is_text,omitempty"`
	TextTitle   string    `json:"text_title,omitempty"`
	TextContent string    `json:"text_content,omitempty"`

	// StorageKey is the blob's key in the object store. It equals Filename on
	// schemas without the storage_key column, and is not part of the API.
	StorageKey string `json:"-"`
}

// Key returns the object-store key of the record's blob.
func (r FileRecord) Key() string {
	if r.StorageKey != "" {
		return r.StorageKey
	}
	return r.Filename
}

// UploadRequest describes a file upload. The payload travels separately.
type UploadRequest struct {
	Filename    string
	ContentType string
	Uploader    string
}

// TextShare describes a shared text snippet.
type TextShare struct {
	Title   string
	Content string
	Author  string
}

// Capabilities describes the optional columns actually present in a deployed
// file_metadata table. Repos probe it once at connect time; statements are
// shaped from it rather than discovered through failed queries.
type Capabilities struct {
	// Starred reports whether the starred column exists.
	Starred bool
	// TimeColumn is the name of the upload timestamp column: "uploaded_at",
	// "created_at" on older schemas, or "" when neither exists and id order
	// stands in for recency.
	TimeColumn string
	// TextShare reports whether is_text, text_title and text_content exist.
	TextShare bool
	// StorageKey reports whether the storage_key column exists. Without it
	// blobs are keyed by the human-supplied filename.
	StorageKey bool
	// SoftDelete reports whether deleted_at and purged_at exist. Without
	// them deletes remove rows outright with no pending-delete state.
	SoftDelete bool
}

// Tables holds configurable table names for metadata storage.
type Tables struct {
	FileMetadata string `mapstructure:"file_metadata"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.FileMetadata == "" {
		return errors.New("validate tables: metadata table name cannot be empty")
	}

	if !IsValidTableName(t.FileMetadata) {
		return fmt.Errorf("validate tables: invalid metadata table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.FileMetadata)
	}

	return nil
}
