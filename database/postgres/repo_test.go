package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filedrop"
	"filedrop/database/postgres"
)

func TestCapabilitiesFullSchema(t *testing.T) {
	repo := setupTestRepo(t)

	caps := repo.Capabilities()
	assert.True(t, caps.Starred)
	assert.True(t, caps.TextShare)
	assert.True(t, caps.StorageKey)
	assert.True(t, caps.SoftDelete)
	assert.Equal(t, "uploaded_at", caps.TimeColumn)
}

func TestCapabilitiesLegacySchema(t *testing.T) {
	repo := setupLegacyRepo(t)

	caps := repo.Capabilities()
	assert.False(t, caps.Starred)
	assert.False(t, caps.TextShare)
	assert.False(t, caps.StorageKey)
	assert.False(t, caps.SoftDelete)
	assert.Equal(t, "created_at", caps.TimeColumn)
}

func TestInsertAndFind(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Insert(ctx, filedrop.FileRecord{
		Filename:   "report.pdf",
		StorageKey: "2026/09/01/abc.pdf",
		URL:        "http://localhost/blobs/2026/09/01/abc.pdf",
		Size:       1024,
		Uploader:   "alice",
	})
	require.NoError(t, err)
	assert.Positive(t, rec.ID)
	assert.WithinDuration(t, time.Now(), rec.UploadedAt, 5*time.Second)

	found, err := repo.FindByFilename(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, "2026/09/01/abc.pdf", found.StorageKey)
	assert.Equal(t, "alice", found.Uploader)
	assert.Equal(t, int64(1024), found.Size)
	assert.False(t, found.Starred)
}

func TestFindByFilenameNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByFilename(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, filedrop.ErrNotFound)
}

func TestListOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, filedrop.FileRecord{Filename: "old.txt", URL: "u", Size: 1})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, filedrop.FileRecord{Filename: "starred.txt", URL: "u", Size: 1})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, filedrop.FileRecord{Filename: "new.txt", URL: "u", Size: 1})
	require.NoError(t, err)

	n, err := repo.SetStarred(ctx, "starred.txt", true)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	names := []string{records[0].Filename, records[1].Filename, records[2].Filename}
	assert.Equal(t, []string{"starred.txt", "new.txt", "old.txt"}, names)
}

func TestSoftDeleteLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Insert(ctx, filedrop.FileRecord{Filename: "gone.txt", URL: "u", Size: 1, StorageKey: "k"})
	require.NoError(t, err)

	marked, err := repo.MarkPendingDelete(ctx, "gone.txt")
	require.NoError(t, err)
	require.Len(t, marked, 1)
	assert.Equal(t, rec.ID, marked[0].ID)
	assert.Equal(t, "k", marked[0].StorageKey)

	_, err = repo.FindByFilename(ctx, "gone.txt")
	assert.ErrorIs(t, err, filedrop.ErrNotFound)

	pending, err := repo.ListPendingDelete(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	err = repo.MarkPurged(ctx, rec.ID)
	require.NoError(t, err)

	pending, err = repo.ListPendingDelete(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = repo.MarkPurged(ctx, rec.ID)
	assert.ErrorIs(t, err, filedrop.ErrNotFound)
}

func TestMarkPendingDeleteNoMatch(t *testing.T) {
	repo := setupTestRepo(t)

	marked, err := repo.MarkPendingDelete(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.Empty(t, marked)
}

func TestLegacySchemaOperations(t *testing.T) {
	repo := setupLegacyRepo(t)
	ctx := context.Background()

	rec, err := repo.Insert(ctx, filedrop.FileRecord{
		Filename: "plain.txt",
		URL:      "http://cdn/plain.txt",
		Size:     7,
		Starred:  true,
	})
	require.NoError(t, err)
	assert.False(t, rec.Starred)

	_, err = repo.SetStarred(ctx, "plain.txt", true)
	assert.ErrorIs(t, err, filedrop.ErrUnsupported)

	_, err = repo.MarkPendingDelete(ctx, "plain.txt")
	assert.ErrorIs(t, err, filedrop.ErrUnsupported)

	n, err := repo.DeleteByFilename(ctx, "plain.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProbeCapabilitiesMissingTable(t *testing.T) {
	pool := getSharedTestDatabase(t)

	_, err := postgres.ProbeCapabilities(context.Background(), pool, filedrop.Tables{FileMetadata: "does_not_exist"})
	assert.Error(t, err)
}
