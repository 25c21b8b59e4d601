package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"filedrop"
	"filedrop/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func getTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open sqlite database")
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestRepo migrates the full schema into a unique table and returns a
// repo with every capability enabled.
func setupTestRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	db := getTestDatabase(t)
	ctx := context.Background()

	tables := filedrop.Tables{FileMetadata: fmt.Sprintf("file_metadata_%s", getRandomString(t))}

	err := sqlite.Migrate(ctx, db, tables)
	require.NoError(t, err, "failed to migrate")

	caps, err := sqlite.ProbeCapabilities(ctx, db, tables)
	require.NoError(t, err, "failed to probe capabilities")

	repo, err := sqlite.NewRepo(db, tables, caps)
	require.NoError(t, err, "failed to create repo")

	return repo
}

// setupLegacyRepo creates a pre-existing minimal table by hand, the kind an
// older deployment would carry: no starred, no text columns, no soft delete,
// created_at instead of uploaded_at.
func setupLegacyRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	db := getTestDatabase(t)
	ctx := context.Background()

	tables := filedrop.Tables{FileMetadata: fmt.Sprintf("file_metadata_%s", getRandomString(t))}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE "%s" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		size INTEGER NOT NULL,
		uploader TEXT,
		created_at TEXT
	)`, tables.FileMetadata))
	require.NoError(t, err, "failed to create legacy table")

	caps, err := sqlite.ProbeCapabilities(ctx, db, tables)
	require.NoError(t, err, "failed to probe capabilities")

	repo, err := sqlite.NewRepo(db, tables, caps)
	require.NoError(t, err, "failed to create repo")

	return repo
}
