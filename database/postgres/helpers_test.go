package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"filedrop"
	"filedrop/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

// getSharedTestDatabase returns a pool backed by one container shared across
// the package. Tests isolate through unique table names, not databases.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func dropTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quotedTable))
	return err
}

// setupTestRepo migrates the full schema into a unique table and returns a
// repo with every capability enabled.
func setupTestRepo(t *testing.T) *postgres.Repo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := filedrop.Tables{FileMetadata: fmt.Sprintf("file_metadata_%s", getRandomString(t))}

	err := postgres.Migrate(ctx, pool, tables)
	require.NoError(t, err, "failed to migrate")

	t.Cleanup(func() { _ = dropTable(ctx, pool, tables.FileMetadata) })

	caps, err := postgres.ProbeCapabilities(ctx, pool, tables)
	require.NoError(t, err, "failed to probe capabilities")

	repo, err := postgres.NewRepo(pool, tables, caps)
	require.NoError(t, err, "failed to create repo")

	return repo
}

// setupLegacyRepo creates a pre-existing minimal table by hand, the kind an
// older deployment would carry: no starred, no text columns, no soft delete,
// created_at instead of uploaded_at.
func setupLegacyRepo(t *testing.T) *postgres.Repo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := filedrop.Tables{FileMetadata: fmt.Sprintf("file_metadata_%s", getRandomString(t))}

	quotedTable := pgx.Identifier{tables.FileMetadata}.Sanitize()
	_, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE %s (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		size BIGINT NOT NULL,
		uploader TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, quotedTable))
	require.NoError(t, err, "failed to create legacy table")

	t.Cleanup(func() { _ = dropTable(ctx, pool, tables.FileMetadata) })

	caps, err := postgres.ProbeCapabilities(ctx, pool, tables)
	require.NoError(t, err, "failed to probe capabilities")

	repo, err := postgres.NewRepo(pool, tables, caps)
	require.NoError(t, err, "failed to create repo")

	return repo
}
