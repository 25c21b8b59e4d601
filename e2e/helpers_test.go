package e2e_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filedrop"
	"filedrop/client"
	"filedrop/database"
	filedrophttp "filedrop/http"
	"filedrop/objectstore/filesystem"
)

const testAdminSecret = "e2e-admin-secret"

// testServer bundles the pieces of a running in-process server.
type testServer struct {
	URL     string
	Service *filedrop.ShareService
	Client  *client.Client
}

// startServer wires a full server: sqlite metadata, a filesystem blob
// store under a temp directory, and the HTTP handler on an httptest
// listener. Blob URLs are relative ("/blobs/...") so they resolve
// against whatever address the listener got.
func startServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "filedrop.db")
	repo, closeRepo, err := database.Connect(ctx, database.Config{
		Type:        "sqlite",
		DSN:         dbPath,
		Table:       "file_metadata",
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	storageDir := t.TempDir()
	root, err := os.OpenRoot(storageDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	store := filesystem.NewStore(root, "/blobs")

	auth, err := filedrop.NewStaticSecret(testAdminSecret)
	require.NoError(t, err)

	service, err := filedrop.NewShareService(repo, store, auth, filedrop.ServiceConfig{
		CleanupTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	handler := filedrophttp.NewHandler(&filedrophttp.HandlerConfig{}, service, store)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	c, err := client.New(&client.Config{
		Endpoint:    server.URL,
		AdminSecret: testAdminSecret,
	})
	require.NoError(t, err)

	return &testServer{
		URL:     server.URL,
		Service: service,
		Client:  c,
	}
}

// writeTempFile writes content to a file in a temp dir and returns its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
