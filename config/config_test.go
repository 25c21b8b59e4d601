package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filedrop/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Service.CleanupTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "filedrop.db", cfg.Database.DSN)
	assert.Equal(t, "file_metadata", cfg.Database.Table)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, "./data", cfg.Storage.Directory)
	assert.Equal(t, "http://localhost:8080/blobs", cfg.Storage.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
database:
  type: postgres
  dsn: postgres://localhost/filedrop
admin:
  secret: s3cret
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "s3cret", cfg.Admin.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "file_metadata", cfg.Database.Table)
}

func TestLoadConfigFileMerge(t *testing.T) {
	base := writeConfigFile(t, "server:\n  port: 9000\n")
	override := writeConfigFile(t, "server:\n  port: 9001\n")

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FILEDROP_SERVER_PORT", "7070")
	t.Setenv("FILEDROP_DATABASE_TYPE", "postgres")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
}

func TestLoadFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("db-dsn", "", "")
	require.NoError(t, flags.Parse([]string{"--port=6060", "--db-dsn=other.db"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.Server.Port)
	assert.Equal(t, "other.db", cfg.Database.DSN)
}

func TestLoadUnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 1234, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	// Default flag value does not override the config default.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: loud\n")

	_, err := config.Load([]string{path}, nil)
	assert.Error(t, err)
}

func TestConfigContext(t *testing.T) {
	cfg := &config.Config{}
	ctx := config.WithContext(context.Background(), cfg)

	got, err := config.FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	_, err = config.FromContext(context.Background())
	assert.Error(t, err)
}
