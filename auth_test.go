package filedrop_test

import (
	"os"
	"path/filepath"
	"testing"

	"filedrop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSecret(t *testing.T) {
	auth, err := filedrop.NewStaticSecret("S")
	require.NoError(t, err)

	t.Run("match", func(t *testing.T) {
		assert.NoError(t, auth.AuthorizeAdmin("S"))
	})

	t.Run("mismatch", func(t *testing.T) {
		err := auth.AuthorizeAdmin("not-S")
		assert.ErrorIs(t, err, filedrop.ErrUnauthorized)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		err := auth.AuthorizeAdmin("")
		assert.ErrorIs(t, err, filedrop.ErrUnauthorized)
	})
}

func TestNewStaticSecret_Empty(t *testing.T) {
	_, err := filedrop.NewStaticSecret("")
	assert.ErrorIs(t, err, filedrop.ErrInvalidInput)
}

func TestNewStaticSecretFromFile(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte("  hunter2\n"), 0o600))

		auth, err := filedrop.NewStaticSecretFromFile(path)
		require.NoError(t, err)
		assert.NoError(t, auth.AuthorizeAdmin("hunter2"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := filedrop.NewStaticSecretFromFile(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

		_, err := filedrop.NewStaticSecretFromFile(path)
		assert.ErrorIs(t, err, filedrop.ErrInvalidInput)
	})
}
