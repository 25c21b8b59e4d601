package filedrop_test

import (
	"strings"
	"testing"

	"filedrop"

	"github.com/stretchr/testify/assert"
)

func TestTablesValidate(t *testing.T) {
	tests := []struct {
		name    string
		tables  filedrop.Tables
		wantErr bool
	}{
		{"valid", filedrop.Tables{FileMetadata: "file_metadata"}, false},
		{"valid with digits", filedrop.Tables{FileMetadata: "metadata_2"}, false},
		{"empty", filedrop.Tables{}, true},
		{"uppercase", filedrop.Tables{FileMetadata: "FileMetadata"}, true},
		{"leading digit", filedrop.Tables{FileMetadata: "2metadata"}, true},
		{"too long", filedrop.Tables{FileMetadata: strings.Repeat("a", 64)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tables.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileRecordKey(t *testing.T) {
	t.Run("storage key preferred", func(t *testing.T) {
		rec := filedrop.FileRecord{Filename: "a.txt", StorageKey: "2025/01/02/abc.txt"}
		assert.Equal(t, "2025/01/02/abc.txt", rec.Key())
	})

	t.Run("falls back to filename", func(t *testing.T) {
		rec := filedrop.FileRecord{Filename: "a.txt"}
		assert.Equal(t, "a.txt", rec.Key())
	})
}
