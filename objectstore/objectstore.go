// Package objectstore connects the configured blob backend and returns a
// ready ObjectStore. Records keep the public URL minted at upload time, so a
// backend only needs Put, Delete, and PublicURL.
package objectstore

import (
	"context"
	"fmt"
	"os"

	"filedrop"
	"filedrop/objectstore/filesystem"
	"filedrop/objectstore/s3"
)

// Config holds the configuration for connecting to a blob backend.
type Config struct {
	// Type specifies the storage backend: "filesystem" or "s3"
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3"`
	// Directory is the root directory for the filesystem backend
	Directory string `mapstructure:"directory"`
	// BaseURL is the public URL prefix blobs are served under. Required for
	// the filesystem backend; optional CDN override for s3.
	BaseURL string `mapstructure:"base_url"`
	// S3 holds the s3 backend settings
	S3 s3.Config `mapstructure:"s3"`
}

// Connect initializes the configured blob backend. The returned cleanup
// function releases backend resources.
func Connect(ctx context.Context, cfg Config) (filedrop.ObjectStore, func(), error) {
	switch cfg.Type {
	case "filesystem":
		return connectFilesystem(cfg)
	case "s3":
		return connectS3(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func connectFilesystem(cfg Config) (filedrop.ObjectStore, func(), error) {
	if cfg.Directory == "" {
		return nil, nil, fmt.Errorf("connect filesystem store: directory is required")
	}
	if cfg.BaseURL == "" {
		return nil, nil, fmt.Errorf("connect filesystem store: base_url is required")
	}

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("connect filesystem store: %w", err)
	}

	root, err := os.OpenRoot(cfg.Directory)
	if err != nil {
		return nil, nil, fmt.Errorf("connect filesystem store: %w", err)
	}

	store := filesystem.NewStore(root, cfg.BaseURL)
	cleanup := func() { _ = root.Close() }

	return store, cleanup, nil
}

func connectS3(ctx context.Context, cfg Config) (filedrop.ObjectStore, func(), error) {
	s3cfg := cfg.S3
	s3cfg.PublicBaseURL = cfg.BaseURL

	store, err := s3.NewStore(ctx, s3cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect s3 store: %w", err)
	}

	return store, func() {}, nil
}
