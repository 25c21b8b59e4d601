package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filedrop"
	"filedrop/config"
	"filedrop/database"
	filedrophttp "filedrop/http"
	"filedrop/objectstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the filedrop HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	service, store, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	corsConfig := filedrophttp.CORSConfig{
		Enabled:          cfg.CORS.Enabled,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}

	handlerConfig := filedrophttp.HandlerConfig{
		MaxUploadBytes: cfg.Server.MaxUploadSize,
		CORS:           corsConfig,
	}

	// Filesystem stores serve their own blobs under /blobs/.
	blobs, _ := store.(filedrophttp.BlobOpener)

	handler := filedrophttp.NewHandler(&handlerConfig, service, blobs)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Type, "database", cfg.Database.Type)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// buildService wires repo, object store, and authorizer into a ShareService.
// The returned cleanup releases both backends.
func buildService(ctx context.Context, cfg *config.Config) (*filedrop.ShareService, filedrop.ObjectStore, func(), error) {
	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type)

	store, closeStore, err := objectstore.Connect(ctx, cfg.Storage)
	if err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("connect object store: %w", err)
	}

	cleanup := func() {
		closeStore()
		closeDB()
	}

	auth, err := buildAuthorizer(cfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	service, err := filedrop.NewShareService(repo, store, auth, filedrop.ServiceConfig{
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("create service: %w", err)
	}

	return service, store, cleanup, nil
}

func buildAuthorizer(cfg *config.Config) (filedrop.Authorizer, error) {
	if cfg.Admin.Secret != "" {
		auth, err := filedrop.NewStaticSecret(cfg.Admin.Secret)
		if err != nil {
			return nil, fmt.Errorf("admin secret: %w", err)
		}
		return auth, nil
	}

	if cfg.Admin.SecretFile != "" {
		auth, err := filedrop.NewStaticSecretFromFile(cfg.Admin.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("admin secret file: %w", err)
		}
		return auth, nil
	}

	return nil, fmt.Errorf("admin secret is not configured (set admin.secret or admin.secret_file)")
}
