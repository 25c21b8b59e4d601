package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"filedrop/config"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Purge blobs of deleted files",
	Long: `Finish deletes that were interrupted between metadata and blob removal.

Deletion happens in two phases: rows are marked pending-delete first, blobs
are removed second. A crash between the phases leaves rows whose blobs were
never confirmed gone. This command sweeps those rows:
  1. Deletes the blob from the object store (already-gone blobs are fine)
  2. Marks the metadata row as purged

Run this periodically to reclaim storage space from interrupted deletes.`,
	RunE: runReconcile,
}

var reconcileLimit int

func init() {
	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", 100, "maximum number of rows to sweep per batch")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	service, _, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("starting reconcile", "limit", reconcileLimit)

	purged, err := service.Reconcile(ctx, reconcileLimit)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	slog.Info("reconcile complete", "rows_purged", purged)
	return nil
}
