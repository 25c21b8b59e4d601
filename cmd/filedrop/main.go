package main

import (
	"os"

	"github.com/spf13/cobra"

	"filedrop/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filedrop",
	Short:   "Minimal file sharing server",
	Long: `Filedrop is a small file sharing server: upload files or share text
snippets, list and star them, and delete with a shared admin password.
Blobs live on the local filesystem or any S3-compatible store; metadata
lives in SQLite or PostgreSQL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")

		var configFiles []string
		if configFile != "" {
			configFiles = []string{configFile}
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: FILEDROP_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: FILEDROP_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("db-table", "", "file metadata table name (env: FILEDROP_DATABASE_TABLE)")
	rootCmd.PersistentFlags().String("storage-dir", "", "blob directory for the filesystem backend (env: FILEDROP_STORAGE_DIRECTORY)")
	rootCmd.PersistentFlags().String("base-url", "", "public URL prefix blobs are served under (env: FILEDROP_STORAGE_BASE_URL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
