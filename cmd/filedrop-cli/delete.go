package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <filename> [filename...]",
	Aliases: []string{"rm"},
	Short:   "Delete files from the server",
	Long: `Delete one or more files from the server.

Requires the admin secret, from the profile, FILEDROP_ADMIN_SECRET,
or --admin-secret. The server removes the metadata records and the
stored blobs.

Examples:
  filedrop-cli delete old-report.pdf
  filedrop-cli delete a.txt b.txt c.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(_ *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	results := c.DeleteMany(context.Background(), args)

	if err := getFormatter().DeleteResults(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}
	return nil
}

// exitError is returned when we want to exit with a specific code
// but don't want cobra to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
