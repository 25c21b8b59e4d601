package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List files on the server",
	Long: `List all files on the server.

Starred files sort first, then newest first.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(_ *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	files, err := c.List(context.Background())
	if err != nil {
		return err
	}

	return getFormatter().FileList(os.Stdout, files)
}
