package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var starCmd = &cobra.Command{
	Use:   "star <filename>",
	Short: "Star a file",
	Long: `Mark a file as starred. Starred files sort to the top of listings.

Examples:
  filedrop-cli star report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStar(args[0], true)
	},
}

var unstarCmd = &cobra.Command{
	Use:   "unstar <filename>",
	Short: "Remove the star from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStar(args[0], false)
	},
}

func runStar(filename string, starred bool) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	updated, err := c.Star(context.Background(), filename, starred)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"filename": filename,
			"starred":  starred,
			"updated":  updated,
		})
	}

	verb := "Starred"
	if !starred {
		verb = "Unstarred"
	}
	fmt.Printf("%s %s (%d record(s) updated)\n", verb, filename, updated)
	return nil
}
