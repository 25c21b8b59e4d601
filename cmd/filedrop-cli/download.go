package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"filedrop/client"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <filename>",
	Short: "Download a file from the server",
	Long: `Download a file by its server-side filename.

The server resolves the filename to its storage URL and the client
fetches the content from there.

Examples:
  filedrop-cli download report.pdf
  filedrop-cli download report.pdf -o ./downloads/report.pdf
  filedrop-cli download notes.txt -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "local path to write to ('-' for stdout, default: the filename)")
}

func runDownload(_ *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	result, err := c.Download(context.Background(), client.DownloadOptions{
		Filename:  args[0],
		LocalPath: downloadOutput,
	})
	if err != nil {
		return err
	}

	return getFormatter().DownloadResult(os.Stdout, result)
}
