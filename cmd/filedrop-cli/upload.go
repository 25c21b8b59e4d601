package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"filedrop/client"
)

var (
	uploadFilename    string
	uploadContentType string
	uploadUploader    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload a file to the server",
	Long: `Upload a local file to the server.

The server stores the blob and records its metadata. The filename
defaults to the local file's base name.

Examples:
  filedrop-cli upload ./report.pdf
  filedrop-cli upload ./notes.md --name meeting-notes.md
  filedrop-cli upload ./photo.jpg --uploader alice`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFilename, "name", "n", "", "filename to store under (default: local base name)")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringVarP(&uploadUploader, "uploader", "u", "", "uploader name recorded with the file")
}

func runUpload(_ *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	opts := client.UploadOptions{
		LocalPath:   args[0],
		Filename:    uploadFilename,
		ContentType: uploadContentType,
		Uploader:    uploadUploader,
	}

	info, err := c.Upload(context.Background(), opts)
	if err != nil {
		return err
	}

	return getFormatter().File(os.Stdout, info)
}
