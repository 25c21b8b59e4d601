package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"filedrop/client"
)

var (
	shareTextTitle  string
	shareTextAuthor string
	shareTextFile   string
)

var shareTextCmd = &cobra.Command{
	Use:   "share-text [content]",
	Short: "Share a text snippet",
	Long: `Share a text snippet. The server stores it as a text file and
lists it alongside uploaded files.

Content comes from the argument, from --file, or from stdin when
neither is given.

Examples:
  filedrop-cli share-text --title "standup" "blocked on review"
  filedrop-cli share-text --title "snippet" --file ./snippet.sql
  cat notes.txt | filedrop-cli share-text --title "notes"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShareText,
}

func init() {
	shareTextCmd.Flags().StringVarP(&shareTextTitle, "title", "T", "", "title for the snippet (required)")
	shareTextCmd.Flags().StringVarP(&shareTextAuthor, "author", "a", "", "author recorded with the snippet")
	shareTextCmd.Flags().StringVarP(&shareTextFile, "file", "f", "", "read content from a file")
	_ = shareTextCmd.MarkFlagRequired("title")
}

func runShareText(_ *cobra.Command, args []string) error {
	content, err := resolveTextContent(args)
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	info, err := c.ShareText(context.Background(), client.ShareTextOptions{
		Title:   shareTextTitle,
		Content: content,
		Author:  shareTextAuthor,
	})
	if err != nil {
		return err
	}

	return getFormatter().File(os.Stdout, info)
}

func resolveTextContent(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if shareTextFile != "" {
		data, err := os.ReadFile(filepath.Clean(shareTextFile))
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
