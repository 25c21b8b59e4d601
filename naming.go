package filedrop

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	nonAlnumRegex   = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// TextFilename derives the blob filename for a shared text snippet from its
// title: non-alphanumeric characters are stripped, whitespace runs collapse
// to single underscores, and a fixed suffix is appended.
// "Hello, World!" becomes "Hello_World_text.txt". The derivation is
// deterministic but not collision resistant; titles that normalize
// identically share a filename.
func TextFilename(title string) string {
	name := nonAlnumRegex.ReplaceAllString(title, "")
	name = whitespaceRegex.ReplaceAllString(name, "_")
	return name + "_text.txt"
}

// TextBody synthesizes the plain-text blob for a shared snippet. The author
// line is omitted when author is empty.
func TextBody(title, author, content string) []byte {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\n")
	if author != "" {
		b.WriteString("Author: ")
		b.WriteString(author)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(content)
	return []byte(b.String())
}

// NewStorageKey generates an opaque object-store key for an upload. The
// display filename only contributes its extension, so two uploads with the
// same name never overwrite each other's blob.
func NewStorageKey(filename string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), filepath.Ext(filename))
}

// IsValidFilename validates a display filename. It must be a bare name:
// non-empty, valid UTF-8, no path separators or traversal, no control
// characters, and at most 255 bytes.
func IsValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if len(name) > 255 {
		return false
	}

	if strings.ContainsAny(name, `/\`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r == 0 || r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}
