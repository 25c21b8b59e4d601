package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Formatter formats command output.
type Formatter interface {
	FileList(w io.Writer, files []FileInfo) error
	File(w io.Writer, file *FileInfo) error
	DownloadResult(w io.Writer, result *DownloadResult) error
	DeleteResults(w io.Writer, results []DeleteResult) error
	Profiles(w io.Writer, profiles []Profile) error
}

// NewFormatter returns a JSON formatter when jsonOutput is true,
// otherwise a human-readable formatter.
func NewFormatter(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{}
}

// HumanFormatter formats output for human consumption.
type HumanFormatter struct{}

// FileList writes a table of files.
func (f *HumanFormatter) FileList(w io.Writer, files []FileInfo) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARRED\tFILENAME\tSIZE\tUPLOADER\tUPLOADED\tTYPE")
	for i := range files {
		file := &files[i]
		star := ""
		if file.Starred {
			star = "*"
		}
		kind := "file"
		if file.IsText {
			kind = "text"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			star,
			file.Filename,
			formatSize(file.Size),
			valueOrDash(file.Uploader),
			formatTime(file.UploadedAt),
			kind,
		)
	}
	return tw.Flush()
}

// File writes a single file's details.
func (f *HumanFormatter) File(w io.Writer, file *FileInfo) error {
	fmt.Fprintf(w, "Filename: %s\n", file.Filename)
	fmt.Fprintf(w, "Size:     %s\n", formatSize(file.Size))
	fmt.Fprintf(w, "URL:      %s\n", file.URL)
	if file.Uploader != "" {
		fmt.Fprintf(w, "Uploader: %s\n", file.Uploader)
	}
	if file.IsText {
		fmt.Fprintf(w, "Title:    %s\n", file.TextTitle)
	}
	return nil
}

// DownloadResult writes the outcome of a download.
func (f *HumanFormatter) DownloadResult(w io.Writer, result *DownloadResult) error {
	if result.LocalPath == "-" {
		return nil
	}
	_, err := fmt.Fprintf(w, "Downloaded %s to %s (%s)\n",
		result.Filename, result.LocalPath, formatSize(result.Size))
	return err
}

// DeleteResults writes per-file delete outcomes.
func (f *HumanFormatter) DeleteResults(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Deleted {
			fmt.Fprintf(w, "Deleted %s\n", r.Filename)
		} else {
			fmt.Fprintf(w, "Failed to delete %s: %v\n", r.Filename, r.Err)
		}
	}
	return nil
}

// Profiles writes a table of configured profiles.
func (f *HumanFormatter) Profiles(w io.Writer, profiles []Profile) error {
	if len(profiles) == 0 {
		_, err := fmt.Fprintln(w, "No profiles configured.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENDPOINT\tADMIN SECRET\tDEFAULT")
	for i := range profiles {
		p := &profiles[i]
		def := ""
		if p.Default {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Name, p.Endpoint, maskSecret(p.AdminSecret), def)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// FileList writes files as a JSON array.
func (f *JSONFormatter) FileList(w io.Writer, files []FileInfo) error {
	return writeJSON(w, files)
}

// File writes a single file as JSON.
func (f *JSONFormatter) File(w io.Writer, file *FileInfo) error {
	return writeJSON(w, file)
}

// DownloadResult writes the download outcome as JSON.
func (f *JSONFormatter) DownloadResult(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// DeleteResults writes delete outcomes as JSON, including error strings.
func (f *JSONFormatter) DeleteResults(w io.Writer, results []DeleteResult) error {
	type jsonResult struct {
		Filename string `json:"filename"`
		Deleted  bool   `json:"deleted"`
		Error    string `json:"error,omitempty"`
	}
	out := make([]jsonResult, 0, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{Filename: r.Filename, Deleted: r.Deleted}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out = append(out, jr)
	}
	return writeJSON(w, out)
}

// Profiles writes profiles as JSON with secrets masked.
func (f *JSONFormatter) Profiles(w io.Writer, profiles []Profile) error {
	masked := make([]Profile, len(profiles))
	copy(masked, profiles)
	for i := range masked {
		masked[i].AdminSecret = maskSecret(masked[i].AdminSecret)
	}
	return writeJSON(w, masked)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// maskSecret masks a secret, showing only the last 4 characters.
func maskSecret(secret string) string {
	if secret == "" {
		return "-"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
