package client

import "time"

// FileInfo mirrors one metadata record as the server serializes it.
type FileInfo struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	Uploader    string    `json:"uploader,omitempty"`
	Starred     bool      `json:"starred"`
	UploadedAt  time.Time `json:"uploaded_at"`
	IsText      bool      `json:"is_text,omitempty"`
	TextTitle   string    `json:"text_title,omitempty"`
	TextContent string    `json:"text_content,omitempty"`
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	Filename    string // optional, defaults to the local file's base name
	ContentType string // optional, auto-detect if empty
	Uploader    string // optional
}

// ShareTextOptions configures a text share operation.
type ShareTextOptions struct {
	Title   string
	Content string
	Author  string // optional
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Filename  string
	LocalPath string // empty = derive from filename, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Filename  string `json:"filename"`
	LocalPath string `json:"local_path"`
	URL       string `json:"url"`
	Size      int64  `json:"size_bytes"`
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	Filename string `json:"filename"`
	Deleted  bool   `json:"deleted"`
	Err      error  `json:"-"` // nil on success
}
