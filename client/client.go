package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (%d %s)", e.StatusCode, e.Code)
}

// Client is a filedrop API client.
type Client struct {
	endpoint    string
	adminSecret string
	httpClient  *http.Client
}

// New creates a new client from the given config.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	resolved := cfg.WithDefaults()

	return &Client{
		endpoint:    strings.TrimSuffix(resolved.Endpoint, "/"),
		adminSecret: resolved.AdminSecret,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Endpoint returns the server endpoint the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Upload uploads a local file to the server.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*FileInfo, error) {
	if opts.LocalPath == "" {
		return nil, ErrEmptyPath
	}

	f, err := os.Open(filepath.Clean(opts.LocalPath))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.LocalPath)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := createFilePart(w, filename, opts.ContentType)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if opts.Uploader != "" {
		if err := w.WriteField("uploader", opts.Uploader); err != nil {
			return nil, fmt.Errorf("write uploader field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/files/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var info FileInfo
	if err := c.do(req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ShareText shares a text snippet, storing it server-side as a file.
func (c *Client) ShareText(ctx context.Context, opts ShareTextOptions) (*FileInfo, error) {
	payload := map[string]string{
		"Title":   opts.Title,
		"Content": opts.Content,
		"Author":  opts.Author,
	}

	var info FileInfo
	if err := c.postJSON(ctx, "/files/share-text", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns all files on the server, starred first, newest first.
func (c *Client) List(ctx context.Context) ([]FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/files", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var files []FileInfo
	if err := c.do(req, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ResolveURL asks the server for the download URL of a file.
func (c *Client) ResolveURL(ctx context.Context, filename string) (string, error) {
	if filename == "" {
		return "", ErrEmptyFilename
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/files/download/"+url.PathEscape(filename), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Download resolves a file's URL and downloads its content.
// If opts.LocalPath is "-", the content is written to stdout.
// If opts.LocalPath is empty, the file is written to the current
// directory under its server-side filename.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	if opts.Filename == "" {
		return nil, ErrEmptyFilename
	}

	fileURL, err := c.ResolveURL(ctx, opts.Filename)
	if err != nil {
		return nil, err
	}

	// Relative URLs point back at the server itself.
	if strings.HasPrefix(fileURL, "/") {
		fileURL = c.endpoint + fileURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: "download_failed",
			Message: fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, fileURL)}
	}

	var out io.Writer
	localPath := opts.LocalPath
	switch localPath {
	case "-":
		out = os.Stdout
	case "":
		localPath = filepath.Base(opts.Filename)
		fallthrough
	default:
		f, err := os.Create(filepath.Clean(localPath))
		if err != nil {
			return nil, fmt.Errorf("create file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	size, err := io.Copy(out, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &DownloadResult{
		Filename:  opts.Filename,
		LocalPath: localPath,
		URL:       fileURL,
		Size:      size,
	}, nil
}

// Star updates the starred flag of all live records with the given filename.
// Returns the number of updated records.
func (c *Client) Star(ctx context.Context, filename string, starred bool) (int64, error) {
	if filename == "" {
		return 0, ErrEmptyFilename
	}

	payload := map[string]bool{"starred": starred}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.endpoint+"/files/"+url.PathEscape(filename)+"/star", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(req, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// Delete deletes all records with the given filename and their stored blobs.
// Requires the admin secret to be configured.
func (c *Client) Delete(ctx context.Context, filename string) error {
	if filename == "" {
		return ErrEmptyFilename
	}
	if c.adminSecret == "" {
		return ErrAdminSecretRequired
	}

	payload := map[string]string{"adminPassword": c.adminSecret}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.endpoint+"/files/"+url.PathEscape(filename), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// DeleteMany deletes multiple files, collecting per-file results.
// A failure on one file does not stop the others.
func (c *Client) DeleteMany(ctx context.Context, filenames []string) []DeleteResult {
	results := make([]DeleteResult, 0, len(filenames))
	for _, name := range filenames {
		err := c.Delete(ctx, name)
		results = append(results, DeleteResult{
			Filename: name,
			Deleted:  err == nil,
			Err:      err,
		})
	}
	return results
}

func createFilePart(w *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		return w.CreateFormFile("file", filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(filename, `"`, `\"`)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}

// IsNotFound reports whether err is a server not-found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a server unauthorized response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}
