package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"filedrop"
)

type Service interface {
	Upload(ctx context.Context, req filedrop.UploadRequest, payload []byte) (filedrop.FileRecord, error)
	ShareText(ctx context.Context, share filedrop.TextShare) (filedrop.FileRecord, error)
	SaveRecord(ctx context.Context, rec filedrop.FileRecord) (filedrop.FileRecord, error)
	List(ctx context.Context) ([]filedrop.FileRecord, error)
	SetStarred(ctx context.Context, filename string, starred bool) (int64, error)
	Delete(ctx context.Context, filename, secret string) error
	ResolveURL(ctx context.Context, filename string) (string, error)
}

// BlobOpener is implemented by object stores that can open blobs locally.
// When the configured store implements it the handler serves blobs itself.
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	// MaxUploadBytes caps the accepted multipart body size
	MaxUploadBytes int64
	CORS           CORSConfig
}

const defaultMaxUploadBytes = 64 << 20

// Handler provides the HTTP handlers for the file sharing routes.
type Handler struct {
	config  HandlerConfig
	service Service
	blobs   BlobOpener
}

// NewHandler creates a Handler. blobs may be nil when the object store has
// no local access; /blobs routes are then not registered.
func NewHandler(config *HandlerConfig, service Service, blobs BlobOpener) *Handler {
	h := &Handler{
		config:  *config,
		service: service,
		blobs:   blobs,
	}
	if h.config.MaxUploadBytes <= 0 {
		h.config.MaxUploadBytes = defaultMaxUploadBytes
	}
	return h
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Route("/files", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/upload", h.handleUpload)
		r.Post("/share-text", h.handleShareText)
		r.Post("/save", h.handleSave)
		r.Get("/download/{filename}", h.handleDownload)
		r.Patch("/{filename}/star", h.handleStar)
		r.Delete("/{filename}", h.handleDelete)
	})

	if h.blobs != nil {
		r.Get("/blobs/*", h.handleBlob)
	}

	return r
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Missing file part")
		return
	}
	defer func() { _ = file.Close() }()

	payload, err := io.ReadAll(file)
	if err != nil {
		HandleError(w, err)
		return
	}

	req := filedrop.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Uploader:    r.FormValue("uploader"),
	}

	rec, err := h.service.Upload(r.Context(), req, payload)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleShareText(w http.ResponseWriter, r *http.Request) {
	var share filedrop.TextShare
	if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	rec, err := h.service.ShareText(r.Context(), share)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var rec filedrop.FileRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	saved, err := h.service.SaveRecord(r.Context(), rec)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid filename")
		return
	}

	resolved, err := h.service.ResolveURL(r.Context(), filename)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"url": resolved})
}

func (h *Handler) handleStar(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid filename")
		return
	}

	var body struct {
		Starred bool `json:"starred"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	updated, err := h.service.SetStarred(r.Context(), filename, body.Starred)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid filename")
		return
	}

	var body struct {
		AdminPassword string `json:"adminPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	if err := h.service.Delete(r.Context(), filename, body.AdminPassword); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBlob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	content, err := h.blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, filedrop.ErrNotFound) || errors.Is(err, filedrop.ErrInvalidInput) {
			WriteError(w, http.StatusNotFound, "not_found", "Blob not found")
		} else {
			HandleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	http.ServeContent(w, r, filepath.Base(key), time.Time{}, content)
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
