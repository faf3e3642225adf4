package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/policy"
	"github.com/erazemk/izposoja/internal/store"
)

// ImagesHandler stores and serves catalog images.
type ImagesHandler struct {
	DB       *sql.DB
	MaxBytes int64
}

type uploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Upload handles POST /api/images/upload with a multipart "file" field.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if err := policy.Authorize(a, policy.ManageImages, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	// Leave room for the multipart envelope; imaging enforces the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Validation("file too large"))
			return
		}
		writeError(w, r, apperr.Validation("no file provided"))
		return
	}
	defer file.Close()

	result, err := imaging.Process(file, maxBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := "catalog/" + uuid.NewString() + ".jpg"
	if err := store.PutImage(r.Context(), h.DB, filename, result.Data, result.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("image uploaded", "by", a.UserID, "path", filename, "bytes", len(result.Data))
	jsonResponse(w, http.StatusCreated, uploadResponse{URL: "/api/images/" + filename, Filename: filename})
}

// Get handles GET /api/images/*.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := imagePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, contentType, err := store.GetImage(r.Context(), h.DB, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		writeError(w, r, apperr.NotFound("image not found"))
		return
	}

	// Stored paths are unique per upload, so the content never changes.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete handles DELETE /api/images/*.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if err := policy.Authorize(a, policy.ManageImages, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := imagePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	deleted, err := store.DeleteImage(r.Context(), h.DB, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, apperr.NotFound("image not found"))
		return
	}

	slog.Info("image deleted", "by", a.UserID, "path", p)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

func imagePath(r *http.Request) (string, error) {
	p := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	if p == "" {
		return "", apperr.NotFound("image not found")
	}
	return p, nil
}
