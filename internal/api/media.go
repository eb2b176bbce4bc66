package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/veleda/skald/internal/models"
	"github.com/veleda/skald/internal/render"
	"github.com/veleda/skald/internal/session"
)

const maxUploadBytes = 50 << 20 // 50 MB

// MediaHandler streams vault media files and accepts uploads. Embeds
// and post-processed image references address files through this
// handler's URL scheme.
type MediaHandler struct {
	ctrl      *session.Controller
	vaultRoot string
}

// NewMediaHandler creates a handler rooted at the vault directory.
func NewMediaHandler(ctrl *session.Controller, vaultRoot string) *MediaHandler {
	return &MediaHandler{ctrl: ctrl, vaultRoot: vaultRoot}
}

// safePath resolves a relative vault path and rejects traversal.
func (h *MediaHandler) safePath(rel string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || strings.Contains(cleaned, "..") {
		return "", false
	}
	abs := filepath.Join(h.vaultRoot, cleaned)
	if !strings.HasPrefix(abs, h.vaultRoot+string(os.PathSeparator)) {
		return "", false
	}
	return abs, true
}

// ServeFile handles GET /api/media/*. Notes are never served here; the
// endpoint exists for embeds only.
func (h *MediaHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := wildcardPath(r)
	if rel == "" || models.IsNotePath(rel) {
		http.NotFound(w, r)
		return
	}
	abs, ok := h.safePath(rel)
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(abs); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/media (multipart/form-data, field "file",
// optional "dir" selecting the target folder).
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	path, err := h.ctrl.SaveMedia(r.FormValue("dir"), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		Path: path,
		Size: int64(len(data)),
		URL:  render.MediaURLPrefix + path,
	})
}
