package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veleda/skald/internal/filter"
	"github.com/veleda/skald/internal/session"
)

// Handler holds API route handlers backed by the session controller.
type Handler struct {
	ctrl *session.Controller
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *session.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// wildcardPath extracts the vault path from the URL wildcard. Supports
// encoded slashes from clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetTree handles GET /api/tree.
func (h *Handler) GetTree(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Tree())
}

// Filter handles GET /api/filter?q=...&tags=a,b.
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	q := filter.Query{Text: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}

	view, err := h.ctrl.Filter(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Search handles GET /api/search?q=... as a text-only filter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	view, err := h.ctrl.Filter(r.Context(), filter.Query{Text: query})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, _ *http.Request) {
	counts, err := h.ctrl.TagCounts()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: counts})
}

// GetNote handles GET /api/notes/*.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.ctrl.GetNote(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.CreateNote(req.Path, req.Content); err != nil {
		writeError(w, err)
		return
	}
	note, err := h.ctrl.GetNote(canonicalNotePath(req.Path))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func canonicalNotePath(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".md") {
		return path
	}
	return strings.TrimSuffix(path, "/") + ".md"
}

// UpdateNote handles PUT /api/notes/*.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.UpdateNote(path, []byte(req.Content)); err != nil {
		writeError(w, err)
		return
	}
	note, err := h.ctrl.GetNote(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.DeleteNote(path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move handles POST /api/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	if err := h.ctrl.Move(req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.CreateFolder(req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}

// DeleteFolder handles DELETE /api/folders/*.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.DeleteFolder(path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Render handles POST /api/render: ad-hoc preview of arbitrary text.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{HTML: h.ctrl.Render(req.Text)})
}

// EditorOpen handles POST /api/editor/open.
func (h *Handler) EditorOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	state, err := h.ctrl.OpenNote(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// EditorEdit handles POST /api/editor/edit.
func (h *Handler) EditorEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	state, err := h.ctrl.Edit(req.Path, req.Content, req.Cursor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// EditorUndo handles POST /api/editor/undo.
func (h *Handler) EditorUndo(w http.ResponseWriter, _ *http.Request) {
	state, _ := h.ctrl.Undo()
	writeJSON(w, http.StatusOK, state)
}

// EditorRedo handles POST /api/editor/redo.
func (h *Handler) EditorRedo(w http.ResponseWriter, _ *http.Request) {
	state, _ := h.ctrl.Redo()
	writeJSON(w, http.StatusOK, state)
}

// EditorClose handles POST /api/editor/close.
func (h *Handler) EditorClose(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.CloseNote()
	w.WriteHeader(http.StatusNoContent)
}
