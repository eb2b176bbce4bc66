package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veleda/skald/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
// vaultRoot is used to stream media files.
func NewRouter(ctrl *session.Controller, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(ctrl)
	mh := NewMediaHandler(ctrl, vaultRoot)

	r := chi.NewRouter()

	// Collection views.
	r.Get("/tree", h.GetTree)
	r.Get("/filter", h.Filter)
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	// Notes CRUD.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/move", h.Move)

	// Folders.
	r.Post("/folders", h.CreateFolder)
	r.Delete("/folders/*", h.DeleteFolder)

	// Rendering preview.
	r.Post("/render", h.Render)

	// Editing session.
	r.Post("/editor/open", h.EditorOpen)
	r.Post("/editor/edit", h.EditorEdit)
	r.Post("/editor/undo", h.EditorUndo)
	r.Post("/editor/redo", h.EditorRedo)
	r.Post("/editor/close", h.EditorClose)

	// Media.
	r.Get("/media/*", mh.ServeFile)
	r.Post("/media", mh.Upload)

	// SSE endpoint.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
