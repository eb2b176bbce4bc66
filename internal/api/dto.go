package api

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// MoveRequest renames a note or media file.
type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FolderRequest names a folder to create.
type FolderRequest struct {
	Path string `json:"path"`
}

// RenderRequest carries raw Markdown for ad-hoc preview rendering.
type RenderRequest struct {
	Text string `json:"text"`
}

// RenderResponse is the rendered preview.
type RenderResponse struct {
	HTML string `json:"html"`
}

// OpenRequest starts an editing session for a note.
type OpenRequest struct {
	Path string `json:"path"`
}

// EditRequest applies a content change to the open note.
type EditRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Cursor  int    `json:"cursor"`
}

// TagsResponse maps tag name to usage count.
type TagsResponse struct {
	Tags map[string]int `json:"tags"`
}

// UploadResponse is returned after a successful media upload.
type UploadResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}
