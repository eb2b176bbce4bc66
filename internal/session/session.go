// Package session implements the explicit editing session controller:
// it owns the entry list, the lookup index, the folder tree, the open
// note's history and the active filter, and it is the only place where
// those structures are mutated. Every mutator leaves them pairwise
// consistent before releasing the lock.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/veleda/skald/internal/apperr"
	"github.com/veleda/skald/internal/debounce"
	"github.com/veleda/skald/internal/filter"
	"github.com/veleda/skald/internal/foldertree"
	"github.com/veleda/skald/internal/history"
	"github.com/veleda/skald/internal/models"
	"github.com/veleda/skald/internal/noteindex"
	"github.com/veleda/skald/internal/parser"
	"github.com/veleda/skald/internal/render"
	"github.com/veleda/skald/internal/search"
	"github.com/veleda/skald/internal/vault"
)

// Notifier receives change events for connected clients. The SSE broker
// satisfies it; tests use a recording stub.
type Notifier interface {
	PublishNoteEvent(kind, path string)
	PublishRebuild()
}

type noopNotifier struct{}

func (noopNotifier) PublishNoteEvent(string, string) {}
func (noopNotifier) PublishRebuild()                 {}

// Options tune the session's coalescing behavior. Each quiet period
// belongs to its own debounce task, so one concern firing never resets
// another.
type Options struct {
	// MaxHistory bounds the undo stack per open note.
	MaxHistory int
	// CommitQuiet is the typing pause after which a pending edit is
	// committed to the undo stack.
	CommitQuiet time.Duration
	// SaveQuiet is the pause after which the open note is autosaved.
	SaveQuiet time.Duration
	// ReloadQuiet coalesces bursts of watcher events into one reload.
	ReloadQuiet time.Duration
	// TagQuiet coalesces mutations into one tag-count recomputation.
	TagQuiet time.Duration
}

func (o *Options) fill() {
	if o.CommitQuiet <= 0 {
		o.CommitQuiet = 600 * time.Millisecond
	}
	if o.SaveQuiet <= 0 {
		o.SaveQuiet = 2 * time.Second
	}
	if o.ReloadQuiet <= 0 {
		o.ReloadQuiet = 250 * time.Millisecond
	}
	if o.TagQuiet <= 0 {
		o.TagQuiet = time.Second
	}
}

// Controller coordinates the vault, the lookup index, the folder tree,
// the renderer, history and filtering behind one mutex.
type Controller struct {
	store    vault.Provider
	db       *search.DB
	index    *noteindex.Index
	renderer *render.Renderer
	engine   *filter.Engine
	notifier Notifier
	logger   *slog.Logger

	commitTask *debounce.Task
	saveTask   *debounce.Task
	reloadTask *debounce.Task
	tagTask    *debounce.Task

	mu        sync.Mutex
	entries   []models.Entry
	folders   []string
	tree      *foldertree.Node
	tagCounts map[string]int

	hist     *history.Manager
	openPath string
	content  string
	cursor   int
}

// New builds a controller and performs the initial load. The search DB
// may be nil in tests that never exercise text queries.
func New(store vault.Provider, db *search.DB, notifier Notifier, logger *slog.Logger, opts Options) (*Controller, error) {
	opts.fill()
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		store:      store,
		db:         db,
		index:      noteindex.New(),
		notifier:   notifier,
		logger:     logger,
		commitTask: debounce.NewTask(opts.CommitQuiet),
		saveTask:   debounce.NewTask(opts.SaveQuiet),
		reloadTask: debounce.NewTask(opts.ReloadQuiet),
		tagTask:    debounce.NewTask(opts.TagQuiet),
		hist:       history.New(opts.MaxHistory),
		tree:       foldertree.Build(nil, nil),
	}
	c.renderer = render.New(c.index)
	c.engine = filter.New(searcherFunc(c.searchText))

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// searcherFunc adapts the SQLite collaborator to the filter engine.
type searcherFunc func(ctx context.Context, query string, limit int) ([]filter.Result, error)

func (f searcherFunc) Search(ctx context.Context, query string, limit int) ([]filter.Result, error) {
	return f(ctx, query, limit)
}

func (c *Controller) searchText(ctx context.Context, query string, limit int) ([]filter.Result, error) {
	if c.db == nil {
		return nil, nil
	}
	rows, err := c.db.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]filter.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, filter.Result{Path: r.Path, Snippet: r.Snippet})
	}
	return out, nil
}

// Reload relists the vault and rebuilds the lookup index and folder
// tree as one step, so no reader observes a tree built from one entry
// list and an index built from another.
func (c *Controller) Reload() error {
	entries, folders, err := c.store.List()
	if err != nil {
		return fmt.Errorf("session: reload: %w", err)
	}

	c.mu.Lock()
	c.entries = entries
	c.folders = folders
	c.index.Build(entries)
	c.tree = foldertree.Build(entries, folders)
	c.mu.Unlock()

	c.notifier.PublishRebuild()
	return nil
}

// Tree returns the current folder tree. The tree is immutable after
// build; callers must not modify it.
func (c *Controller) Tree() *foldertree.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Entries returns a snapshot of the flat entry list.
func (c *Controller) Entries() []models.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Index exposes the lookup index for link resolution queries.
func (c *Controller) Index() *noteindex.Index { return c.index }

// Render converts note text to HTML through the shared pipeline.
func (c *Controller) Render(text string) string {
	return c.renderer.Render(text)
}

// Filter applies the query against the current collection.
func (c *Controller) Filter(ctx context.Context, q filter.Query) (*filter.View, error) {
	return c.engine.Apply(ctx, c.Entries(), q)
}

// TagCounts returns tag usage across the collection, for display. The
// counts are cached; mutations schedule a deferred recomputation rather
// than hitting the database per change.
func (c *Controller) TagCounts() (map[string]int, error) {
	c.mu.Lock()
	cached := c.tagCounts
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	return c.refreshTags()
}

func (c *Controller) refreshTags() (map[string]int, error) {
	counts := map[string]int{}
	if c.db != nil {
		var err error
		if counts, err = c.db.TagCounts(); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	c.tagCounts = counts
	c.mu.Unlock()
	return counts, nil
}

func (c *Controller) scheduleTagRefresh() {
	c.tagTask.Schedule(func() {
		if _, err := c.refreshTags(); err != nil {
			c.logger.Warn("session: tag refresh failed",
				slog.String("error", err.Error()))
		}
	})
}

// NoteDetail is a note as served to the client: raw content for the
// editor pane plus rendered HTML for the preview pane.
type NoteDetail struct {
	Path    string   `json:"path"`
	Title   string   `json:"title,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
	HTML    string   `json:"html"`
}

// GetNote reads and renders a note without opening an editing session.
func (c *Controller) GetNote(path string) (NoteDetail, error) {
	data, err := c.store.Read(path)
	if err != nil {
		return NoteDetail{}, err
	}
	res := parser.Parse(data)
	return NoteDetail{
		Path:    path,
		Title:   res.Title,
		Tags:    res.Tags,
		Content: string(data),
		HTML:    c.renderer.Render(string(data)),
	}, nil
}

// EditorState describes the open note as seen by the client.
type EditorState struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Cursor  int    `json:"cursor"`
	HTML    string `json:"html"`
	CanUndo bool   `json:"can_undo"`
	CanRedo bool   `json:"can_redo"`
}

// OpenNote loads a note into the editor, replacing any previous
// session. Pending work for the previous note is flushed first so no
// edit is lost on switch.
func (c *Controller) OpenNote(path string) (EditorState, error) {
	c.flushPending()

	data, err := c.store.Read(path)
	if err != nil {
		return EditorState{}, err
	}
	if !models.IsNotePath(path) {
		return EditorState{}, fmt.Errorf("session: open %s: %w", path, apperr.ErrConflict)
	}

	c.mu.Lock()
	c.openPath = path
	c.content = string(data)
	c.cursor = 0
	c.hist.Open(c.content)
	state := c.stateLocked()
	c.mu.Unlock()
	return state, nil
}

// CloseNote discards the editing session, flushing pending work first.
func (c *Controller) CloseNote() {
	c.flushPending()

	c.mu.Lock()
	c.openPath = ""
	c.content = ""
	c.cursor = 0
	c.hist.Close()
	c.mu.Unlock()
}

// Edit applies a keystroke-level content change to the open note. The
// history commit and the autosave are both deferred behind their quiet
// periods; a burst of edits collapses into one snapshot and one write.
func (c *Controller) Edit(path, content string, cursor int) (EditorState, error) {
	c.mu.Lock()
	if c.openPath == "" || c.openPath != path {
		c.mu.Unlock()
		return EditorState{}, fmt.Errorf("session: edit %s: not open: %w", path, apperr.ErrConflict)
	}
	c.content = content
	c.cursor = cursor
	c.hist.RecordEdit()
	state := c.stateLocked()
	c.mu.Unlock()

	c.commitTask.Schedule(c.commitNow)
	c.saveTask.Schedule(c.saveNow)
	return state, nil
}

// Undo steps the open note back one snapshot.
func (c *Controller) Undo() (EditorState, bool) {
	return c.step((*history.Manager).Undo)
}

// Redo replays the most recently undone snapshot.
func (c *Controller) Redo() (EditorState, bool) {
	return c.step((*history.Manager).Redo)
}

func (c *Controller) step(move func(*history.Manager, string, int) (history.Entry, bool)) (EditorState, bool) {
	// Cancel the timer; the manager flushes the pending edit itself.
	c.commitTask.Cancel()

	c.mu.Lock()
	entry, ok := move(c.hist, c.content, c.cursor)
	if !ok {
		state := c.stateLocked()
		c.mu.Unlock()
		return state, false
	}
	c.content = entry.Content
	c.cursor = entry.Cursor
	state := c.stateLocked()
	c.mu.Unlock()

	c.saveTask.Schedule(c.saveNow)
	return state, true
}

func (c *Controller) stateLocked() EditorState {
	return EditorState{
		Path:    c.openPath,
		Content: c.content,
		Cursor:  c.cursor,
		HTML:    c.renderer.Render(c.content),
		CanUndo: c.hist.CanUndo(),
		CanRedo: c.hist.CanRedo(),
	}
}

func (c *Controller) commitNow() {
	c.mu.Lock()
	c.hist.Commit(c.content, c.cursor)
	c.mu.Unlock()
}

// saveNow writes the open note to disk and patches the cached entry in
// place (tags, size, modification time). Folder membership cannot
// change on save, so no tree rebuild is needed unless tags moved.
func (c *Controller) saveNow() {
	c.mu.Lock()
	path, content := c.openPath, c.content
	c.mu.Unlock()
	if path == "" {
		return
	}

	if err := c.store.Write(path, []byte(content)); err != nil {
		c.logger.Error("session: autosave failed",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	tags := parser.Parse([]byte(content)).Tags
	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].Path == path {
			c.entries[i].Tags = tags
			c.entries[i].Modified = time.Now()
			c.entries[i].Size = int64(len(content))
			break
		}
	}
	c.tree = foldertree.Build(c.entries, c.folders)
	c.mu.Unlock()

	if c.db != nil {
		if err := search.Reindex(c.db, path, []byte(content)); err != nil {
			c.logger.Warn("session: reindex failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	c.scheduleTagRefresh()
	c.notifier.PublishNoteEvent("updated", path)
}

// flushPending forces any deferred commit and save to run now.
func (c *Controller) flushPending() {
	c.commitTask.Flush()
	c.saveTask.Flush()
}

// CreateNote writes a new note and reloads the collection. The path
// must carry the canonical extension and not collide.
func (c *Controller) CreateNote(path, content string) error {
	if !models.IsNotePath(path) {
		path = strings.TrimSuffix(path, "/") + ".md"
	}
	if err := vault.ValidatePath(path); err != nil {
		return err
	}
	if c.index.Exists(path) {
		return fmt.Errorf("session: create %s: %w", path, apperr.ErrAlreadyExists)
	}
	if err := c.store.Write(path, []byte(content)); err != nil {
		return err
	}
	if err := c.afterMutation(path, []byte(content)); err != nil {
		return err
	}
	c.notifier.PublishNoteEvent("created", path)
	return nil
}

// UpdateNote overwrites a note outside the editing session.
func (c *Controller) UpdateNote(path string, content []byte) error {
	if _, err := c.store.Read(path); err != nil {
		return err
	}
	if err := c.store.Write(path, content); err != nil {
		return err
	}
	if err := c.afterMutation(path, content); err != nil {
		return err
	}
	c.notifier.PublishNoteEvent("updated", path)
	return nil
}

// DeleteNote removes a note or media file and reloads.
func (c *Controller) DeleteNote(path string) error {
	c.mu.Lock()
	open := c.openPath == path
	c.mu.Unlock()
	if open {
		c.CloseNote()
	}

	if err := c.store.Delete(path); err != nil {
		return err
	}
	if c.db != nil && models.IsNotePath(path) {
		if err := c.db.DeleteNote(path); err != nil {
			c.logger.Warn("session: deindex failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	if err := c.Reload(); err != nil {
		return err
	}
	c.scheduleTagRefresh()
	c.notifier.PublishNoteEvent("deleted", path)
	return nil
}

// Move renames a note or media file and reloads.
func (c *Controller) Move(oldPath, newPath string) error {
	c.flushPending()

	if err := c.store.Move(oldPath, newPath); err != nil {
		return err
	}
	if c.db != nil && models.IsNotePath(oldPath) {
		if err := c.db.DeleteNote(oldPath); err != nil {
			c.logger.Warn("session: deindex failed",
				slog.String("path", oldPath), slog.String("error", err.Error()))
		}
	}

	c.mu.Lock()
	if c.openPath == oldPath {
		c.openPath = newPath
	}
	c.mu.Unlock()

	var data []byte
	if models.IsNotePath(newPath) {
		if b, err := c.store.Read(newPath); err == nil {
			data = b
		}
	}
	if err := c.afterMutation(newPath, data); err != nil {
		return err
	}
	c.notifier.PublishNoteEvent("deleted", oldPath)
	c.notifier.PublishNoteEvent("created", newPath)
	return nil
}

// CreateFolder adds an empty folder to the tree.
func (c *Controller) CreateFolder(path string) error {
	if err := c.store.MkFolder(path); err != nil {
		return err
	}
	return c.Reload()
}

// DeleteFolder removes a folder recursively and reloads.
func (c *Controller) DeleteFolder(path string) error {
	c.mu.Lock()
	openInside := c.openPath != "" && strings.HasPrefix(c.openPath, path+"/")
	c.mu.Unlock()
	if openInside {
		c.CloseNote()
	}

	if err := c.store.DeleteFolder(path); err != nil {
		return err
	}
	if err := c.Reload(); err != nil {
		return err
	}
	if c.db != nil {
		if err := search.Sync(c.db, c.store, c.logger); err != nil {
			c.logger.Warn("session: sync after folder delete failed",
				slog.String("error", err.Error()))
		}
	}
	c.scheduleTagRefresh()
	return nil
}

// SaveMedia stores an upload and reloads so embeds resolve immediately.
func (c *Controller) SaveMedia(dir, filename string, content []byte) (string, error) {
	path, err := c.store.SaveMedia(dir, filename, content)
	if err != nil {
		return "", err
	}
	if err := c.Reload(); err != nil {
		return "", err
	}
	c.notifier.PublishNoteEvent("created", path)
	return path, nil
}

// afterMutation reindexes one note and reloads the collection.
func (c *Controller) afterMutation(path string, data []byte) error {
	if c.db != nil && models.IsNotePath(path) && data != nil {
		if err := search.Reindex(c.db, path, data); err != nil {
			c.logger.Warn("session: reindex failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	c.scheduleTagRefresh()
	return c.Reload()
}

// HandleVaultEvent reacts to watcher-observed external changes. A bulk
// operation (export drop, directory move) produces a burst of events;
// the reload is debounced so the burst costs one rebuild. The open
// note's buffer is left alone; the editor owns it.
func (c *Controller) HandleVaultEvent(kind, path string) {
	c.reloadTask.Schedule(func() {
		if err := c.Reload(); err != nil {
			c.logger.Warn("session: reload after vault event failed",
				slog.String("error", err.Error()))
		}
	})
	c.scheduleTagRefresh()
}
