// Package history implements the per-open-note undo/redo stack with
// edit coalescing.
package history

// Entry is one snapshot on the undo or redo stack.
type Entry struct {
	Content string
	Cursor  int
}

// Manager keeps a bounded undo/redo pair for the currently open note.
//
// The manager is a two-state machine: idle until RecordEdit marks it
// dirty, back to idle after Commit. Commits are driven by the caller's
// quiet-period timer so undo granularity follows natural typing pauses
// instead of single keystrokes.
//
// Invariants while a note is open: the undo stack never drops below one
// entry (the load-time floor) and never exceeds the configured maximum;
// the redo stack is cleared by every genuine new edit.
type Manager struct {
	maxSize int
	dirty   bool
	open    bool
	undo    []Entry
	redo    []Entry
}

const defaultMaxSize = 100

// New returns a manager with the given stack bound. Sizes below 2 fall
// back to the default: a bound of 1 would make undo impossible.
func New(maxSize int) *Manager {
	if maxSize < 2 {
		maxSize = defaultMaxSize
	}
	return &Manager{maxSize: maxSize}
}

// Open seeds the stacks for a newly loaded note. Any previous note's
// history is discarded wholesale.
func (m *Manager) Open(content string) {
	m.undo = []Entry{{Content: content, Cursor: 0}}
	m.redo = nil
	m.dirty = false
	m.open = true
}

// Close discards both stacks (the document returned to a non-note view).
func (m *Manager) Close() {
	m.undo = nil
	m.redo = nil
	m.dirty = false
	m.open = false
}

// RecordEdit marks that the content changed since the last commit. It
// is called on every keystroke and never touches the stacks.
func (m *Manager) RecordEdit() {
	if m.open {
		m.dirty = true
	}
}

// Commit snapshots the current content if an edit is pending and the
// content actually differs from the top of the undo stack. A real push
// clears the redo stack and trims the undo stack from the oldest end.
// The manager returns to idle either way.
func (m *Manager) Commit(content string, cursor int) {
	if !m.open || !m.dirty {
		return
	}
	m.dirty = false

	if top := m.undo[len(m.undo)-1]; top.Content == content {
		return
	}
	m.undo = append(m.undo, Entry{Content: content, Cursor: cursor})
	m.redo = nil
	if len(m.undo) > m.maxSize {
		m.undo = append(m.undo[:0], m.undo[len(m.undo)-m.maxSize:]...)
	}
}

// Flush forces a commit of any pending edit. Callers invoke it before
// undo/redo so an in-progress edit is never silently discarded.
func (m *Manager) Flush(content string, cursor int) {
	m.Commit(content, cursor)
}

// Undo steps back one snapshot. It reports false when no note is open
// or the stack is at its load-time floor. content/cursor describe the
// editor's current state so a pending edit can be flushed first.
func (m *Manager) Undo(content string, cursor int) (Entry, bool) {
	if !m.open {
		return Entry{}, false
	}
	m.Flush(content, cursor)
	if len(m.undo) <= 1 {
		return Entry{}, false
	}
	top := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, top)

	e := m.undo[len(m.undo)-1]
	e.Cursor = clamp(e.Cursor, len(e.Content))
	return e, true
}

// Redo replays the most recently undone snapshot, if any.
func (m *Manager) Redo(content string, cursor int) (Entry, bool) {
	if !m.open || len(m.redo) == 0 {
		return Entry{}, false
	}
	m.Flush(content, cursor)
	if len(m.redo) == 0 {
		return Entry{}, false
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, e)

	e.Cursor = clamp(e.Cursor, len(e.Content))
	return e, true
}

// UndoDepth returns the number of snapshots on the undo stack.
func (m *Manager) UndoDepth() int { return len(m.undo) }

// RedoDepth returns the number of snapshots on the redo stack.
func (m *Manager) RedoDepth() int { return len(m.redo) }

// CanUndo reports whether an undo step is available.
func (m *Manager) CanUndo() bool { return m.open && len(m.undo) > 1 }

// CanRedo reports whether a redo step is available.
func (m *Manager) CanRedo() bool { return m.open && len(m.redo) > 0 }

func clamp(cursor, max int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > max {
		return max
	}
	return cursor
}
