// Package noteindex builds the in-memory lookup structures that resolve
// wikilink and media references without scanning the collection.
package noteindex

import (
	"strings"
	"sync"

	"github.com/veleda/skald/internal/models"
)

const noteExt = ".md"

// Index answers existence queries for note targets and resolves media
// filenames to vault paths. All structures are replaced atomically by
// Build; readers never observe a partially rebuilt index.
type Index struct {
	mu sync.RWMutex

	byPath      map[string]struct{}
	byPathLower map[string]struct{}
	byName      map[string]struct{}
	byNameLower map[string]struct{}
	// byEndPath holds '/'-prefixed lowercase suffixes ("/notename") so
	// folder-relative targets match regardless of assumed depth.
	byEndPath map[string]struct{}
	// mediaLookup maps lowercase filename-with-extension to the full
	// vault path. First write wins on filename collisions.
	mediaLookup map[string]string

	generation uint64
}

// New returns an empty index. Exists reports false for everything until
// the first Build.
func New() *Index {
	idx := &Index{}
	idx.install(emptyTables())
	return idx
}

type tables struct {
	byPath      map[string]struct{}
	byPathLower map[string]struct{}
	byName      map[string]struct{}
	byNameLower map[string]struct{}
	byEndPath   map[string]struct{}
	mediaLookup map[string]string
}

func emptyTables() tables {
	return tables{
		byPath:      map[string]struct{}{},
		byPathLower: map[string]struct{}{},
		byName:      map[string]struct{}{},
		byNameLower: map[string]struct{}{},
		byEndPath:   map[string]struct{}{},
		mediaLookup: map[string]string{},
	}
}

// Build rebuilds every lookup structure from the current collection and
// swaps them in under the write lock, bumping the generation counter.
func (idx *Index) Build(entries []models.Entry) {
	t := emptyTables()
	for _, e := range entries {
		if e.Kind == models.KindNote {
			registerNote(&t, e)
			continue
		}
		name := strings.ToLower(baseName(e.Path))
		if _, taken := t.mediaLookup[name]; !taken {
			t.mediaLookup[name] = e.Path
		}
	}
	idx.install(t)
}

func (idx *Index) install(t tables) {
	idx.mu.Lock()
	idx.byPath = t.byPath
	idx.byPathLower = t.byPathLower
	idx.byName = t.byName
	idx.byNameLower = t.byNameLower
	idx.byEndPath = t.byEndPath
	idx.mediaLookup = t.mediaLookup
	idx.generation++
	idx.mu.Unlock()
}

func registerNote(t *tables, e models.Entry) {
	stemPath := strings.TrimSuffix(e.Path, noteExt)

	t.byPath[e.Path] = struct{}{}
	t.byPath[stemPath] = struct{}{}
	t.byPathLower[strings.ToLower(e.Path)] = struct{}{}
	t.byPathLower[strings.ToLower(stemPath)] = struct{}{}

	stemName := strings.TrimSuffix(e.Name, noteExt)
	t.byName[e.Name] = struct{}{}
	t.byName[stemName] = struct{}{}
	t.byNameLower[strings.ToLower(e.Name)] = struct{}{}
	t.byNameLower[strings.ToLower(stemName)] = struct{}{}

	registerSuffixes(t, strings.ToLower(stemPath))
	registerSuffixes(t, strings.ToLower(e.Path))
}

// registerSuffixes records every '/'-prefixed tail of the path,
// including the whole path, so a target written with any trailing part
// of the folder chain still matches.
func registerSuffixes(t *tables, lowerPath string) {
	segs := strings.Split(lowerPath, "/")
	for i := 0; i < len(segs); i++ {
		t.byEndPath["/"+strings.Join(segs[i:], "/")] = struct{}{}
	}
}

// Exists reports whether target resolves to a known note. Authored
// links are free text, so every combination of (canonical suffix
// present/absent) x (case match/mismatch) must hit, plus end-path
// matches for targets written as bare names against nested notes.
func (idx *Index) Exists(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	lower := strings.ToLower(target)
	if _, ok := idx.byPath[target]; ok {
		return true
	}
	if _, ok := idx.byPath[target+noteExt]; ok {
		return true
	}
	if _, ok := idx.byPathLower[lower]; ok {
		return true
	}
	if _, ok := idx.byPathLower[lower+noteExt]; ok {
		return true
	}
	if _, ok := idx.byName[target]; ok {
		return true
	}
	if _, ok := idx.byNameLower[lower]; ok {
		return true
	}
	// byEndPath keys always carry one leading slash; a target authored
	// with its own leading slash must not gain a second one.
	end := lower
	if !strings.HasPrefix(end, "/") {
		end = "/" + end
	}
	if _, ok := idx.byEndPath[end]; ok {
		return true
	}
	if _, ok := idx.byEndPath[end+noteExt]; ok {
		return true
	}
	return false
}

// ResolveMedia looks up a media file by bare filename, case
// insensitively. It returns the full vault path, or "" when the
// filename is unknown; callers render a broken-reference indicator on
// miss rather than failing.
func (idx *Index) ResolveMedia(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.mediaLookup[strings.ToLower(baseName(filename))]
}

// Generation returns the rebuild counter. Dependent caches (the render
// memo) key on it to detect that link resolution may have changed.
func (idx *Index) Generation() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.generation
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
