// Package filter unifies tag filtering and full-text search into a
// single view decision: tree browsing when no criteria are active, a
// flat match list otherwise.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/veleda/skald/internal/models"
)

// ErrStale marks a search response superseded by a newer query. Callers
// drop the result silently instead of surfacing it.
var ErrStale = errors.New("filter: superseded by a newer query")

const searchLimit = 200

// Searcher is the full-text collaborator. Result order is relevance
// order and must be preserved by the engine.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Result is one full-text hit.
type Result struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet,omitempty"`
}

// Query is the active filter criteria. Zero value means no filtering.
type Query struct {
	Text string   `json:"q"`
	Tags []string `json:"tags"`
}

// Empty reports whether no criteria are active.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Text) == "" && len(q.Tags) == 0
}

// Mode selects how the client presents the collection.
type Mode string

const (
	// ModeTree shows the folder hierarchy; no filter is active.
	ModeTree Mode = "tree"
	// ModeFlat shows a flat match list ignoring folder structure.
	ModeFlat Mode = "flat"
)

// View is the outcome of applying a query.
type View struct {
	Mode    Mode           `json:"mode"`
	Entries []models.Entry `json:"entries,omitempty"`
	// Snippets carries highlighted context per path for text matches.
	Snippets map[string]string `json:"snippets,omitempty"`
}

// Engine applies queries against the current entry list. A generation
// counter tracks the newest query so responses arriving after the
// criteria changed are discarded.
type Engine struct {
	searcher Searcher
	gen      atomic.Uint64
}

// New creates an engine over the given full-text collaborator.
func New(searcher Searcher) *Engine {
	return &Engine{searcher: searcher}
}

// Apply evaluates the query against entries.
//
// Both criteria empty yields the tree view. Tags alone match
// synchronously: a note qualifies when its tag set is a superset of the
// query tags. Text delegates to the search collaborator and intersects
// with the tag matches, keeping the collaborator's relevance order. If
// a newer Apply starts while the collaborator is working, the older
// call returns ErrStale.
func (e *Engine) Apply(ctx context.Context, entries []models.Entry, q Query) (*View, error) {
	gen := e.gen.Add(1)

	if q.Empty() {
		return &View{Mode: ModeTree}, nil
	}

	matched := entries
	if len(q.Tags) > 0 {
		matched = matchTags(entries, q.Tags)
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return &View{Mode: ModeFlat, Entries: matched}, nil
	}

	results, err := e.searcher.Search(ctx, text, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("filter: search %q: %w", text, err)
	}
	if e.gen.Load() != gen {
		return nil, ErrStale
	}

	byPath := make(map[string]models.Entry, len(matched))
	for _, entry := range matched {
		byPath[entry.Path] = entry
	}

	view := &View{Mode: ModeFlat, Snippets: map[string]string{}}
	for _, res := range results {
		entry, ok := byPath[res.Path]
		if !ok {
			continue
		}
		view.Entries = append(view.Entries, entry)
		if res.Snippet != "" {
			view.Snippets[entry.Path] = res.Snippet
		}
	}
	return view, nil
}

// matchTags keeps notes whose tags include every query tag. Stored tags
// are lowercase, so query tags are lowered here to make the comparison
// case insensitive regardless of caller; media entries carry no tags
// and never match a tag query.
func matchTags(entries []models.Entry, tags []string) []models.Entry {
	lowered := make([]string, len(tags))
	for i, tag := range tags {
		lowered[i] = strings.ToLower(tag)
	}
	var out []models.Entry
	for _, entry := range entries {
		if entry.Kind != models.KindNote {
			continue
		}
		all := true
		for _, tag := range lowered {
			if !entry.HasTag(tag) {
				all = false
				break
			}
		}
		if all {
			out = append(out, entry)
		}
	}
	return out
}
