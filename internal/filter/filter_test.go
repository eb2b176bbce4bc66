package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veleda/skald/internal/models"
)

type stubSearcher struct {
	results []Result
	err     error
	// onSearch runs inside Search, before returning; used to simulate
	// a newer query arriving mid-flight.
	onSearch func()
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	if s.onSearch != nil {
		s.onSearch()
	}
	return s.results, s.err
}

func note(t *testing.T, path string, tags ...string) models.Entry {
	t.Helper()
	return models.NewEntry(path, time.Now(), 0, tags)
}

func testEntries(t *testing.T) []models.Entry {
	t.Helper()
	return []models.Entry{
		note(t, "a.md", "work", "draft"),
		note(t, "b.md", "work"),
		note(t, "c.md", "home"),
		models.NewEntry("pic.png", time.Now(), 0, nil),
	}
}

func TestApply_EmptyQueryYieldsTree(t *testing.T) {
	e := New(&stubSearcher{})
	view, err := e.Apply(context.Background(), testEntries(t), Query{})
	if err != nil {
		t.Fatal(err)
	}
	if view.Mode != ModeTree {
		t.Errorf("Mode = %v, want tree", view.Mode)
	}
	if view.Entries != nil {
		t.Errorf("tree view must not carry a flat list")
	}
}

func TestApply_TagsOnlySupersetMatch(t *testing.T) {
	e := New(&stubSearcher{})

	view, err := e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"work"}})
	if err != nil {
		t.Fatal(err)
	}
	if view.Mode != ModeFlat {
		t.Errorf("Mode = %v, want flat", view.Mode)
	}
	if len(view.Entries) != 2 {
		t.Fatalf("matches = %v", view.Entries)
	}

	// Both tags required: only the superset note qualifies.
	view, err = e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"work", "draft"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 1 || view.Entries[0].Path != "a.md" {
		t.Errorf("AND match = %v", view.Entries)
	}
}

func TestApply_TagMatchIgnoresQueryCase(t *testing.T) {
	e := New(&stubSearcher{})

	// Stored tags are lowercase; a mixed-case query tag must still hit.
	view, err := e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"Work"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 2 {
		t.Errorf("mixed-case tag matches = %v", view.Entries)
	}

	view, err = e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"WORK", "Draft"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 1 || view.Entries[0].Path != "a.md" {
		t.Errorf("uppercase AND match = %v", view.Entries)
	}
}

func TestApply_TagsNeverMatchMedia(t *testing.T) {
	e := New(&stubSearcher{})
	view, err := e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"work"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, got := range view.Entries {
		if got.Kind != models.KindNote {
			t.Errorf("media entry %q matched a tag query", got.Path)
		}
	}
}

func TestApply_TextPreservesSearcherOrder(t *testing.T) {
	s := &stubSearcher{results: []Result{
		{Path: "c.md", Snippet: "<b>hit</b> one"},
		{Path: "a.md"},
		{Path: "ghost.md"}, // not in the collection; dropped
	}}
	e := New(s)

	view, err := e.Apply(context.Background(), testEntries(t), Query{Text: "hit"})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 2 || view.Entries[0].Path != "c.md" || view.Entries[1].Path != "a.md" {
		t.Fatalf("order = %v, want searcher relevance order", view.Entries)
	}
	if view.Snippets["c.md"] != "<b>hit</b> one" {
		t.Errorf("snippet lost: %v", view.Snippets)
	}
}

func TestApply_TextIntersectsWithTags(t *testing.T) {
	s := &stubSearcher{results: []Result{{Path: "c.md"}, {Path: "a.md"}, {Path: "b.md"}}}
	e := New(s)

	view, err := e.Apply(context.Background(), testEntries(t),
		Query{Text: "hit", Tags: []string{"work"}})
	if err != nil {
		t.Fatal(err)
	}
	// c.md matches text but not the tag; order stays a then b per the
	// searcher.
	if len(view.Entries) != 2 || view.Entries[0].Path != "a.md" || view.Entries[1].Path != "b.md" {
		t.Errorf("intersection = %v", view.Entries)
	}
}

func TestApply_SearchErrorWrapped(t *testing.T) {
	s := &stubSearcher{err: errors.New("db gone")}
	e := New(s)

	_, err := e.Apply(context.Background(), testEntries(t), Query{Text: "x"})
	if err == nil || !errors.Is(err, s.err) {
		t.Fatalf("err = %v, want wrapped searcher error", err)
	}
}

func TestApply_StaleResponseSuppressed(t *testing.T) {
	e := New(nil)
	s := &stubSearcher{results: []Result{{Path: "a.md"}}}
	// While the first query is in flight a newer one supersedes it.
	s.onSearch = func() {
		s.onSearch = nil
		if _, err := e.Apply(context.Background(), testEntries(t), Query{Tags: []string{"home"}}); err != nil {
			t.Errorf("newer query failed: %v", err)
		}
	}
	e.searcher = s

	_, err := e.Apply(context.Background(), testEntries(t), Query{Text: "old"})
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
}

func TestQueryEmpty(t *testing.T) {
	if !(Query{}).Empty() {
		t.Error("zero query should be empty")
	}
	if !(Query{Text: "   "}).Empty() {
		t.Error("whitespace text should be empty")
	}
	if (Query{Tags: []string{"t"}}).Empty() {
		t.Error("tagged query is not empty")
	}
}
