package noteindex

import (
	"testing"
	"time"

	"github.com/veleda/skald/internal/models"
)

func entry(t *testing.T, path string) models.Entry {
	t.Helper()
	return models.NewEntry(path, time.Now(), 0, nil)
}

func buildIndex(t *testing.T, paths ...string) *Index {
	t.Helper()
	entries := make([]models.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, entry(t, p))
	}
	idx := New()
	idx.Build(entries)
	return idx
}

func TestExists_SuffixAndCaseCombinations(t *testing.T) {
	idx := buildIndex(t, "projects/Roadmap.md")

	// Every (suffix x case) combination of path and name must resolve.
	targets := []string{
		"projects/Roadmap.md",
		"projects/Roadmap",
		"projects/roadmap.md",
		"projects/roadmap",
		"PROJECTS/ROADMAP.MD",
		"Roadmap.md",
		"Roadmap",
		"roadmap",
		"ROADMAP.MD",
	}
	for _, target := range targets {
		if !idx.Exists(target) {
			t.Errorf("Exists(%q) = false, want true", target)
		}
	}
}

func TestExists_LeadingSlashTargets(t *testing.T) {
	idx := buildIndex(t, "projects/Roadmap.md")

	// Targets authored with a leading slash resolve against the same
	// end-path set without doubling the separator.
	for _, target := range []string{
		"/roadmap",
		"/Roadmap.md",
		"/projects/roadmap",
		"/projects/Roadmap.md",
	} {
		if !idx.Exists(target) {
			t.Errorf("Exists(%q) = false, want true", target)
		}
	}
	if idx.Exists("/projects") {
		t.Error("folder-only target must not match")
	}
	if idx.Exists("/oadmap") {
		t.Error("partial segment with leading slash must not match")
	}
}

func TestExists_EndPathMatch(t *testing.T) {
	idx := buildIndex(t, "a/b/Deep Note.md")

	if !idx.Exists("b/Deep Note") {
		t.Error("suffix path should match")
	}
	if !idx.Exists("b/deep note.md") {
		t.Error("lowercase suffix path with extension should match")
	}
	if idx.Exists("eep Note") {
		t.Error("partial segment must not match")
	}
}

func TestExists_Misses(t *testing.T) {
	idx := buildIndex(t, "notes/One.md")

	for _, target := range []string{"", "  ", "Two", "notes/Two.md", "One.txt"} {
		if idx.Exists(target) {
			t.Errorf("Exists(%q) = true, want false", target)
		}
	}
}

func TestExists_EmptyBeforeFirstBuild(t *testing.T) {
	idx := New()
	if idx.Exists("anything") {
		t.Error("empty index should report false")
	}
}

func TestResolveMedia_CaseInsensitiveFirstWins(t *testing.T) {
	idx := New()
	idx.Build([]models.Entry{
		entry(t, "assets/Photo.PNG"),
		entry(t, "other/photo.png"), // same lowercase filename, later in list
		entry(t, "clips/demo.mp4"),
	})

	if got := idx.ResolveMedia("photo.png"); got != "assets/Photo.PNG" {
		t.Errorf("ResolveMedia = %q, want first registration to win", got)
	}
	if got := idx.ResolveMedia("PHOTO.png"); got != "assets/Photo.PNG" {
		t.Errorf("case-insensitive lookup = %q", got)
	}
	if got := idx.ResolveMedia("demo.mp4"); got != "clips/demo.mp4" {
		t.Errorf("ResolveMedia(demo.mp4) = %q", got)
	}
	if got := idx.ResolveMedia("missing.png"); got != "" {
		t.Errorf("miss should return empty, got %q", got)
	}
}

func TestBuild_ReplacesWholesale(t *testing.T) {
	idx := buildIndex(t, "old.md")
	idx.Build([]models.Entry{entry(t, "new.md")})

	if idx.Exists("old") {
		t.Error("stale entry survived rebuild")
	}
	if !idx.Exists("new") {
		t.Error("new entry missing after rebuild")
	}
}

func TestGeneration_IncrementsPerBuild(t *testing.T) {
	idx := New()
	before := idx.Generation()
	idx.Build(nil)
	idx.Build(nil)
	if got := idx.Generation(); got != before+2 {
		t.Errorf("Generation = %d, want %d", got, before+2)
	}
}
