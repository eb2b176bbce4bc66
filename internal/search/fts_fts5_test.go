//go:build sqlite_fts5

package search

import (
	"context"
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "fts.md",
		Title:     "FTS Note",
		Checksum:  "f1",
		Tags:      []string{"search"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "Skald provides powerful full-text search across notes."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	results, err := db.Search(context.Background(), "powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "fts.md" {
		t.Fatalf("results = %+v", results)
	}
	// FTS5 snippet carries the highlight markers.
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "g", UpdatedAt: time.Now()}, "vanishing content")
	_ = db.DeleteNote("gone.md")

	results, _ := db.Search(context.Background(), "vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted note still in FTS index")
		}
	}
}
