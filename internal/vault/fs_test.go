package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/veleda/skald/internal/apperr"
	"github.com/veleda/skald/internal/models"
)

func testFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func seed(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList_NotesMediaAndFolders(t *testing.T) {
	dir, fs := testFS(t)
	seed(t, dir, "inbox.md", "---\ntags: [Quick]\n---\nhello")
	seed(t, dir, "proj/plan.md", "# Plan")
	seed(t, dir, "proj/diagram.png", "\x89PNG")
	seed(t, dir, ".hidden/secret.md", "skip me")
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, folders, err := fs.List()
	if err != nil {
		t.Fatal(err)
	}

	byPath := map[string]models.Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	if len(byPath) != 3 {
		t.Fatalf("entries = %v", entries)
	}
	if byPath["inbox.md"].Tags[0] != "quick" {
		t.Errorf("note tags not parsed: %+v", byPath["inbox.md"])
	}
	if byPath["proj/diagram.png"].Kind != models.KindImage {
		t.Errorf("media kind = %v", byPath["proj/diagram.png"].Kind)
	}

	hasFolder := func(p string) bool {
		for _, f := range folders {
			if f == p {
				return true
			}
		}
		return false
	}
	if !hasFolder("proj") || !hasFolder("empty") {
		t.Errorf("folders = %v", folders)
	}
	if hasFolder(".hidden") {
		t.Errorf("hidden folder listed: %v", folders)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	_, fs := testFS(t)

	if err := fs.Write("deep/nested/note.md", []byte("content")); err != nil {
		t.Fatal(err)
	}
	data, err := fs.Read("deep/nested/note.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("read = %q", data)
	}
}

func TestRead_NotFound(t *testing.T) {
	_, fs := testFS(t)
	_, err := fs.Read("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWrite_RejectsInvalidNames(t *testing.T) {
	_, fs := testFS(t)

	for _, path := range []string{"../escape.md", "bad|name.md", "CON.md", " edge.md"} {
		err := fs.Write(path, []byte("x"))
		if !apperr.IsValidation(err) {
			t.Errorf("Write(%q) err = %v, want validation error", path, err)
		}
	}
}

func TestMove(t *testing.T) {
	_, fs := testFS(t)
	if err := fs.Write("a.md", []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := fs.Move("a.md", "sub/b.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Read("a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("source still exists after move")
	}
	if _, err := fs.Read("sub/b.md"); err != nil {
		t.Errorf("destination unreadable: %v", err)
	}
}

func TestMove_RefusesOverwrite(t *testing.T) {
	_, fs := testFS(t)
	if err := fs.Write("a.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write("b.md", []byte("y")); err != nil {
		t.Fatal(err)
	}

	if err := fs.Move("a.md", "b.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestDeleteFolder(t *testing.T) {
	dir, fs := testFS(t)
	seed(t, dir, "gone/a.md", "x")
	seed(t, dir, "gone/sub/b.md", "y")

	if err := fs.DeleteFolder("gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Read("gone/a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("folder contents survived")
	}

	if err := fs.DeleteFolder("never-was"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing folder err = %v", err)
	}
}

func TestSaveMedia_CollisionGetsSuffix(t *testing.T) {
	_, fs := testFS(t)

	first, err := fs.SaveMedia("assets", "pic.png", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	if first != "assets/pic.png" {
		t.Fatalf("first = %q", first)
	}

	second, err := fs.SaveMedia("assets", "pic.png", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatal("collision overwrote the existing file")
	}
	if !strings.HasPrefix(second, "assets/pic-") || !strings.HasSuffix(second, ".png") {
		t.Errorf("second = %q, want suffixed name", second)
	}

	data, err := fs.Read(first)
	if err != nil || string(data) != "one" {
		t.Errorf("original content = %q, %v", data, err)
	}
}
