// Package testutil provides shared test helpers for setting up vaults
// and search databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/veleda/skald/internal/search"
	"github.com/veleda/skald/internal/vault"
)

// TestDB creates a temporary SQLite search database that is
// automatically cleaned up.
func TestDB(t *testing.T) *search.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "skald-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := search.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with an FS provider.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFile places a file into the vault directory, creating parents.
func WriteFile(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	abs := filepath.Join(vaultDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
