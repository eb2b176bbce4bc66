package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/veleda/skald/internal/apperr"
	"github.com/veleda/skald/internal/models"
	"github.com/veleda/skald/internal/parser"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a provider rooted at the given directory. The directory
// must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory, for the change watcher.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", &apperr.ValidationError{Kind: apperr.ValidationTraversal, Value: rel}
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", &apperr.ValidationError{Kind: apperr.ValidationTraversal, Value: rel}
	}
	return abs, nil
}

// List walks the vault and returns every note and media entry plus all
// folder paths. Hidden files and folders (dot-prefixed) are skipped.
// Note tags come from a full parse of each note body; media entries
// carry size and modification time only.
func (f *FS) List() ([]models.Entry, []string, error) {
	var entries []models.Entry
	var folders []string

	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == f.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			folders = append(folders, rel)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		var tags []string
		if models.IsNotePath(rel) {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			tags = parser.Parse(data).Tags
		}
		entries = append(entries, models.NewEntry(rel, info.ModTime(), info.Size(), tags))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("vault: list: %w", err)
	}
	return entries, folders, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("vault: read %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (f *FS) Write(path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".skald-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: delete %s: %w", path, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: delete %s: %w", path, err)
	}
	return nil
}

// Move renames a file within the vault. The destination must not exist.
func (f *FS) Move(oldPath, newPath string) error {
	if err := ValidatePath(newPath); err != nil {
		return err
	}
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absNew); err == nil {
		return fmt.Errorf("vault: move to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: move %s: %w", oldPath, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: move: %w", err)
	}
	return nil
}

// MkFolder creates a folder and any missing parents.
func (f *FS) MkFolder(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir %s: %w", path, err)
	}
	return nil
}

// DeleteFolder removes a folder and everything under it.
func (f *FS) DeleteFolder(path string) error {
	if path == "" {
		return &apperr.ValidationError{Kind: apperr.ValidationEmpty, Value: path}
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: delete folder %s: %w", path, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: stat folder: %w", err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("vault: delete folder %s: %w", path, err)
	}
	return nil
}

// SaveMedia stores an upload under dir. A filename collision gets a
// short random suffix before the extension instead of overwriting.
func (f *FS) SaveMedia(dir, filename string, content []byte) (string, error) {
	if err := ValidateName(filename); err != nil {
		return "", err
	}
	if dir != "" {
		if err := ValidatePath(dir); err != nil {
			return "", err
		}
	}
	rel := filename
	if dir != "" {
		rel = dir + "/" + filename
	}
	abs, err := f.safePath(rel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		ext := filepath.Ext(filename)
		stem := strings.TrimSuffix(filename, ext)
		rel = stem + "-" + uuid.NewString()[:8] + ext
		if dir != "" {
			rel = dir + "/" + rel
		}
	}
	if err := f.Write(rel, content); err != nil {
		return "", err
	}
	return rel, nil
}
