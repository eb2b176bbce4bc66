// Package vault implements the note collection's storage backend: a
// directory tree of Markdown notes and media files addressed by
// '/'-separated paths relative to the vault root.
package vault

import "github.com/veleda/skald/internal/models"

// Provider is the interface the rest of the service talks to. All paths
// are relative to the vault root and validated before touching disk.
type Provider interface {
	// List returns every entry in the vault (notes and media) plus the
	// paths of all folders, including empty ones.
	List() (entries []models.Entry, folders []string, err error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent folders.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath. Fails if newPath exists.
	Move(oldPath, newPath string) error
	// MkFolder creates a folder (and any missing parents).
	MkFolder(path string) error
	// DeleteFolder removes a folder and everything under it.
	DeleteFolder(path string) error
	// SaveMedia stores an uploaded file under dir, de-duplicating the
	// filename on collision, and returns the final vault path.
	SaveMedia(dir, filename string, content []byte) (string, error)
}
