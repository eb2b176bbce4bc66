// Package models defines the domain types for Skald.
package models

import (
	"path"
	"strings"
	"time"
)

// Kind discriminates the entry variants. Every consumer switches on it
// exhaustively instead of sniffing extensions ad hoc.
type Kind int

const (
	KindNote Kind = iota
	KindImage
	KindAudio
	KindVideo
	KindDocument
)

// String returns the lowercase kind name used in JSON payloads and logs.
func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so Kind serialises as
// its name rather than an integer.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "image":
		*k = KindImage
	case "audio":
		*k = KindAudio
	case "video":
		*k = KindVideo
	case "document":
		*k = KindDocument
	default:
		*k = KindNote
	}
	return nil
}

// IsMedia reports whether the kind is any non-note variant.
func (k Kind) IsMedia() bool { return k != KindNote }

// Entry is one file in the vault: a Markdown note or a media file.
// Entries are immutable by replacement: the collection owner swaps the
// whole slice on reload and only patches the open note's Modified/Size/
// Tags after a save.
type Entry struct {
	// Path is the unique key, '/'-separated and case-preserving,
	// relative to the vault root (e.g. "projects/Roadmap.md").
	Path string `json:"path"`
	// Name is the stem without extension for notes, and the filename
	// with extension for media.
	Name string `json:"name"`
	// Folder is the parent path, empty for vault-root entries.
	Folder string `json:"folder"`
	Kind   Kind   `json:"kind"`
	// Tags is the note's lowercase tag set; always empty for media.
	Tags     []string  `json:"tags,omitempty"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// HasTag reports whether the entry carries the given (lowercase) tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

var mediaKinds = map[string]Kind{
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".svg":  KindImage,
	".bmp":  KindImage,
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".m4a":  KindAudio,
	".flac": KindAudio,
	".mp4":  KindVideo,
	".webm": KindVideo,
	".mov":  KindVideo,
	".mkv":  KindVideo,
	".pdf":  KindDocument,
}

// KindForPath classifies a vault path by extension. ".md" files are
// notes; unknown extensions fall back to KindDocument so nothing in the
// vault is silently invisible.
func KindForPath(p string) Kind {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".md" {
		return KindNote
	}
	if k, ok := mediaKinds[ext]; ok {
		return k
	}
	return KindDocument
}

// IsNotePath reports whether the path names a Markdown note.
func IsNotePath(p string) bool {
	return strings.EqualFold(path.Ext(p), ".md")
}

// NewEntry builds an Entry for a vault path, deriving Name, Folder and
// Kind from the path itself.
func NewEntry(vaultPath string, modified time.Time, size int64, tags []string) Entry {
	kind := KindForPath(vaultPath)
	base := path.Base(vaultPath)
	name := base
	if kind == KindNote {
		name = strings.TrimSuffix(base, path.Ext(base))
		tags = lowercaseTags(tags)
	} else {
		tags = nil
	}
	folder := path.Dir(vaultPath)
	if folder == "." {
		folder = ""
	}
	return Entry{
		Path:     vaultPath,
		Name:     name,
		Folder:   folder,
		Kind:     kind,
		Tags:     tags,
		Modified: modified,
		Size:     size,
	}
}

func lowercaseTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
