package search

import (
	"log/slog"

	"github.com/veleda/skald/internal/checksum"
	"github.com/veleda/skald/internal/models"
	"github.com/veleda/skald/internal/parser"
	"github.com/veleda/skald/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
//
// Media entries are never indexed; the filter engine matches them only
// through tags, which they do not carry.
func Sync(db *DB, store vault.Provider, logger *slog.Logger) error {
	entries, _, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Kind != models.KindNote {
			continue
		}
		disk[e.Path] = struct{}{}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[e.Path] == checksum.Sum(data) {
			continue
		}
		if err := indexNote(db, e.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", e.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Reindex parses a single note's content and upserts it.
func Reindex(db *DB, path string, data []byte) error {
	return indexNote(db, path, data)
}

// indexNote parses data and upserts it into the DB.
func indexNote(db *DB, path string, data []byte) error {
	res := parser.Parse(data)

	row := NoteRow{
		Path:     path,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
		Tags:     res.Tags,
	}
	return db.UpsertNote(row, res.Body)
}
