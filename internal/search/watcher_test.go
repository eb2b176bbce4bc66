package search

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind+":"+path)
}

func (l *eventLog) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

func TestWatcher_NewNoteIndexed(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	go Watch(ctx, db, store, dir, discard(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.AllChecksums()
		return cs["new.md"] != ""
	}, "new note not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new.md")
	}, "expected created:new.md callback")
}

func TestWatcher_MediaFiresCallbackWithoutIndexing(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	go Watch(ctx, db, store, dir, discard(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "pic.png"), []byte("\x89PNG"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:pic.png")
	}, "expected created:pic.png callback")

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 0 {
		t.Errorf("media ended up in the search index: %v", cs)
	}
}

func TestWatcher_RemovedNoteDeindexed(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)

	path := filepath.Join(dir, "gone.md")
	if err := os.WriteFile(path, []byte("soon gone"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, discard()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, dir, discard(), nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.AllChecksums()
		_, ok := cs["gone.md"]
		return !ok
	}, "removed note still indexed")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	db := testDB(t)
	dir, store := testVault(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, dir, discard(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to pick up the new directory before
	// writing into it.
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "inner.md"), []byte("deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.AllChecksums()
		return cs["sub/inner.md"] != ""
	}, "note in new dir not indexed")
}
