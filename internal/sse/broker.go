// Package sse streams vault change events to connected clients over
// Server-Sent Events. Clients use note.* events to patch their local
// entry list and folder tree in place, and index.rebuilt as the cue to
// refetch anything derived server-side (tag counts, rendered previews).
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sync/atomic"
	"time"

	"github.com/veleda/skald/internal/models"
)

// NoteEvent is the payload of note.created / note.updated /
// note.deleted events. Folder and Kind are included so a client can
// patch its folder tree without a round trip per event.
type NoteEvent struct {
	Path   string `json:"path"`
	Folder string `json:"folder"`
	Kind   string `json:"kind"`
}

type subscribeCmd struct{ ch chan []byte }
type unsubscribeCmd struct{ ch chan []byte }
type noteCmd struct {
	kind string
	path string
}
type rebuildCmd struct{}
type countCmd struct{ resp chan int }

// Broker owns the set of connected clients and the rebuild
// notification throttle. A single loop goroutine holds all mutable
// state; public methods submit commands over one channel, so the type
// needs no mutex.
type Broker struct {
	rebuildMin time.Duration

	cmds    chan any
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates a broker. rebuildThrottle bounds how often index.rebuilt
// is emitted; bursts of rebuilds collapse to one leading and one
// trailing event per window.
func New(rebuildThrottle time.Duration) *Broker {
	if rebuildThrottle <= 0 {
		rebuildThrottle = 2 * time.Second
	}
	b := &Broker{
		rebuildMin: rebuildThrottle,
		cmds:       make(chan any, 256),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func frame(eventType string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload))
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	// Rebuild throttle state. lastRebuild marks the leading edge of the
	// current window; rebuildPending records that at least one rebuild
	// arrived inside the window and must still be delivered when the
	// timer fires, so the final rebuild of a burst is never lost.
	var (
		lastRebuild    time.Time
		rebuildPending bool
		rebuildTimer   *time.Timer
		rebuildC       <-chan time.Time
	)

	send := func(raw []byte) {
		if raw == nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall every other one.
			}
		}
	}

	emitRebuild := func() {
		lastRebuild = time.Now()
		rebuildPending = false
		send(frame("index.rebuilt", struct{}{}))
	}

	for {
		select {
		case <-b.stopCh:
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case <-rebuildC:
			rebuildC = nil
			rebuildTimer = nil
			if rebuildPending {
				emitRebuild()
			}

		case cmd := <-b.cmds:
			switch c := cmd.(type) {
			case subscribeCmd:
				clients[c.ch] = struct{}{}

			case unsubscribeCmd:
				if _, ok := clients[c.ch]; ok {
					delete(clients, c.ch)
					close(c.ch)
				}

			case noteCmd:
				folder := path.Dir(c.path)
				if folder == "." {
					folder = ""
				}
				send(frame("note."+c.kind, NoteEvent{
					Path:   c.path,
					Folder: folder,
					Kind:   models.KindForPath(c.path).String(),
				}))

			case rebuildCmd:
				remaining := b.rebuildMin - time.Since(lastRebuild)
				if remaining <= 0 {
					emitRebuild()
					break
				}
				rebuildPending = true
				if rebuildTimer == nil {
					rebuildTimer = time.NewTimer(remaining)
					rebuildC = rebuildTimer.C
				}

			case countCmd:
				c.resp <- len(clients)
			}
		}
	}
}

// submit enqueues a command unless the broker has stopped.
func (b *Broker) submit(cmd any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.cmds <- cmd:
	case <-b.stopped:
	}
}

// Close stops the loop and closes every client channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its receive channel. The
// channel is closed on Unsubscribe or broker Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.cmds <- subscribeCmd{ch: ch}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.submit(unsubscribeCmd{ch: ch})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.cmds <- countCmd{resp: resp}:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishNoteEvent broadcasts a single entry change. kind is one of
// "created", "updated", "deleted".
func (b *Broker) PublishNoteEvent(kind, path string) {
	b.submit(noteCmd{kind: kind, path: path})
}

// PublishRebuild broadcasts index.rebuilt, throttled: the first call
// in a quiet period goes out immediately, further calls inside the
// window coalesce into one trailing event when the window expires.
func (b *Broker) PublishRebuild() {
	b.submit(rebuildCmd{})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	// Ask clients to back off a little before reconnecting; a reload
	// storm after a server restart defeats the rebuild throttle.
	_, _ = fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
