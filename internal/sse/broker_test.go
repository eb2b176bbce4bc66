package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func countFrames(ch chan []byte, substr string, settle time.Duration) int {
	time.Sleep(settle)
	n := 0
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), substr) {
				n++
			}
		default:
			return n
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := New(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestNoteEvent_CarriesFolderAndKind(t *testing.T) {
	b := New(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("created", "projects/Roadmap.md")
	s := recv(t, ch)
	if !strings.Contains(s, "event: note.created") {
		t.Errorf("missing event type in %q", s)
	}
	for _, want := range []string{`"path":"projects/Roadmap.md"`, `"folder":"projects"`, `"kind":"note"`} {
		if !strings.Contains(s, want) {
			t.Errorf("payload %q missing %s", s, want)
		}
	}

	b.PublishNoteEvent("created", "pic.png")
	s = recv(t, ch)
	if !strings.Contains(s, `"folder":""`) || !strings.Contains(s, `"kind":"image"`) {
		t.Errorf("root media payload = %q", s)
	}

	b.PublishNoteEvent("deleted", "a/b.md")
	if s = recv(t, ch); !strings.Contains(s, "event: note.deleted") {
		t.Errorf("missing deleted event in %q", s)
	}
}

func TestPublishRebuild_CoalescesBurst(t *testing.T) {
	b := New(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Leading edge fires at once; the two calls inside the window fold
	// into a single trailing event when the window expires.
	b.PublishRebuild()
	b.PublishRebuild()
	b.PublishRebuild()

	if got := countFrames(ch, "index.rebuilt", 50*time.Millisecond); got != 1 {
		t.Fatalf("rebuild events inside window = %d, want 1", got)
	}
	if got := countFrames(ch, "index.rebuilt", 400*time.Millisecond); got != 1 {
		t.Errorf("trailing rebuild events = %d, want 1", got)
	}
}

func TestPublishRebuild_QuietPeriodsFireImmediately(t *testing.T) {
	b := New(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRebuild()
	time.Sleep(120 * time.Millisecond)
	b.PublishRebuild()

	if got := countFrames(ch, "index.rebuilt", 50*time.Millisecond); got != 2 {
		t.Errorf("spaced rebuilds = %d, want 2", got)
	}
}

func TestNoteEvents_DoNotEmitRebuild(t *testing.T) {
	b := New(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("created", "a.md")
	b.PublishNoteEvent("updated", "a.md")

	if got := countFrames(ch, "index.rebuilt", 100*time.Millisecond); got != 0 {
		t.Errorf("note events produced %d rebuild frames, want 0", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := New(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishNoteEvent("updated", "x.md")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "retry: 3000") {
		t.Errorf("handler output missing reconnect hint: %q", body)
	}
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	b := New(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overflow the client buffer (capacity 64); the loop must keep
	// running rather than block on the stalled receiver.
	for i := 0; i < 70; i++ {
		b.PublishNoteEvent("updated", "x.md")
	}
	if b.ClientCount() != 1 {
		t.Error("broker loop stalled on slow client")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := New(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.PublishNoteEvent("updated", "x.md")
	b.PublishRebuild()
	b.Close()
}
