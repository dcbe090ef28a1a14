package watcher

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestBatcherCoalescesEvents(t *testing.T) {
	b := newBatcher()

	if b.add(Event{Path: "a.md", Op: fsnotify.Create}) {
		t.Fatal("expected first event not to be coalesced")
	}
	b.add(Event{Path: "b.md", Op: fsnotify.Write})
	if !b.add(Event{Path: "a.md", Op: fsnotify.Write}) {
		t.Fatal("expected repeat event to be coalesced")
	}

	batch := b.flush()
	if len(batch) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(batch), batch)
	}
	if batch[0].Path != "a.md" || batch[1].Path != "b.md" {
		t.Errorf("expected first-occurrence order, got %v", batch.Paths())
	}
	if !batch[0].Op.Has(fsnotify.Create) || !batch[0].Op.Has(fsnotify.Write) {
		t.Errorf("expected merged ops, got %v", batch[0].Op)
	}
}

func TestBatcherFlushStartsNewWindow(t *testing.T) {
	b := newBatcher()
	b.add(Event{Path: "a.md", Op: fsnotify.Write})
	_ = b.flush()

	if b.len() != 0 {
		t.Fatalf("expected empty batcher after flush, got %d", b.len())
	}
	if b.add(Event{Path: "a.md", Op: fsnotify.Write}) {
		t.Error("path from previous window should not be coalesced")
	}
}
