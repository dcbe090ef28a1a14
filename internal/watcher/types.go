package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is one debounced change to a path.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Batch is every change seen during one debounce window, in order of first
// occurrence. A path appears at most once.
type Batch []Event

// Paths returns the paths in the batch.
func (b Batch) Paths() []string {
	paths := make([]string, len(b))
	for i, event := range b {
		paths[i] = event.Path
	}
	return paths
}

// WatchError reports a failure of the underlying notification mechanism.
// Path is empty when the failure is not tied to a single path.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch: %v", e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// Options controls watcher behavior.
type Options struct {
	Logger   *slog.Logger
	Debounce time.Duration
}
