// Package watcher turns fsnotify events into debounced batches.
package watcher

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce = 500 * time.Millisecond
	batchBuffer     = 100
	errorBuffer     = 16
)

// Watcher watches directory trees and single files and delivers their
// changes as batches, one per debounce window.
type Watcher struct {
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mutex sync.Mutex
	roots []string            // recursively watched trees
	files map[string]struct{} // individually watched files
	dirs  map[string]struct{} // directories registered with fsnotify

	batches   chan Batch
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Watcher and starts its event loop.
func New(options Options) (*Watcher, error) {
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Err: err}
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		fs:       source,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		batches:  make(chan Batch, batchBuffer),
		errors:   make(chan error, errorBuffer),
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Batches delivers debounced batches. It is closed by Close.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Errors delivers *WatchError values. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// AddRecursive watches root and every directory below it. Directories
// created later are picked up automatically.
func (w *Watcher) AddRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return &WatchError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &WatchError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return &WatchError{Path: abs, Err: errors.New("not a directory")}
	}

	w.mutex.Lock()
	w.roots = append(w.roots, abs)
	w.mutex.Unlock()

	if _, err := w.addTree(abs); err != nil {
		w.mutex.Lock()
		w.roots = w.roots[:len(w.roots)-1]
		w.mutex.Unlock()
		return err
	}
	return nil
}

// AddFile watches a single file. The parent directory is watched so the file
// survives editors that save by renaming over it.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &WatchError{Path: path, Err: err}
	}
	if err := w.addDir(filepath.Dir(abs)); err != nil {
		return err
	}

	w.mutex.Lock()
	w.files[abs] = struct{}{}
	w.mutex.Unlock()
	return nil
}

// Close stops the watcher and closes the Batches and Errors channels.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		close(w.batches)
		close(w.errors)
	})
	return err
}

func (w *Watcher) addDir(dir string) error {
	w.mutex.Lock()
	_, watched := w.dirs[dir]
	w.mutex.Unlock()
	if watched {
		return nil
	}

	if err := w.fs.Add(dir); err != nil {
		return &WatchError{Path: dir, Err: err}
	}

	w.mutex.Lock()
	w.dirs[dir] = struct{}{}
	w.mutex.Unlock()
	w.logger.Debug("Watch added", "path", dir)
	return nil
}

// addTree watches dir and its subdirectories and returns the regular files
// found along the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// A subdirectory vanished mid-walk
			return nil
		}
		if entry.IsDir() {
			return w.addDir(path)
		}
		if entry.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		var watchErr *WatchError
		if errors.As(err, &watchErr) {
			return nil, watchErr
		}
		return nil, &WatchError{Path: dir, Err: err}
	}
	return files, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	pending := newBatcher()
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event, pending)
			if pending.len() > 0 && timerC == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.reportError(&WatchError{Err: err})

		case <-timerC:
			timerC = nil
			batch := pending.flush()
			select {
			case w.batches <- batch:
			case <-w.done:
				return
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, pending *batcher) {
	// Permission and timestamp changes carry no content
	if event.Op == fsnotify.Chmod {
		return
	}

	path := filepath.Clean(event.Name)
	inTree, isFile := w.match(path)
	if !inTree && !isFile {
		return
	}

	pending.add(Event{Path: path, Op: event.Op})

	if inTree && event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			files, err := w.addTree(path)
			if err != nil {
				w.reportError(err)
			}
			// Files written before the watch was in place produce no events
			for _, file := range files {
				pending.add(Event{Path: file, Op: fsnotify.Create})
			}
		}
	}
}

// match reports whether path lies under a recursive root and whether it is
// an individually watched file.
func (w *Watcher) match(path string) (inTree, isFile bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	_, isFile = w.files[path]
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			inTree = true
			break
		}
	}
	return inTree, isFile
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("Watch error dropped", "error", err)
	}
}
