// Package sentinel reacts to batches of content and config changes.
package sentinel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sitesentinel/internal/config"
	"sitesentinel/internal/deployment"
	"sitesentinel/internal/notify"
	"sitesentinel/internal/watcher"
)

// Pipeline builds and deploys the site for a config snapshot.
type Pipeline interface {
	Run(ctx context.Context, cfg *config.Config) *deployment.Run
}

// Injector writes front matter into an empty content file.
type Injector interface {
	Inject(path string) error
}

// Options wires a Sentinel to its collaborators.
type Options struct {
	ConfigPath string
	Store      *config.Store
	Pipeline   Pipeline
	Injector   Injector
	Notifier   notify.Notifier
	Logger     *slog.Logger
	// Stat defaults to os.Stat.
	Stat StatFunc
}

// Sentinel is the single consumer of watch batches. Batches are handled one
// at a time, so pipeline runs never overlap.
type Sentinel struct {
	configPath string
	store      *config.Store
	pipeline   Pipeline
	injector   Injector
	notifier   notify.Notifier
	logger     *slog.Logger
	stat       StatFunc

	watchErrors int
}

// New creates a Sentinel.
func New(opts Options) *Sentinel {
	configPath, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		configPath = filepath.Clean(opts.ConfigPath)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	stat := opts.Stat
	if stat == nil {
		stat = os.Stat
	}

	return &Sentinel{
		configPath: configPath,
		store:      opts.Store,
		pipeline:   opts.Pipeline,
		injector:   opts.Injector,
		notifier:   notifier,
		logger:     logger,
		stat:       stat,
	}
}

// Run consumes batches and watch errors until ctx is done or the batch
// channel is closed. Watch errors are logged and never stop the loop.
func (s *Sentinel) Run(ctx context.Context, batches <-chan watcher.Batch, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			s.HandleBatch(ctx, batch)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.handleWatchError(err)
		}
	}
}

// HandleBatch applies one batch: config reload first, then front matter for
// new empty files, then at most one pipeline run. It returns the pipeline
// run, or nil when nothing needed building.
func (s *Sentinel) HandleBatch(ctx context.Context, batch watcher.Batch) *deployment.Run {
	cfg := s.store.Current()
	plan := Classify(batch, s.configPath, cfg.Sentinel.Extension, s.stat)

	s.logger.Debug("Batch received",
		"events", len(batch),
		"reload", plan.Reload,
		"scaffold", len(plan.Scaffold),
		"build", plan.Build,
		"ignored", plan.Ignored)

	if plan.Reload {
		s.reload()
	}

	for _, path := range plan.Scaffold {
		if err := s.injector.Inject(path); err != nil {
			s.logger.Error("Front matter injection failed", "path", path, "error", err)
			s.notifier.Notify(notify.TitleSentinel, "Could not scaffold "+filepath.Base(path))
		}
	}

	if !plan.Build {
		return nil
	}
	return s.pipeline.Run(ctx, s.store.Current())
}

func (s *Sentinel) reload() {
	next, prev, err := s.store.Reload(s.configPath)
	if err != nil {
		s.logger.Error("Config reload failed, keeping previous configuration", "path", s.configPath, "error", err)
		s.notifier.Notify(notify.TitleConfigReload, reloadMessage(err))
		return
	}

	s.logger.Info("Configuration reloaded", "path", s.configPath)
	if fields := restartFields(prev, next); len(fields) > 0 {
		s.logger.Warn("Reloaded settings take effect after a restart", "fields", fields)
	}
}

func (s *Sentinel) handleWatchError(err error) {
	var watchErr *watcher.WatchError
	if !errors.As(err, &watchErr) {
		watchErr = &watcher.WatchError{Err: err}
	}
	s.watchErrors++
	s.logger.Error("Watch error", "error", watchErr, "count", s.watchErrors)
}

// WatchErrors returns how many watch errors the loop has seen.
func (s *Sentinel) WatchErrors() int {
	return s.watchErrors
}

func reloadMessage(err error) string {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Field != "" {
		return cfgErr.Field + ": " + cfgErr.Reason
	}
	return "Check log for details."
}

// restartFields lists settings that were read once at startup and changed.
func restartFields(prev, next *config.Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	var fields []string
	if prev.Sentinel.ContentDir != next.Sentinel.ContentDir {
		fields = append(fields, "sentinel.content_dir")
	}
	if prev.Sentinel.LogFile != next.Sentinel.LogFile {
		fields = append(fields, "sentinel.log_file")
	}
	if prev.Sentinel.Debounce != next.Sentinel.Debounce {
		fields = append(fields, "sentinel.debounce")
	}
	if prev.Sentinel.NotifyBurst != next.Sentinel.NotifyBurst ||
		prev.Sentinel.NotifyInterval != next.Sentinel.NotifyInterval {
		fields = append(fields, "sentinel.notify")
	}
	return fields
}
