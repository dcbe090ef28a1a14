// Package deployment builds the site and ships it: a build step followed by
// a git publish and an rsync upload running side by side.
package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"sitesentinel/internal/config"
	"sitesentinel/internal/notify"
	"sitesentinel/internal/retry"
	"sitesentinel/pkg/cmdutil"
)

// Run is the outcome of one pipeline execution.
type Run struct {
	ID         string
	Started    time.Time
	Duration   time.Duration
	BuildErr   error
	PublishErr error
	SyncErr    error
	// Committed is set when the publish step pushed a new commit.
	Committed bool
}

// OK reports whether every stage succeeded.
func (r *Run) OK() bool {
	return r.BuildErr == nil && r.PublishErr == nil && r.SyncErr == nil
}

// Err joins the stage failures, or returns nil.
func (r *Run) Err() error {
	var errs []error
	if r.BuildErr != nil {
		errs = append(errs, fmt.Errorf("build: %w", r.BuildErr))
	}
	if r.PublishErr != nil {
		errs = append(errs, fmt.Errorf("publish: %w", r.PublishErr))
	}
	if r.SyncErr != nil {
		errs = append(errs, fmt.Errorf("sync: %w", r.SyncErr))
	}
	return errors.Join(errs...)
}

// Pipeline runs build, publish and sync for a site.
type Pipeline struct {
	runner   Runner
	notifier notify.Notifier
	logger   *slog.Logger

	// Serializes runs so two builds never write the output directory at once
	mu sync.Mutex
}

// NewPipeline creates a pipeline that executes commands through runner.
func NewPipeline(runner Runner, notifier notify.Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes the pipeline once against cfg. Failures are logged, notified
// and recorded on the returned Run; they never abort the caller.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) *Run {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	logger := p.logger.With("run_id", run.ID)
	logger.Info("Pipeline started", "site_root", cfg.SiteRoot)

	if err := p.build(ctx, logger, cfg); err != nil {
		run.BuildErr = err
		run.Duration = time.Since(run.Started)
		logger.Error("Hugo build failed", "error", err, "duration", run.Duration)
		p.notifier.Notify(notify.TitleBuild, "Check log for details.")
		return run
	}

	policy := retry.Policy{
		MaxRetries: cfg.Retries(),
		Delay:      cfg.Sentinel.RetryDelay.Duration,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		run.PublishErr = catch("publish", logger, func() error {
			return retry.Do(ctx, logger, policy, "git-publish", func() error {
				committed, err := Publish(ctx, p.runner, cfg.SiteRoot)
				run.Committed = committed
				return err
			})
		})
	})
	wg.Go(func() {
		run.SyncErr = catch("sync", logger, func() error {
			return retry.Do(ctx, logger, policy, "rsync", func() error {
				return Sync(ctx, p.runner, cfg)
			})
		})
	})
	wg.Wait()

	run.Duration = time.Since(run.Started)

	if run.PublishErr != nil {
		logger.Error("Git publish failed", "error", run.PublishErr)
		p.notifier.Notify(notify.TitlePublish, summarize(run.PublishErr))
	} else if run.Committed {
		logger.Info("Changes committed and pushed")
	} else {
		logger.Info("Nothing to commit")
	}

	if run.SyncErr != nil {
		logger.Error("Remote sync failed", "error", run.SyncErr)
		p.notifier.Notify(notify.TitleDeploy, summarize(run.SyncErr))
	} else {
		logger.Info("Remote sync complete", "target", cfg.Deploy.SSHTarget+":"+cfg.Deploy.DestDir)
	}

	if run.OK() {
		logger.Info("Pipeline finished", "duration", run.Duration)
	} else {
		logger.Warn("Pipeline finished with errors", "duration", run.Duration)
	}
	return run
}

func (p *Pipeline) build(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	command, err := cfg.BuildCommand()
	if err != nil {
		return err
	}

	logger.Info("Building site", "command", cmdutil.FormatCommand(command))
	start := time.Now()
	if _, err := p.runner.Run(ctx, cfg.SiteRoot, command); err != nil {
		return err
	}
	logger.Info("Build complete", "duration", time.Since(start))
	return nil
}

// catch runs fn and turns a panic into an error for that branch alone.
func catch(branch string, logger *slog.Logger, fn func() error) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = fn() })

	if r := pc.Recovered(); r != nil {
		logger.Error("Pipeline branch panicked", "branch", branch, "panic", r.Value, "stack", string(r.Stack))
		return fmt.Errorf("%s panicked: %v", branch, r.Value)
	}
	return err
}

// summarize shortens an error to a single line fit for a notification.
func summarize(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	const limit = 180
	if len(msg) > limit {
		cut := 0
		for cut < len(msg) {
			_, size := utf8.DecodeRuneInString(msg[cut:])
			if cut+size > limit {
				break
			}
			cut += size
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
