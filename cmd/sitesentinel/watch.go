package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sitesentinel/internal/config"
	"sitesentinel/internal/deployment"
	"sitesentinel/internal/frontmatter"
	"sitesentinel/internal/notify"
	"sitesentinel/internal/security"
	"sitesentinel/internal/sentinel"
	"sitesentinel/internal/watcher"
	"sitesentinel/pkg/fileutil"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the content directory and publish on change",
	Long: `Watch the configured content directory and site.toml.

Empty content files are given front matter, other changes trigger a build and deploy,
and edits to site.toml are applied without a restart.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, logFileHandle, err := setupLogging(cfg.Sentinel.LogFile, logLevel, logFormat)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	if !fileutil.DirExists(cfg.Sentinel.ContentDir) {
		logger.Error("Content directory not found", "path", cfg.Sentinel.ContentDir)
		return fmt.Errorf("content directory not found: %s", cfg.Sentinel.ContentDir)
	}

	if key, err := cfg.SSHKeyPath(); err != nil {
		logger.Warn("Cannot resolve ssh key", "error", err)
	} else if err := security.CheckSSHKey(key); err != nil {
		logger.Warn("Remote sync is likely to fail", "error", err)
	}

	logger.Info("Starting Site Sentinel",
		"version", version,
		"config", cfg.Path,
		"content_dir", cfg.Sentinel.ContentDir,
		"target", cfg.Deploy.SSHTarget+":"+cfg.Deploy.DestDir)

	w, err := watcher.New(watcher.Options{
		Logger:   logger,
		Debounce: cfg.Sentinel.Debounce.Duration,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.AddRecursive(cfg.Sentinel.ContentDir); err != nil {
		logger.Error("Failed to watch content directory", "error", err)
		return err
	}
	if err := w.AddFile(cfg.Path); err != nil {
		logger.Error("Failed to watch config file", "error", err)
		return err
	}

	notifier := notify.NewDesktop(logger, cfg.Sentinel.NotifyBurst, cfg.Sentinel.NotifyInterval.Duration)
	pipeline := deployment.NewPipeline(deployment.NewExecutor(logger), notifier, logger)

	s := sentinel.New(sentinel.Options{
		ConfigPath: cfg.Path,
		Store:      config.NewStore(cfg),
		Pipeline:   pipeline,
		Injector:   frontmatter.NewInjector(logger, cfg.SiteRoot),
		Notifier:   notifier,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Watching for changes", "debounce", cfg.Sentinel.Debounce.Duration)
	err = s.Run(ctx, w.Batches(), w.Errors())
	logger.Info("Site Sentinel stopped", "watch_errors", s.WatchErrors())
	return err
}
