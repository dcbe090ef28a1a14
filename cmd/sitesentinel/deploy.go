package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sitesentinel/internal/deployment"
	"sitesentinel/internal/notify"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build and deploy the site once",
	Long: `Run the build, publish and sync pipeline a single time and exit.

The exit status is non-zero if any stage failed.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, logFileHandle, err := setupLogging(cfg.Sentinel.LogFile, logLevel, logFormat)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewDesktop(logger, cfg.Sentinel.NotifyBurst, cfg.Sentinel.NotifyInterval.Duration)
	run := deployment.NewPipeline(deployment.NewExecutor(logger), notifier, logger).Run(ctx, cfg)
	if !run.OK() {
		return fmt.Errorf("deploy %s failed: %w", run.ID, run.Err())
	}

	fmt.Printf("Deploy %s finished in %s\n", run.ID, run.Duration.Round(time.Millisecond))
	return nil
}
