package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"sitesentinel/internal/notify"
	"sitesentinel/pkg/cmdutil"
)

var notifyCmd = &cobra.Command{
	Use:   "notify TITLE MESSAGE",
	Short: "Send a test desktop notification",
	Long: `Send a desktop notification the same way the sentinel reports failures.

Unlike the watcher, which ignores delivery problems, this reports them.`,
	Args: cobra.ExactArgs(2),
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, args []string) error {
	command := notify.Command(runtime.GOOS, args[0], args[1])
	if command == nil {
		return fmt.Errorf("desktop notifications are not supported on %s", runtime.GOOS)
	}

	if _, err := cmdutil.Run(context.Background(), cmdutil.ExecOptions{}, command); err != nil {
		return fmt.Errorf("notification failed: %w", err)
	}
	fmt.Println("Notification sent")
	return nil
}
