// Package notify sends best-effort desktop notifications.
package notify

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sitesentinel/pkg/cmdutil"
)

// Titles used across the sentinel.
const (
	TitleConfigReload = "Config Reload Failed"
	TitleSentinel     = "Sentinel Error"
	TitleBuild        = "Hugo Build Failed"
	TitlePublish      = "Git Sync Failed"
	TitleDeploy       = "Deploy Failed"
)

// Notifier delivers a short message to the user. Delivery is best-effort:
// implementations never report failure.
type Notifier interface {
	Notify(title, message string)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(string, string) {}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EscapeAppleScript escapes s for use inside an AppleScript string literal.
func EscapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(s)
}

// AppleScript builds the `display notification` statement for osascript.
func AppleScript(title, message string) string {
	return `display notification "` + EscapeAppleScript(message) +
		`" with title "` + EscapeAppleScript(title) + `"`
}

// Command returns the argv that shows a notification on goos, or nil when
// the platform has no supported notifier.
func Command(goos, title, message string) []string {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", AppleScript(title, message)}
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return []string{"notify-send", "--app-name=Site Sentinel", title, message}
	default:
		return nil
	}
}

// RunFunc executes a notification command.
type RunFunc func(ctx context.Context, command []string) error

// Desktop shows notifications through the platform's notification tool.
// Bursts are throttled so a failing loop cannot flood the desktop.
type Desktop struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	goos    string
	run     RunFunc
}

// NewDesktop creates a desktop notifier allowing burst notifications at once
// and one more every interval after that.
func NewDesktop(logger *slog.Logger, burst int, interval time.Duration) *Desktop {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Desktop{
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, command []string) error {
	_, err := cmdutil.Run(ctx, cmdutil.ExecOptions{}, command)
	return err
}

// Notify shows title and message. Failures are only visible at debug level.
func (d *Desktop) Notify(title, message string) {
	if !d.limiter.Allow() {
		d.logger.Debug("Notification throttled", "title", title)
		return
	}

	command := Command(d.goos, title, message)
	if command == nil {
		d.logger.Debug("No desktop notifier for platform", "goos", d.goos, "title", title)
		return
	}

	if err := d.run(context.Background(), command); err != nil {
		d.logger.Debug("Notification not delivered", "title", title, "error", err)
	}
}
