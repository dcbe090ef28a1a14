package deployment

import (
	"context"
	"log/slog"

	"sitesentinel/pkg/cmdutil"
)

// Runner executes one external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, command []string) (string, error)
}

// Executor runs commands on the host.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates a new executor
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes command in dir. A non-zero exit is returned as a
// *cmdutil.CommandError carrying the captured stderr.
func (e *Executor) Run(ctx context.Context, dir string, command []string) (string, error) {
	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{Dir: dir}, command)

	e.logger.Debug("Command finished",
		"command", cmdutil.FormatCommand(command),
		"dir", dir,
		"exit_code", result.ExitCode,
		"duration", result.Duration)

	return string(result.Stdout), err
}
