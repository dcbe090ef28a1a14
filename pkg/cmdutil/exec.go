package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory for the command.
	Dir string

	// Env contains environment variables for the command.
	// Each entry should be in the form "KEY=value". A nil slice inherits
	// the parent environment.
	Env []string

	// CombinedOutput determines if stdout and stderr are captured into a
	// single buffer (Result.Output) instead of separately.
	CombinedOutput bool
}

// Result contains the result of a command execution.
type Result struct {
	// Stdout is the standard output (only if CombinedOutput is false).
	Stdout []byte

	// Stderr is the standard error (only if CombinedOutput is false).
	Stderr []byte

	// Output is the combined stdout and stderr (only if CombinedOutput is true).
	Output []byte

	// ExitCode is the exit code of the command, or -1 if it never started.
	ExitCode int

	// Duration is how long the command took to execute.
	Duration time.Duration
}

// CommandError is returned when a command exits non-zero or fails to launch.
type CommandError struct {
	Program  string
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: failed to start: %v", e.Program, e.Err)
	}
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Program, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Program, e.ExitCode, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Run executes a command with the given options.
// The command is provided as a slice of arguments (command and its arguments).
// The returned Result is never nil. A non-zero exit or a launch failure is
// reported as a *CommandError.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	result := &Result{ExitCode: -1}
	if len(cmdParts) == 0 {
		return result, fmt.Errorf("empty command")
	}

	// Create command
	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	var stdout, stderr bytes.Buffer
	if opts.CombinedOutput {
		cmd.Stdout = &stdout
		cmd.Stderr = &stdout
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	// Track execution time
	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)

	if opts.CombinedOutput {
		result.Output = stdout.Bytes()
	} else {
		result.Stdout = stdout.Bytes()
		result.Stderr = stderr.Bytes()
	}

	// Get exit code
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		errText := stderr.String()
		if opts.CombinedOutput {
			errText = stdout.String()
		}
		exitCode := result.ExitCode
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Never started (missing binary, bad working directory, ...)
			exitCode = -1
		}
		return result, &CommandError{
			Program:  cmdParts[0],
			Args:     cmdParts[1:],
			Stderr:   errText,
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return result, nil
}

// Output executes a command and returns its standard output as a string.
// Standard error is only surfaced through the returned *CommandError.
func Output(ctx context.Context, workDir string, cmdParts []string) (string, error) {
	result, err := Run(ctx, ExecOptions{Dir: workDir}, cmdParts)
	if err != nil {
		return "", err
	}
	return string(result.Stdout), nil
}

// ParseCommandString parses a shell-quoted command string into parts.
// This is useful when commands are stored as strings with proper quoting.
//
// Example:
//
//	"hugo --minify --baseURL \"https://example.com/\"" -> ["hugo", "--minify", "--baseURL", "https://example.com/"]
func ParseCommandString(cmdStr string) ([]string, error) {
	parts, err := shellquote.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command string: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command string")
	}
	return parts, nil
}

// FormatCommand formats command parts into a readable string for logging.
// Example: ["git", "commit", "-m", "my message"] -> "git commit -m 'my message'"
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}

	// Quote arguments that contain spaces or special characters
	quoted := make([]string, len(cmdParts))
	for i, part := range cmdParts {
		if strings.ContainsAny(part, " \t\n\"'") {
			quoted[i] = shellquote.Join(part)
		} else {
			quoted[i] = part
		}
	}

	return strings.Join(quoted, " ")
}
