package deployment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sitesentinel/pkg/cmdutil"
)

func TestExecutor_Run(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor(testLogger())

	out, err := e.Run(context.Background(), dir, []string{"pwd"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("Run() ran in %q, want %q", out, dir)
	}
}

func TestExecutor_RunFailure(t *testing.T) {
	e := NewExecutor(testLogger())

	_, err := e.Run(context.Background(), t.TempDir(), []string{"sh", "-c", "echo 'ERROR: template missing' >&2; exit 255"})
	var cmdErr *cmdutil.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *cmdutil.CommandError, got %T (%v)", err, err)
	}
	if cmdErr.ExitCode != 255 {
		t.Errorf("ExitCode = %d, want 255", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Stderr, "template missing") {
		t.Errorf("Stderr = %q", cmdErr.Stderr)
	}
}
