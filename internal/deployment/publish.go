package deployment

import (
	"context"
	"fmt"
	"strings"

	"sitesentinel/pkg/cmdutil"
)

// CommitMessage is used for every automatic commit.
const CommitMessage = "Auto-save by Site Sentinel"

func statusCommand() []string { return []string{"git", "status", "--porcelain"} }

func publishSteps() [][]string {
	return [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", CommitMessage},
		{"git", "push"},
	}
}

// Publish commits and pushes the working tree in dir. A clean tree is a
// success without committing. It reports whether a commit was pushed.
func Publish(ctx context.Context, runner Runner, dir string) (bool, error) {
	status, err := runner.Run(ctx, dir, statusCommand())
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}

	for _, step := range publishSteps() {
		if _, err := runner.Run(ctx, dir, step); err != nil {
			return false, fmt.Errorf("%s: %w", cmdutil.FormatCommand(step[:2]), err)
		}
	}
	return true, nil
}
