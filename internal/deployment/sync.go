package deployment

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	"sitesentinel/internal/config"
)

// SyncCommand builds the rsync invocation that mirrors the public directory
// to the remote host.
func SyncCommand(cfg *config.Config) ([]string, error) {
	key, err := cfg.SSHKeyPath()
	if err != nil {
		return nil, err
	}

	// rsync splits -e itself, so the key path needs shell quoting
	remoteShell := shellquote.Join("ssh", "-i", key)
	return []string{
		"rsync", "-az", "--delete",
		"-e", remoteShell,
		cfg.Sentinel.PublicDir,
		cfg.Deploy.SSHTarget + ":" + cfg.Deploy.DestDir,
	}, nil
}

// Sync mirrors the built site to the remote host.
func Sync(ctx context.Context, runner Runner, cfg *config.Config) error {
	command, err := SyncCommand(cfg)
	if err != nil {
		return err
	}
	if _, err := runner.Run(ctx, cfg.SiteRoot, command); err != nil {
		return fmt.Errorf("rsync: %w", err)
	}
	return nil
}
