package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sitesentinel/internal/deployment"
	"sitesentinel/internal/security"
	"sitesentinel/pkg/cmdutil"
	"sitesentinel/pkg/fileutil"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and show resolved settings",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	build, err := cfg.BuildCommand()
	if err != nil {
		return err
	}
	sync, err := deployment.SyncCommand(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Config:\t%s\n", cfg.Path)
	fmt.Fprintf(w, "Site root:\t%s\n", cfg.SiteRoot)
	fmt.Fprintf(w, "Content dir:\t%s\n", cfg.Sentinel.ContentDir)
	fmt.Fprintf(w, "Extension:\t%s\n", cfg.Sentinel.Extension)
	fmt.Fprintf(w, "Log file:\t%s\n", cfg.Sentinel.LogFile)
	fmt.Fprintf(w, "Debounce:\t%s\n", cfg.Sentinel.Debounce.Duration)
	fmt.Fprintf(w, "Retries:\t%d every %s\n", cfg.Retries(), cfg.Sentinel.RetryDelay.Duration)
	fmt.Fprintf(w, "Build:\t%s\n", cmdutil.FormatCommand(build))
	fmt.Fprintf(w, "Sync:\t%s\n", cmdutil.FormatCommand(sync))

	var missing []string
	program := build[0]
	if strings.ContainsRune(program, '/') {
		program = cfg.Resolve(program)
	}
	if _, err := exec.LookPath(program); err != nil {
		missing = append(missing, build[0])
	}
	for _, tool := range [][]string{{"git", "--version"}, {"rsync", "--version"}} {
		version, err := toolVersion(cmd.Context(), tool)
		if err != nil {
			missing = append(missing, tool[0])
			version = "not available"
		}
		fmt.Fprintf(w, "%s:\t%s\n", tool[0], version)
	}
	w.Flush()

	if len(missing) > 0 {
		return fmt.Errorf("required tools not available: %s", strings.Join(missing, ", "))
	}

	if !fileutil.DirExists(cfg.Sentinel.ContentDir) {
		return fmt.Errorf("content directory not found: %s", cfg.Sentinel.ContentDir)
	}

	key, err := cfg.SSHKeyPath()
	if err != nil {
		return err
	}
	if err := security.CheckSSHKey(key); err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	return nil
}

// toolVersion returns the first line a tool prints for its version flag.
func toolVersion(ctx context.Context, command []string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := cmdutil.Output(ctx, "", command)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return line, nil
}
