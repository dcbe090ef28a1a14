package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "sitesentinel",
	Short: "Watch a Hugo site and publish it on every change",
	Long: `Site Sentinel watches a Hugo content directory.

New empty content files get front matter. Any other content change rebuilds the site
with hugo, then commits and pushes it with git while rsync uploads the output over ssh.`,
	Version:       version,
	RunE:          runWatch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetUsageTemplate(usageTemplate)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", getEnvOrDefault("SITESENTINEL_CONFIG", ""), "Path to site.toml (default: search ./, ./config, user config dir)")
	flags.StringVar(&logLevel, "log-level", getEnvOrDefault("SITESENTINEL_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", getEnvOrDefault("SITESENTINEL_LOG_FORMAT", "text"), "Log format: text or json")

	// Register subcommands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(versionCmd)
}

// getEnvOrDefault returns the environment value for key, or defaultValue.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
