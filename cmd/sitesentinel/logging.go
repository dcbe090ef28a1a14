package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sitesentinel/internal/config"
	"sitesentinel/internal/security"
	"sitesentinel/pkg/fileutil"
)

// setupLogging configures slog to write to both stdout and the log file.
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath, level, format string) (*slog.Logger, *os.File, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, security.PermLogDir); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, security.PermLogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler, err := newHandler(io.MultiWriter(os.Stdout, file), lvl, format)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return slog.New(handler), file, nil
}

func newHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func parseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// resolveConfigPath returns the --config value or the first site.toml found
// in the default locations.
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	path, err := fileutil.FindConfig(config.DefaultFileName)
	if err != nil {
		return "", fmt.Errorf("%w; use --config to specify a location", err)
	}
	return path, nil
}

// loadConfig resolves and loads the configuration file.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
