package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	h, err := newHandler(&buf, slog.LevelInfo, "text")
	if err != nil {
		t.Fatalf("newHandler(text) error = %v", err)
	}
	slog.New(h).Info("Pipeline started", "run_id", "abc")
	line := buf.String()
	for _, want := range []string{"time=", "level=INFO", `msg="Pipeline started"`, "run_id=abc"} {
		if !strings.Contains(line, want) {
			t.Errorf("text line %q missing %q", line, want)
		}
	}

	buf.Reset()
	h, err = newHandler(&buf, slog.LevelInfo, "json")
	if err != nil {
		t.Fatalf("newHandler(json) error = %v", err)
	}
	slog.New(h).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json handler wrote %q", buf.String())
	}

	if _, err := newHandler(&buf, slog.LevelInfo, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSetupLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "nested", "sentinel.log")

	logger, file, err := setupLogging(logPath, "debug", "text")
	if err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	logger.Debug("first")
	file.Close()

	// Reopening appends
	logger, file, err = setupLogging(logPath, "info", "text")
	if err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	logger.Info("second")
	file.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=first") || !strings.Contains(string(data), "msg=second") {
		t.Errorf("log file should contain both lines, got:\n%s", data)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o007 != 0 {
		t.Errorf("log file is world accessible: %v", perm)
	}
}

func TestResolveConfigPath(t *testing.T) {
	prev := configFile
	t.Cleanup(func() { configFile = prev })

	configFile = "/etc/site.toml"
	got, err := resolveConfigPath()
	if err != nil || got != "/etc/site.toml" {
		t.Errorf("resolveConfigPath() = %q, %v; want flag value", got, err)
	}

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	chdirForTest(t, dir)
	configFile = ""

	if _, err := resolveConfigPath(); err == nil {
		t.Error("expected error when no site.toml exists")
	}

	if err := os.WriteFile(filepath.Join(dir, "site.toml"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = resolveConfigPath()
	if err != nil {
		t.Fatalf("resolveConfigPath() error = %v", err)
	}
	if got != "site.toml" {
		t.Errorf("resolveConfigPath() = %q, want site.toml", got)
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
