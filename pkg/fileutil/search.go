package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigNotFoundError lists every location FindConfig looked in.
type ConfigNotFoundError struct {
	Name     string
	Searched []string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no %s found in %s", e.Name, strings.Join(e.Searched, ", "))
}

// DefaultConfigPaths returns the locations searched for a config file, in order:
// the working directory, ./config, and the user config dir under "sitesentinel".
func DefaultConfigPaths(filename string) []string {
	paths := []string{
		filepath.Join(".", filename),
		filepath.Join(".", "config", filename),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "sitesentinel", filename))
	}
	return paths
}

// FindConfig returns the first regular file named filename among
// DefaultConfigPaths.
func FindConfig(filename string) (string, error) {
	paths := DefaultConfigPaths(filename)
	for _, path := range paths {
		if FileExists(path) {
			return path, nil
		}
	}
	return "", &ConfigNotFoundError{Name: filename, Searched: paths}
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
