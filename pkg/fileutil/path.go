package fileutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandHome replaces a leading "~" with the user's home directory.
// Paths without a tilde are returned unchanged.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand home in %q: %w", path, err)
	}
	return expanded, nil
}

// IsEmptyRegular reports whether info describes a regular file of zero length.
func IsEmptyRegular(info fs.FileInfo) bool {
	return info != nil && info.Mode().IsRegular() && info.Size() == 0
}

// SameFile reports whether a and b name the same path once cleaned and made
// absolute. Neither path has to exist.
func SameFile(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return absA == absB
}
