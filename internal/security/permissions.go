package security

import (
	"fmt"
	"os"
)

const (
	// PermLogFile is for the sentinel log.
	// rw-r----- (0640): owner can read/write, group can read, others have no access.
	PermLogFile os.FileMode = 0640

	// PermLogDir is for directories created to hold the log.
	// rwxr-x--- (0750): owner has full access, group can read/list, others have no access.
	PermLogDir os.FileMode = 0750

	// PermSSHKey is the most ssh accepts for a private key.
	// rw------- (0600): only owner can read/write, no one else has access.
	PermSSHKey os.FileMode = 0600
)

// EnsureSecurePermissions checks if a file has the expected permissions.
// Returns an error if permissions are too permissive.
func EnsureSecurePermissions(path string, expectedPerm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	actualPerm := info.Mode().Perm()

	// Check if actual permissions are more permissive than expected
	if actualPerm&^expectedPerm != 0 {
		return fmt.Errorf("file %s has too permissive permissions: %04o (expected: %04o)",
			path, actualPerm, expectedPerm)
	}

	return nil
}

// CheckSSHKey reports problems that would make ssh reject the private key
// at path before rsync ever connects.
func CheckSSHKey(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ssh key: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("ssh key %s is not a regular file", path)
	}
	if err := EnsureSecurePermissions(path, PermSSHKey); err != nil {
		return fmt.Errorf("ssh key: %w", err)
	}
	return nil
}
