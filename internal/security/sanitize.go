package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// user@host or host; host may be a name or ~/.ssh/config alias, an IPv4
	// address or a bracketed IPv6 address
	sshUserPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)
	sshHostPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9_](?:[a-zA-Z0-9_.-]*[a-zA-Z0-9_])?|\[[0-9a-fA-F:.]+\])$`)
)

// ValidateSSHTarget ensures an rsync/ssh destination host is safe to pass as
// an argument. The target is "host" or "user@host" and may not smuggle in
// options or a remote path.
func ValidateSSHTarget(target string) error {
	if target == "" {
		return fmt.Errorf("ssh target cannot be empty")
	}
	if strings.HasPrefix(target, "-") {
		return fmt.Errorf("ssh target cannot start with '-'")
	}
	if strings.ContainsAny(target, " \t\r\n:/") && !strings.HasPrefix(hostPart(target), "[") {
		return fmt.Errorf("ssh target contains invalid characters")
	}

	if user, _, ok := strings.Cut(target, "@"); ok {
		if !sshUserPattern.MatchString(user) {
			return fmt.Errorf("ssh target user %q contains invalid characters", user)
		}
	}

	host := hostPart(target)
	if !sshHostPattern.MatchString(host) {
		return fmt.Errorf("ssh target host %q contains invalid characters", host)
	}
	return nil
}

func hostPart(target string) string {
	if _, host, ok := strings.Cut(target, "@"); ok {
		return host
	}
	return target
}

// ValidateRemotePath ensures a remote destination directory cannot be
// mistaken for an option and fits on one command line.
func ValidateRemotePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("remote path cannot be empty")
	}
	if strings.HasPrefix(path, "-") {
		return fmt.Errorf("remote path cannot start with '-'")
	}
	if strings.ContainsAny(path, "\x00\r\n") {
		return fmt.Errorf("remote path contains control characters")
	}
	return nil
}
