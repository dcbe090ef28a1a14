package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"sitesentinel/internal/security"
	"sitesentinel/pkg/cmdutil"
	"sitesentinel/pkg/fileutil"
)

const (
	DefaultFileName       = "site.toml"
	DefaultExtension      = ".md"
	DefaultPublicDir      = "public/"
	DefaultBuildCommand   = "hugo --minify"
	DefaultDebounce       = 500 * time.Millisecond
	DefaultRetryDelay     = 5 * time.Second
	DefaultMaxRetries     = 2
	DefaultNotifyBurst    = 5
	DefaultNotifyInterval = 2 * time.Second
)

// Config is one immutable snapshot of site.toml.
type Config struct {
	Sentinel SentinelConfig `toml:"sentinel" yaml:"sentinel"`
	Deploy   DeployConfig   `toml:"deploy" yaml:"deploy"`
	Build    BuildConfig    `toml:"build" yaml:"build"`

	// Path is the absolute path of the file this snapshot was read from.
	Path string `toml:"-" yaml:"-"`
	// SiteRoot is the directory containing Path. Commands run there and
	// relative paths resolve against it.
	SiteRoot string `toml:"-" yaml:"-"`
}

type SentinelConfig struct {
	ContentDir string `toml:"content_dir" yaml:"content_dir"`
	LogFile    string `toml:"log_file" yaml:"log_file"`
	Extension  string `toml:"extension" yaml:"extension"`
	PublicDir  string `toml:"public_dir" yaml:"public_dir"`

	Debounce       Duration `toml:"debounce" yaml:"debounce"`
	RetryDelay     Duration `toml:"retry_delay" yaml:"retry_delay"`
	MaxRetries     *int     `toml:"max_retries" yaml:"max_retries"`
	NotifyBurst    int      `toml:"notify_burst" yaml:"notify_burst"`
	NotifyInterval Duration `toml:"notify_interval" yaml:"notify_interval"`
}

type DeployConfig struct {
	SSHKey    string `toml:"ssh_key" yaml:"ssh_key"`
	SSHTarget string `toml:"ssh_target" yaml:"ssh_target"`
	DestDir   string `toml:"dest_dir" yaml:"dest_dir"`
}

type BuildConfig struct {
	Command string `toml:"command" yaml:"command"`
}

// Duration accepts Go duration strings ("500ms", "5s") in both TOML and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load reads, decodes, defaults and validates the config file at path.
// Every failure is returned as a *ConfigError.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "cannot resolve path", Err: err}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &ConfigError{Path: absPath, Reason: "failed to read config file", Err: err}
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		err = decodeYAML(absPath, data, &cfg)
	default:
		err = decodeTOML(absPath, data, &cfg)
	}
	if err != nil {
		return nil, err
	}

	cfg.Path = absPath
	cfg.SiteRoot = filepath.Dir(absPath)
	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Sentinel.ContentDir = cfg.Resolve(cfg.Sentinel.ContentDir)
	cfg.Sentinel.LogFile = cfg.Resolve(cfg.Sentinel.LogFile)
	return &cfg, nil
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		var parseErr toml.ParseError
		if errors.As(err, &parseErr) {
			return &ConfigError{
				Path:   path,
				Field:  parseErr.LastKey,
				Reason: parseErr.ErrorWithPosition(),
			}
		}
		// Type mismatches are plain errors carrying the key in their text.
		if key, reason := tomlLastKey(err); key != "" {
			return &ConfigError{Path: path, Field: key, Reason: reason}
		}
		return &ConfigError{Path: path, Reason: "failed to parse TOML config", Err: err}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return &ConfigError{
			Path:   path,
			Field:  undecoded[0].String(),
			Reason: "unknown key",
		}
	}
	return nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty document decodes to io.EOF; required-field checks report it.
		if errors.Is(err, io.EOF) {
			return nil
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
			field, reason := yamlErrorField(data, typeErr.Errors[0])
			return &ConfigError{Path: path, Field: field, Reason: reason, Err: err}
		}
		return &ConfigError{Path: path, Reason: "failed to parse YAML config", Err: err}
	}
	return nil
}

var (
	tomlLastKeyPattern = regexp.MustCompile(`\(last key ("(?:[^"\\]|\\.)*")\)`)
	yamlLinePattern    = regexp.MustCompile(`^line (\d+): (.*)$`)
)

// tomlLastKey extracts the dotted key from a decode error of the form
// `toml: line 2 (last key "sentinel.content_dir"): ...` along with the
// message that follows it.
func tomlLastKey(err error) (key, reason string) {
	msg := err.Error()
	loc := tomlLastKeyPattern.FindStringSubmatchIndex(msg)
	if loc == nil {
		return "", ""
	}
	key, uerr := strconv.Unquote(msg[loc[2]:loc[3]])
	if uerr != nil {
		return "", ""
	}
	reason = strings.TrimSpace(strings.TrimPrefix(msg[loc[1]:], ":"))
	if reason == "" {
		reason = msg
	}
	return key, reason
}

// yamlErrorField maps one "line N: ..." entry of a yaml.TypeError back to
// the dotted key whose key or value sits on that line.
func yamlErrorField(data []byte, msg string) (field, reason string) {
	m := yamlLinePattern.FindStringSubmatch(msg)
	if m == nil {
		return "", msg
	}
	line, err := strconv.Atoi(m[1])
	if err != nil {
		return "", msg
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", m[2]
	}
	return strings.Join(findYAMLKey(&root, line, nil), "."), m[2]
}

func findYAMLKey(n *yaml.Node, line int, prefix []string) []string {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, child := range n.Content {
			if key := findYAMLKey(child, line, prefix); key != nil {
				return key
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			path := append(append([]string(nil), prefix...), k.Value)
			if v.Kind == yaml.MappingNode {
				if key := findYAMLKey(v, line, path); key != nil {
					return key
				}
			}
			if k.Line == line || v.Line == line {
				return path
			}
		}
	}
	return nil
}

func (c *Config) expandEnv() {
	for _, field := range []*string{
		&c.Sentinel.ContentDir,
		&c.Sentinel.LogFile,
		&c.Sentinel.PublicDir,
		&c.Deploy.SSHKey,
		&c.Deploy.SSHTarget,
		&c.Deploy.DestDir,
		&c.Build.Command,
	} {
		*field = os.ExpandEnv(*field)
	}
}

func (c *Config) applyDefaults() {
	if c.Sentinel.Extension == "" {
		c.Sentinel.Extension = DefaultExtension
	} else if !strings.HasPrefix(c.Sentinel.Extension, ".") {
		c.Sentinel.Extension = "." + c.Sentinel.Extension
	}

	if c.Sentinel.PublicDir == "" {
		c.Sentinel.PublicDir = DefaultPublicDir
	} else if !strings.HasSuffix(c.Sentinel.PublicDir, "/") {
		// rsync copies the directory contents only with a trailing slash
		c.Sentinel.PublicDir += "/"
	}

	if strings.TrimSpace(c.Build.Command) == "" {
		c.Build.Command = DefaultBuildCommand
	}
	if c.Sentinel.Debounce.Duration == 0 {
		c.Sentinel.Debounce.Duration = DefaultDebounce
	}
	if c.Sentinel.RetryDelay.Duration == 0 {
		c.Sentinel.RetryDelay.Duration = DefaultRetryDelay
	}
	if c.Sentinel.MaxRetries == nil {
		n := DefaultMaxRetries
		c.Sentinel.MaxRetries = &n
	}
	if c.Sentinel.NotifyBurst == 0 {
		c.Sentinel.NotifyBurst = DefaultNotifyBurst
	}
	if c.Sentinel.NotifyInterval.Duration == 0 {
		c.Sentinel.NotifyInterval.Duration = DefaultNotifyInterval
	}
}

func (c *Config) validate() error {
	invalid := func(field, reason string) error {
		return &ConfigError{Path: c.Path, Field: field, Reason: reason}
	}

	required := []struct {
		field string
		value string
	}{
		{"sentinel.content_dir", c.Sentinel.ContentDir},
		{"sentinel.log_file", c.Sentinel.LogFile},
		{"deploy.ssh_key", c.Deploy.SSHKey},
		{"deploy.ssh_target", c.Deploy.SSHTarget},
		{"deploy.dest_dir", c.Deploy.DestDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "missing required field")
		}
	}

	if err := security.ValidateSSHTarget(c.Deploy.SSHTarget); err != nil {
		return &ConfigError{Path: c.Path, Field: "deploy.ssh_target", Reason: "invalid value", Err: err}
	}
	if err := security.ValidateRemotePath(c.Deploy.DestDir); err != nil {
		return &ConfigError{Path: c.Path, Field: "deploy.dest_dir", Reason: "invalid value", Err: err}
	}
	if strings.HasPrefix(c.Sentinel.PublicDir, "-") {
		return invalid("sentinel.public_dir", "cannot start with '-'")
	}
	if _, err := cmdutil.ParseCommandString(c.Build.Command); err != nil {
		return &ConfigError{Path: c.Path, Field: "build.command", Reason: "invalid value", Err: err}
	}

	if c.Sentinel.Debounce.Duration < 0 {
		return invalid("sentinel.debounce", "must be positive")
	}
	if c.Sentinel.RetryDelay.Duration < 0 {
		return invalid("sentinel.retry_delay", "must be positive")
	}
	if *c.Sentinel.MaxRetries < 0 {
		return invalid("sentinel.max_retries", fmt.Sprintf("must not be negative, got %d", *c.Sentinel.MaxRetries))
	}
	if c.Sentinel.NotifyBurst < 0 {
		return invalid("sentinel.notify_burst", fmt.Sprintf("must not be negative, got %d", c.Sentinel.NotifyBurst))
	}
	if c.Sentinel.NotifyInterval.Duration < 0 {
		return invalid("sentinel.notify_interval", "must be positive")
	}
	return nil
}

// Resolve makes p absolute relative to the site root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.SiteRoot, p)
}

// SSHKeyPath returns the deploy key with "~" expanded and relative paths
// resolved against the site root.
func (c *Config) SSHKeyPath() (string, error) {
	key, err := fileutil.ExpandHome(c.Deploy.SSHKey)
	if err != nil {
		return "", err
	}
	return c.Resolve(key), nil
}

// Retries returns the configured retry count, falling back to the default.
func (c *Config) Retries() int {
	if c.Sentinel.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.Sentinel.MaxRetries
}

// BuildCommand returns the build command as argv.
func (c *Config) BuildCommand() ([]string, error) {
	command := c.Build.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultBuildCommand
	}
	return cmdutil.ParseCommandString(command)
}

// Clone returns a deep copy of the snapshot.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Sentinel.MaxRetries != nil {
		n := *c.Sentinel.MaxRetries
		clone.Sentinel.MaxRetries = &n
	}
	return &clone
}
