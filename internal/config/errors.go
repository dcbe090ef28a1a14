package config

import "fmt"

// ConfigError describes why a configuration file could not be loaded.
// Field is the dotted key at fault ("deploy.dest_dir") when it is known.
type ConfigError struct {
	Path   string
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "config " + e.Path
	if e.Field != "" {
		msg += fmt.Sprintf(": %s", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
