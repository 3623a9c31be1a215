// Package config gathers launcher settings from the environment.
//
// There is no configuration file. Settings resolve, lowest precedence first,
// from compiled-in defaults, THRIFTJAR_* environment variables and finally
// the --thriftversion= argument handled by the launcher.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/binary"
)

// Config holds the launcher settings.
type Config struct {
	// Version selects the bundled compiler build.
	Version string

	// LogLevel is a zerolog level name ("debug", "info", ...).
	LogLevel string

	// LogFormat is LogFormatConsole or LogFormatJSON.
	LogFormat string

	// TempDir is the parent of scratch directories. Empty means os.TempDir().
	TempDir string

	// KeyringPath points at an OpenPGP public keyring used to check bundled
	// signatures. Empty disables signature checks.
	KeyringPath string
}

// Default returns the compiled-in settings.
func Default() *Config {
	return &Config{
		Version:   binary.DefaultVersion,
		LogLevel:  defaultLogLevel,
		LogFormat: LogFormatConsole,
	}
}

// Load returns the defaults overridden by the environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is Load with a custom environment lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if v, ok := nonEmpty(lookup, EnvVersion); ok {
		cfg.Version = v
	}
	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := nonEmpty(lookup, EnvLogFormat); ok {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := nonEmpty(lookup, EnvTempDir); ok {
		cfg.TempDir = v
	}
	if v, ok := nonEmpty(lookup, EnvKeyring); ok {
		cfg.KeyringPath = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for values the launcher cannot use.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid %s %q: want %q or %q", EnvLogFormat, c.LogFormat, LogFormatConsole, LogFormatJSON)
	}

	if c.TempDir != "" {
		info, err := os.Stat(c.TempDir)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTempDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid %s: %s is not a directory", EnvTempDir, c.TempDir)
		}
	}
	return nil
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
