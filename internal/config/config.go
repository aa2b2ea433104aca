// Package config loads and validates drivevault's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default namespaces: one per protection mechanism.
const (
	NamespaceHidden    = "hidden-folder"
	NamespaceEncrypted = "encrypted-folder"
)

// Config is the on-disk configuration shape.
type Config struct {
	// DataDir holds session snapshots and the hidden-path database.
	DataDir string `toml:"data_dir"`

	// APIBaseURL is the storage server, e.g. "https://drive.example.com/api".
	APIBaseURL string `toml:"api_base_url"`

	// RevocationURL is the optional websocket feed of session revocations.
	RevocationURL string `toml:"revocation_url"`

	// TokenPath is the OAuth token file watched for sign-out.
	TokenPath string `toml:"token_path"`

	// SweepIntervalSeconds is the expiry sweep cadence.
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`

	// DefaultTTLSeconds applies when the server omits a session expiry.
	DefaultTTLSeconds int `toml:"default_ttl_seconds"`

	// Namespaces lists the token namespaces to manage.
	Namespaces []string `toml:"namespaces"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the zero-config defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:              defaultDataDir(),
		SweepIntervalSeconds: 30,
		DefaultTTLSeconds:    900,
		Namespaces:           []string{NamespaceHidden, NamespaceEncrypted},
		LogLevel:             "info",
	}
}

// DefaultConfigPath is ~/.config/drivevault/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}

	return filepath.Join(home, ".config", "drivevault", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drivevault"
	}

	return filepath.Join(home, ".local", "share", "drivevault")
}

// Load reads and parses a TOML config file. Unknown keys are fatal —
// silently ignoring a typo leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns
// defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Validate checks invariants the rest of the program relies on.
func Validate(cfg *Config) error {
	if cfg.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep_interval_seconds must be positive, got %d", cfg.SweepIntervalSeconds)
	}

	if cfg.DefaultTTLSeconds <= 0 {
		return fmt.Errorf("default_ttl_seconds must be positive, got %d", cfg.DefaultTTLSeconds)
	}

	if len(cfg.Namespaces) == 0 {
		return errors.New("namespaces must not be empty")
	}

	seen := make(map[string]bool, len(cfg.Namespaces))
	for _, ns := range cfg.Namespaces {
		if ns == "" {
			return errors.New("namespace keys must not be empty")
		}

		if seen[ns] {
			return fmt.Errorf("duplicate namespace %q", ns)
		}

		seen[ns] = true
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", cfg.LogLevel)
	}

	return nil
}

// SweepInterval returns the sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// DefaultTTL returns the fallback session lifetime as a duration.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// HiddenPathsDBPath is where the durable hidden-path registry lives.
func (c *Config) HiddenPathsDBPath() string {
	return filepath.Join(c.DataDir, "hidden-paths.db")
}
