// Package config resolves runtime settings from flags, MSGLOG_* environment
// variables and an optional config file.
//
// Precedence, highest first: explicitly set flag, environment, config file,
// flag default.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names. Environment variables use the MSGLOG_ prefix
// with dashes replaced by underscores (state-dir -> MSGLOG_STATE_DIR).
const (
	KeyConfig   = "config"
	KeyDB       = "db"
	KeyBackend  = "backend"
	KeyStateDir = "state-dir"
	KeyFormat   = "format"
	KeyVerbose  = "verbose"
)

const envPrefix = "MSGLOG"

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Defaults.
const (
	DefaultDB      = "msglog.db"
	DefaultBackend = BackendSQLite
	DefaultFormat  = FormatText
)

// Config is the resolved configuration.
type Config struct {
	// Database is the SQLite file holding the invocation log.
	Database string
	// Backend selects where the message store is persisted.
	Backend string
	// StateDir is the Pebble directory when Backend is pebble.
	StateDir string
	Format   string
	Verbose  bool
	// File is the config file that was read, if any.
	File string
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "Config file (yaml, json or toml)")
	fs.String(KeyDB, DefaultDB, "SQLite database for the invocation log")
	fs.String(KeyBackend, DefaultBackend, "State backend: sqlite or pebble")
	fs.String(KeyStateDir, "", "Pebble state directory (default <db>.state)")
	fs.String(KeyFormat, DefaultFormat, "Output format: text or json")
	fs.BoolP(KeyVerbose, "v", false, "Enable debug logging")
}

// Load resolves the configuration. fs must have been passed to RegisterFlags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Database: v.GetString(KeyDB),
		Backend:  strings.ToLower(v.GetString(KeyBackend)),
		StateDir: v.GetString(KeyStateDir),
		Format:   strings.ToLower(v.GetString(KeyFormat)),
		Verbose:  v.GetBool(KeyVerbose),
		File:     v.ConfigFileUsed(),
	}
	if cfg.Backend == BackendPebble && cfg.StateDir == "" {
		cfg.StateDir = cfg.Database + ".state"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("invalid config: %s must not be empty", KeyDB)
	}
	switch c.Backend {
	case BackendSQLite, BackendPebble:
	default:
		return fmt.Errorf("invalid config: %s %q (want %s or %s)", KeyBackend, c.Backend, BackendSQLite, BackendPebble)
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid config: %s %q (want %s or %s)", KeyFormat, c.Format, FormatText, FormatJSON)
	}
	return nil
}
