package config

import (
	"fmt"
	"os"
	"time"

	"lfreader/db"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as "250ms" or "2s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// TomlDatabase represents the [database] section
type TomlDatabase struct {
	Path           string   `toml:"path"`
	MaxConnections int      `toml:"max_connections"`
	BusyTimeout    Duration `toml:"busy_timeout"`
}

// TomlRetry represents the [retry] section
type TomlRetry struct {
	MaxAttempts     int      `toml:"max_attempts"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
}

// TomlRead represents the [read] section
type TomlRead struct {
	DecodePolicy string `toml:"decode_policy"` // "skip" or "fail"
}

// TomlServer represents the [server] section
type TomlServer struct {
	Addr string `toml:"addr"`
}

// TomlLog represents the [log] section
type TomlLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// TomlFetch represents the [fetch] section
type TomlFetch struct {
	UserAgent string   `toml:"user_agent"`
	Timeout   Duration `toml:"timeout"`
}

// Config represents the top-level configuration
type Config struct {
	Database TomlDatabase `toml:"database"`
	Retry    TomlRetry    `toml:"retry"`
	Read     TomlRead     `toml:"read"`
	Server   TomlServer   `toml:"server"`
	Log      TomlLog      `toml:"log"`
	Fetch    TomlFetch    `toml:"fetch"`
}

// Default returns a configuration usable without any file
func Default() *Config {
	return &Config{
		Database: TomlDatabase{
			Path:           "lfreader.db",
			MaxConnections: 4,
			BusyTimeout:    Duration{5 * time.Second},
		},
		Retry: TomlRetry{
			MaxAttempts:     db.DefaultRetry.MaxAttempts,
			InitialInterval: Duration{db.DefaultRetry.InitialInterval},
			MaxInterval:     Duration{db.DefaultRetry.MaxInterval},
		},
		Read: TomlRead{
			DecodePolicy: db.DecodeSkip.String(),
		},
		Server: TomlServer{
			Addr: ":3000",
		},
		Log: TomlLog{
			Level:  "info",
			Format: "text",
		},
		Fetch: TomlFetch{
			UserAgent: "lfreader/1.0",
			Timeout:   Duration{30 * time.Second},
		},
	}
}

// Load reads the TOML file at path over the defaults. Keys missing from the
// file keep their default value.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the values no later step would catch
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}
	if _, err := db.ParseDecodePolicy(c.Read.DecodePolicy); err != nil {
		return fmt.Errorf("read.decode_policy: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// StoreOptions turns the configuration into options for db.Open
func (c *Config) StoreOptions() (db.Options, error) {
	policy, err := db.ParseDecodePolicy(c.Read.DecodePolicy)
	if err != nil {
		return db.Options{}, err
	}
	return db.Options{
		Path:           c.Database.Path,
		MaxConnections: c.Database.MaxConnections,
		BusyTimeout:    c.Database.BusyTimeout.Duration,
		Retry: db.RetryConfig{
			MaxAttempts:     c.Retry.MaxAttempts,
			InitialInterval: c.Retry.InitialInterval.Duration,
			MaxInterval:     c.Retry.MaxInterval.Duration,
		},
		Decode: policy,
	}, nil
}
