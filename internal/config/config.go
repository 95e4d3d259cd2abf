// Package config provides configuration management for mockredis.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Persistence backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// EnvPrefix prefixes every environment variable ApplyEnv reads.
const EnvPrefix = "MOCKREDIS_"

// Config holds the server configuration.
type Config struct {
	// Listeners. An empty WebAddr disables the HTTP API.
	Addr    string `json:"addr"`
	WebAddr string `json:"web_addr"`

	// Name identifies the emulated server to the persistence backend.
	Name    string `json:"name"`
	Backend string `json:"backend"`
	DataDir string `json:"data_dir"`

	Scripting bool `json:"scripting"`
	Metrics   bool `json:"metrics"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:      ":6379",
		WebAddr:   ":8080",
		Name:      "default",
		Backend:   BackendMemory,
		DataDir:   "data",
		Scripting: true,
		Metrics:   true,
		LogLevel:  "info",
	}
}

// Load loads configuration from a JSON file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from MOCKREDIS_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"ADDR":      &c.Addr,
		"WEB_ADDR":  &c.WebAddr,
		"NAME":      &c.Name,
		"BACKEND":   &c.Backend,
		"DATA_DIR":  &c.DataDir,
		"LOG_LEVEL": &c.LogLevel,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*field = v
		}
	}

	bools := map[string]*bool{
		"SCRIPTING": &c.Scripting,
		"METRICS":   &c.Metrics,
	}
	for name, field := range bools {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*field = b
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	if c.Name == "" {
		return errors.New("config: name is required")
	}
	switch c.Backend {
	case BackendMemory:
	case BackendFile, BackendBadger:
		if c.DataDir == "" {
			return fmt.Errorf("config: backend %q needs data_dir", c.Backend)
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// Verbose reports whether informational logs should be written.
func (c *Config) Verbose() bool {
	return c.LogLevel == "debug" || c.LogLevel == "info"
}
