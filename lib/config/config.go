// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Environment variables read by this package.
const (
	EnvConfig   = "CKG_CONFIG"
	EnvServer   = "CKG_SERVER"
	EnvToolsDir = "CKG_TOOLS_DIR"
	EnvDataDir  = "CKG_DATA_DIR"
)

// Config is the configuration shared by ckg-server and ckg.
type Config struct {
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields an environment section may replace.
// Empty values leave the base value alone.
type Overrides struct {
	LogLevel string        `yaml:"log_level,omitempty"`
	Server   *ServerConfig `yaml:"server,omitempty"`
	Client   *ClientConfig `yaml:"client,omitempty"`
}

// ServerConfig configures ckg-server.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `yaml:"host"`

	// Port is the TCP port. Default: 9000
	Port int `yaml:"port"`

	// Root is the package root directory. Default: ./serverside-files
	Root string `yaml:"root"`

	// StallTimeout bounds each read of the command line and each
	// write of a response. "0" disables it. Default: 2m
	StallTimeout string `yaml:"stall_timeout"`

	// DrainTimeout is how long shutdown waits for in-flight
	// connections. "0" waits indefinitely. Default: 30s
	DrainTimeout string `yaml:"drain_timeout"`

	// ChunkSize is the streaming buffer size in bytes. Default: 32768
	ChunkSize int `yaml:"chunk_size"`
}

// ClientConfig configures the ckg client.
type ClientConfig struct {
	// Server is host:port of the package server. Default: 127.0.0.1:9000
	Server string `yaml:"server"`

	// ToolsDir receives installed packages. Default: ./tools
	ToolsDir string `yaml:"tools_dir"`

	// DataDir holds the cached manifest and receipts. Default: ./data
	DataDir string `yaml:"data_dir"`

	// DialTimeout bounds connecting to the server. Default: 5s
	DialTimeout string `yaml:"dial_timeout"`

	// ReadTimeout bounds each wait for data from the server. Default: 30s
	ReadTimeout string `yaml:"read_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         9000,
			Root:         "./serverside-files",
			StallTimeout: "2m",
			DrainTimeout: "30s",
			ChunkSize:    32 * 1024,
		},
		Client: ClientConfig{
			Server:      "127.0.0.1:9000",
			ToolsDir:    "./tools",
			DataDir:     "./data",
			DialTimeout: "5s",
			ReadTimeout: "30s",
		},
	}
}

// Load loads the file named by explicitPath, or by CKG_CONFIG when
// explicitPath is empty. With neither set it returns Default. The
// result has overrides applied and variables expanded but is not yet
// validated.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges one file into c. JSONC is stripped to plain JSON,
// which the YAML decoder accepts as a subset.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: defaults stand.
			return nil
		}
		return err
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if server := overrides.Server; server != nil {
		if server.Host != "" {
			c.Server.Host = server.Host
		}
		if server.Port != 0 {
			c.Server.Port = server.Port
		}
		if server.Root != "" {
			c.Server.Root = server.Root
		}
		if server.StallTimeout != "" {
			c.Server.StallTimeout = server.StallTimeout
		}
		if server.DrainTimeout != "" {
			c.Server.DrainTimeout = server.DrainTimeout
		}
		if server.ChunkSize != 0 {
			c.Server.ChunkSize = server.ChunkSize
		}
	}

	if client := overrides.Client; client != nil {
		if client.Server != "" {
			c.Client.Server = client.Server
		}
		if client.ToolsDir != "" {
			c.Client.ToolsDir = client.ToolsDir
		}
		if client.DataDir != "" {
			c.Client.DataDir = client.DataDir
		}
		if client.DialTimeout != "" {
			c.Client.DialTimeout = client.DialTimeout
		}
		if client.ReadTimeout != "" {
			c.Client.ReadTimeout = client.ReadTimeout
		}
	}
}

// ApplyClientEnvironment lets CKG_SERVER, CKG_TOOLS_DIR and
// CKG_DATA_DIR replace the client settings. Call it after Load and
// before applying flags.
func (c *Config) ApplyClientEnvironment() {
	if value := os.Getenv(EnvServer); value != "" {
		c.Client.Server = value
	}
	if value := os.Getenv(EnvToolsDir); value != "" {
		c.Client.ToolsDir = expandVars(value, nil)
	}
	if value := os.Getenv(EnvDataDir); value != "" {
		c.Client.DataDir = expandVars(value, nil)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Server.Root = expandVars(c.Server.Root, vars)
	c.Client.ToolsDir = expandVars(c.Client.ToolsDir, vars)
	c.Client.DataDir = expandVars(c.Client.DataDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Root == "" {
		errs = append(errs, errors.New("server.root is required"))
	}
	if c.Server.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("server.chunk_size must be positive, got %d", c.Server.ChunkSize))
	}
	errs = appendDurationError(errs, "server.stall_timeout", c.Server.StallTimeout)
	errs = appendDurationError(errs, "server.drain_timeout", c.Server.DrainTimeout)

	if _, _, err := net.SplitHostPort(c.Client.Server); err != nil {
		errs = append(errs, fmt.Errorf("client.server must be host:port: %w", err))
	}
	if c.Client.ToolsDir == "" {
		errs = append(errs, errors.New("client.tools_dir is required"))
	}
	if c.Client.DataDir == "" {
		errs = append(errs, errors.New("client.data_dir is required"))
	}
	errs = appendDurationError(errs, "client.dial_timeout", c.Client.DialTimeout)
	errs = appendDurationError(errs, "client.read_timeout", c.Client.ReadTimeout)

	return errors.Join(errs...)
}

func appendDurationError(errs []error, field, value string) []error {
	if _, err := parseDuration(value); err != nil {
		return append(errs, fmt.Errorf("%s: %w", field, err))
	}
	return errs
}

// parseDuration accepts "" and "0" as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("duration %q is negative", value)
	}
	return duration, nil
}

// Address returns the host:port the server listens on.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StallTimeoutDuration returns the parsed stall timeout. Invalid values
// yield zero; Validate reports them.
func (s ServerConfig) StallTimeoutDuration() time.Duration {
	duration, _ := parseDuration(s.StallTimeout)
	return duration
}

// DrainTimeoutDuration returns the parsed drain timeout.
func (s ServerConfig) DrainTimeoutDuration() time.Duration {
	duration, _ := parseDuration(s.DrainTimeout)
	return duration
}

// DialTimeoutDuration returns the parsed dial timeout.
func (c ClientConfig) DialTimeoutDuration() time.Duration {
	duration, _ := parseDuration(c.DialTimeout)
	return duration
}

// ReadTimeoutDuration returns the parsed read timeout.
func (c ClientConfig) ReadTimeoutDuration() time.Duration {
	duration, _ := parseDuration(c.ReadTimeout)
	return duration
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: want debug, info, warn or error", name)
	}
	return level, nil
}
