// Package config loads DataPyn configuration from files, environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/datapyn/datapyn/internal/adapter"
)

// ConnectionConfig holds the settings for one database connection.
type ConnectionConfig struct {
	Type string `koanf:"type"` // duckdb, sqlite, postgres

	// Path is the file path for file-based databases (DuckDB, SQLite).
	// ":memory:" is allowed.
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Config holds all CLI configuration options.
type Config struct {
	// Connection is the default connection.
	Connection *ConnectionConfig `koanf:"connection"`

	// Connections holds named profiles selectable with --profile.
	Connections map[string]*ConnectionConfig `koanf:"connections"`

	// Profile names the connection profile to use; empty means the
	// default connection.
	Profile string `koanf:"profile"`

	// LibsDir holds .star helper files loaded into every session.
	LibsDir string `koanf:"libs_dir"`

	// HistoryPath is the SQLite file where execution history is kept.
	// Empty disables history.
	HistoryPath string `koanf:"history_path"`

	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultLibsDir     = "libs"
	DefaultHistoryPath = ".datapyn/history.db"
	DefaultOutput      = "table"
)

// ToAdapterConfig converts a connection config into the adapter layer's
// config type.
func (c *ConnectionConfig) ToAdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(c.Type),
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.User,
		Password: c.Password,
		Schema:   c.Schema,
		Options:  c.Options,
	}
}

// ActiveConnection resolves the connection selected by Profile, falling
// back to the default connection.
func (c *Config) ActiveConnection() (*ConnectionConfig, error) {
	if c.Profile != "" {
		conn, ok := c.Connections[c.Profile]
		if !ok {
			return nil, fmt.Errorf("unknown connection profile: %s", c.Profile)
		}
		return conn, nil
	}
	if c.Connection == nil {
		return nil, fmt.Errorf("no connection configured")
	}
	return c.Connection, nil
}

// Validate checks the configuration for problems that would fail later
// anyway, but with worse messages.
func (c *Config) Validate() error {
	if c.Connection != nil {
		if err := validateConnection("default", c.Connection); err != nil {
			return err
		}
	}
	for name, conn := range c.Connections {
		if err := validateConnection(name, conn); err != nil {
			return err
		}
	}
	if c.Profile != "" {
		if _, ok := c.Connections[c.Profile]; !ok {
			return fmt.Errorf("unknown connection profile: %s", c.Profile)
		}
	}
	return nil
}

func validateConnection(name string, conn *ConnectionConfig) error {
	if conn.Type == "" {
		return fmt.Errorf("connection %q: type is required", name)
	}
	if !adapter.IsRegistered(strings.ToLower(conn.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      conn.Type,
			Available: adapter.List(),
		}
	}
	return nil
}
