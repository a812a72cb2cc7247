// Package config loads pulseboard settings from ~/.pulseboard/config.json,
// an optional .env file and PULSEBOARD_* environment variables, in that
// order of increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables that override the config file.
const (
	EnvDataDir     = "PULSEBOARD_DATA_DIR"
	EnvDBPath      = "PULSEBOARD_DB_PATH"
	EnvSocket      = "PULSEBOARD_SOCKET"
	EnvSnapshotDir = "PULSEBOARD_SNAPSHOT_DIR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = "PULSEBOARD_LOG_LEVEL"
	EnvLogFile     = "PULSEBOARD_LOG_FILE"
	EnvRefresh     = "PULSEBOARD_REFRESH_INTERVAL"
	EnvTopN        = "PULSEBOARD_TOP_N"
)

// Config holds all CLI and daemon configuration.
type Config struct {
	DataDir     string `json:"data_dir"`
	SocketPath  string `json:"socket_path"`
	DBPath      string `json:"db_path"`
	SnapshotDir string `json:"snapshot_dir"`

	// DatabaseURL points at the dashboard's Postgres database. When set,
	// the daemon re-imports from it every RefreshInterval.
	DatabaseURL     string `json:"database_url"`
	RefreshInterval string `json:"refresh_interval"`

	IgnorePatterns []string `json:"ignore_patterns"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	Report ReportDefaults `json:"report"`
}

// ReportDefaults are applied when a report request leaves a field unset.
type ReportDefaults struct {
	Window     string `json:"window"`
	TopN       int    `json:"top_n"`
	AtRiskCap  int    `json:"at_risk_cap"`
	MinSample  int    `json:"min_sample"`
	SeriesDays int    `json:"series_days"`
}

// DefaultDataDir returns the default data directory (~/.pulseboard).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pulseboard")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir:         dataDir,
		SocketPath:      filepath.Join(dataDir, "pulseboard.sock"),
		DBPath:          filepath.Join(dataDir, "pulseboard.db"),
		SnapshotDir:     filepath.Join(dataDir, "snapshots"),
		RefreshInterval: "5m",
		IgnorePatterns:  []string{},
		LogLevel:        "info",
		Report: ReportDefaults{
			Window:     "all",
			TopN:       5,
			AtRiskCap:  3,
			MinSample:  1,
			SeriesDays: 7,
		},
	}
}

// Load reads configuration from a JSON file, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Paths left empty in the file are derived from data_dir below.
		cfg.SocketPath, cfg.DBPath, cfg.SnapshotDir = "", "", ""
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}
	cfg.applyEnv()
	cfg.derivePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		if c.DataDir != v {
			// A new data dir moves every derived path with it.
			c.SocketPath, c.DBPath, c.SnapshotDir = "", "", ""
		}
		c.DataDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvSocket); v != "" {
		c.SocketPath = v
	}
	if v := os.Getenv(EnvSnapshotDir); v != "" {
		c.SnapshotDir = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvRefresh); v != "" {
		c.RefreshInterval = v
	}
	if v := os.Getenv(EnvTopN); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Report.TopN = n
		}
	}
}

func (c *Config) derivePaths() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "pulseboard.sock")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "pulseboard.db")
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = filepath.Join(c.DataDir, "snapshots")
	}
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := c.Refresh(); err != nil {
		return err
	}
	if c.Report.TopN < 0 || c.Report.AtRiskCap < 0 || c.Report.MinSample < 0 || c.Report.SeriesDays < 0 {
		return fmt.Errorf("report defaults must not be negative")
	}
	switch c.Report.Window {
	case "", "week", "month", "quarter", "all":
	default:
		return fmt.Errorf("report.window: unknown window %q", c.Report.Window)
	}
	return nil
}

// Refresh returns the Postgres re-import interval.
func (c *Config) Refresh() (time.Duration, error) {
	if c.RefreshInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("refresh_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("refresh_interval must not be negative")
	}
	return d, nil
}

// EnsureDataDir creates the data and snapshot directories if they do not exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.SnapshotDir, 0755)
}

// ConfigPath returns the default path to the config file.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.json")
}
