// Package config loads liftlog's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meltforce/liftlog/internal/analytics"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Settings  SettingsConfig  `yaml:"settings"`
	Library   LibraryConfig   `yaml:"library"`
	Training  TrainingConfig  `yaml:"training"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SettingsConfig locates the SQLite file holding user settings.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// LibraryConfig points at an optional user exercise catalog.
type LibraryConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// TrainingConfig holds the defaults for analytics settings that the user
// has not changed yet, plus the rest period for sets without one.
type TrainingConfig struct {
	DefaultRestSeconds      int  `yaml:"default_rest_seconds"`
	SecondsPerSet           int  `yaml:"seconds_per_set"`
	CountWarmupAsEffective  bool `yaml:"count_warmup_as_effective"`
	CountDropSetAsEffective bool `yaml:"count_drop_set_as_effective"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Log formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database:  DatabaseConfig{Port: 5432, SSLMode: "disable"},
		Tailscale: TailscaleConfig{Hostname: "liftlog", StateDir: "tsnet-state"},
		Settings:  SettingsConfig{Path: "liftlog-settings.db"},
		Training: TrainingConfig{
			DefaultRestSeconds: analytics.DefaultRestSeconds,
			SecondsPerSet:      analytics.DefaultSecondsPerSet,
		},
		Log: LogConfig{Level: "info", Format: FormatText},
	}
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Validate reports missing connection fields. Only commands that talk to
// PostgreSQL call it.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.New("database.host is required")
	}
	if d.Port == 0 {
		return errors.New("database.port is required")
	}
	if d.Name == "" {
		return errors.New("database.name is required")
	}
	if d.User == "" {
		return errors.New("database.user is required")
	}
	return nil
}

// Analytics returns the analytics settings defaults from the training
// section.
func (t TrainingConfig) Analytics() analytics.Settings {
	return analytics.Settings{
		CountWarmupAsEffective:  t.CountWarmupAsEffective,
		CountDropSetAsEffective: t.CountDropSetAsEffective,
		SecondsPerSet:           t.SecondsPerSet,
	}
}

// SlogLevel parses the configured level. Unknown levels were rejected by
// Load, so the fallback is never reached for a loaded config.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads config from a YAML file, then applies environment variable
// overrides. An empty path skips the file. Env vars use the prefix LIFTLOG_:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_TAILSCALE_ENABLED, LIFTLOG_TAILSCALE_HOSTNAME, LIFTLOG_TAILSCALE_STATE_DIR,
//	LIFTLOG_SETTINGS_PATH, LIFTLOG_LIBRARY_PATH, LIFTLOG_LIBRARY_WATCH,
//	LIFTLOG_DEFAULT_REST_SECONDS, LIFTLOG_SECONDS_PER_SET,
//	LIFTLOG_LOG_LEVEL, LIFTLOG_LOG_FORMAT
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	envString("LIFTLOG_SERVER_HOST", &cfg.Server.Host)
	envString("LIFTLOG_DB_HOST", &cfg.Database.Host)
	envString("LIFTLOG_DB_NAME", &cfg.Database.Name)
	envString("LIFTLOG_DB_USER", &cfg.Database.User)
	envString("LIFTLOG_DB_PASSWORD", &cfg.Database.Password)
	envString("LIFTLOG_DB_SSLMODE", &cfg.Database.SSLMode)
	envString("LIFTLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	envString("LIFTLOG_TAILSCALE_STATE_DIR", &cfg.Tailscale.StateDir)
	envString("LIFTLOG_SETTINGS_PATH", &cfg.Settings.Path)
	envString("LIFTLOG_LIBRARY_PATH", &cfg.Library.Path)
	envString("LIFTLOG_LOG_LEVEL", &cfg.Log.Level)
	envString("LIFTLOG_LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(
		envInt("LIFTLOG_SERVER_PORT", &cfg.Server.Port),
		envInt("LIFTLOG_DB_PORT", &cfg.Database.Port),
		envInt("LIFTLOG_DEFAULT_REST_SECONDS", &cfg.Training.DefaultRestSeconds),
		envInt("LIFTLOG_SECONDS_PER_SET", &cfg.Training.SecondsPerSet),
		envBool("LIFTLOG_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled),
		envBool("LIFTLOG_LIBRARY_WATCH", &cfg.Library.Watch),
	)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return errors.New("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Settings.Path == "" {
		return errors.New("settings.path is required")
	}
	if c.Library.Watch && c.Library.Path == "" {
		return errors.New("library.watch requires library.path")
	}
	if c.Training.DefaultRestSeconds <= 0 {
		return errors.New("training.default_rest_seconds must be positive")
	}
	if c.Training.SecondsPerSet <= 0 {
		return errors.New("training.seconds_per_set must be positive")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case FormatText, FormatJSON, FormatPretty:
	default:
		return fmt.Errorf("log.format %q must be text, json or pretty", c.Log.Format)
	}
	return nil
}
