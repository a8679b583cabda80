// Package config loads the settings of the graphlite command from defaults,
// an optional file and GRAPHLITE_ environment variables.
package config

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Config is the top-level configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Schemas  SchemasConfig  `mapstructure:"schemas"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Driver      string        `mapstructure:"driver"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	JournalMode string        `mapstructure:"journal_mode"`
}

type SchemasConfig struct {
	Dir              string `mapstructure:"dir"`
	DeleteOnConflict bool   `mapstructure:"delete_on_conflict"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validDrivers      = []string{"sqlite3", "sqlite"}
	validJournalModes = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"}
	validLevels       = []string{"debug", "info", "warn", "error"}
	validFormats      = []string{"text", "json"}
)

// Load reads configuration from path (optional) with environment overrides
// (prefix GRAPHLITE_, dots become underscores) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "graph.db")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("schemas.dir", "schemas")
	v.SetDefault("schemas.delete_on_conflict", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("GRAPHLITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, glerr.Errorf(glerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, glerr.Errorf(glerr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}
	cfg.Database.JournalMode = strings.ToUpper(cfg.Database.JournalMode)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, glerr.Errorf(glerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate collects every configuration error instead of stopping at the
// first one.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateLog()...)
	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue, "config: database.path must not be empty"))
	}
	if !slices.Contains(validDrivers, c.Database.Driver) {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue,
			"config: database.driver must be one of %v, got %q", validDrivers, c.Database.Driver))
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue,
			"config: database.busy_timeout must not be negative, got %s", c.Database.BusyTimeout))
	}
	if !slices.Contains(validJournalModes, c.Database.JournalMode) {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue,
			"config: database.journal_mode must be one of %v, got %q", validJournalModes, c.Database.JournalMode))
	}
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if !slices.Contains(validLevels, c.Log.Level) {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue,
			"config: log.level must be one of %v, got %q", validLevels, c.Log.Level))
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		errs = append(errs, glerr.Errorf(glerr.CodeConfigValidateInvalidValue,
			"config: log.format must be one of %v, got %q", validFormats, c.Log.Format))
	}
	return errs
}

// NewLogger builds the slog logger the log section describes.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
