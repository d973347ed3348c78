// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/spice/spice.db"

// Config is the typed view of the viper configuration tree.
type Config struct {
	Database       DatabaseConfig       `mapstructure:"database"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Learning       LearningConfig       `mapstructure:"learning"`
	Categorization CategorizationConfig `mapstructure:"categorization"`
	Sweep          SweepConfig          `mapstructure:"sweep"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CategorizationConfig tunes the decision step.
type CategorizationConfig struct {
	AutoApplyThreshold int `mapstructure:"auto_apply_threshold"`
	SuggestionLimit    int `mapstructure:"suggestion_limit"`
}

// LearningConfig tunes merchant learning.
type LearningConfig struct {
	Rate              float64 `mapstructure:"rate"`
	InitialConfidence int     `mapstructure:"initial_confidence"`
	SeedKeywords      bool    `mapstructure:"seed_keywords"`
}

// SweepConfig tunes the uncategorized sweep.
type SweepConfig struct {
	Workers int `mapstructure:"workers"`
}

// MetricsConfig controls metric export. An empty textfile disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("categorization.auto_apply_threshold", 80)
	v.SetDefault("categorization.suggestion_limit", 5)
	v.SetDefault("learning.rate", 0.25)
	v.SetDefault("learning.initial_confidence", 80)
	v.SetDefault("learning.seed_keywords", true)
	v.SetDefault("sweep.workers", 4)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Metrics.Textfile = ExpandPath(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Categorization.AutoApplyThreshold < 0 || c.Categorization.AutoApplyThreshold > 100 {
		return fmt.Errorf("%w: categorization.auto_apply_threshold must be between 0 and 100, got %d",
			common.ErrInvalidConfig, c.Categorization.AutoApplyThreshold)
	}
	if c.Categorization.SuggestionLimit <= 0 {
		return fmt.Errorf("%w: categorization.suggestion_limit must be positive", common.ErrInvalidConfig)
	}
	if c.Learning.Rate <= 0 || c.Learning.Rate > 1 {
		return fmt.Errorf("%w: learning.rate must be in (0, 1], got %.2f", common.ErrInvalidConfig, c.Learning.Rate)
	}
	if c.Learning.InitialConfidence < 0 || c.Learning.InitialConfidence > 100 {
		return fmt.Errorf("%w: learning.initial_confidence must be between 0 and 100", common.ErrInvalidConfig)
	}
	if c.Sweep.Workers <= 0 {
		return fmt.Errorf("%w: sweep.workers must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
