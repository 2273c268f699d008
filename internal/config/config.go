package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-insights/internal/categorizer"
	"github.com/insightdelivered/statement-insights/internal/models"
)

// EnvPrefix is prepended to every environment override, e.g.
// STATEMENT_INSIGHTS_SERVER_PORT.
const EnvPrefix = "STATEMENT_INSIGHTS"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime settings for the CLI and the HTTP server.
type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Anomaly struct {
		Contamination float64 `mapstructure:"contamination"`
		ZThreshold    float64 `mapstructure:"z_threshold"`
	} `mapstructure:"anomaly"`

	Duplicates struct {
		WindowDays int `mapstructure:"window_days"`
	} `mapstructure:"duplicates"`

	Trends struct {
		Window int `mapstructure:"window"`
	} `mapstructure:"trends"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	// Categories replaces the built-in category list when non-empty.
	Categories []models.Category `mapstructure:"categories"`
	// CategoryOverrides is merged onto the active category list.
	CategoryOverrides []models.Category `mapstructure:"category_overrides"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("anomaly.contamination", 0.1)
	v.SetDefault("anomaly.z_threshold", 3.0)
	v.SetDefault("duplicates.window_days", 1)
	v.SetDefault("trends.window", 7)
	v.SetDefault("database.path", "")
}

// Load reads settings from the optional file at path and from the
// environment. Environment variables take precedence over the file, which
// takes precedence over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings without reading any file or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d", ErrInvalidConfig, c.Server.Port)
	case !(c.Anomaly.Contamination > 0 && c.Anomaly.Contamination <= 0.5):
		return fmt.Errorf("%w: anomaly.contamination %v must be in (0, 0.5]", ErrInvalidConfig, c.Anomaly.Contamination)
	case c.Anomaly.ZThreshold <= 0:
		return fmt.Errorf("%w: anomaly.z_threshold %v must be positive", ErrInvalidConfig, c.Anomaly.ZThreshold)
	case c.Duplicates.WindowDays < 0:
		return fmt.Errorf("%w: duplicates.window_days %d must not be negative", ErrInvalidConfig, c.Duplicates.WindowDays)
	case c.Trends.Window < 1:
		return fmt.Errorf("%w: trends.window %d must be at least 1", ErrInvalidConfig, c.Trends.Window)
	}
	for _, cat := range append(append([]models.Category(nil), c.Categories...), c.CategoryOverrides...) {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("%w: category without a name", ErrInvalidConfig)
		}
	}
	return nil
}

// CategoryConfig builds the ordered category list: the configured
// categories (or the defaults when none are set) with overrides merged in.
func (c *Config) CategoryConfig() categorizer.Config {
	base := categorizer.DefaultConfig()
	if len(c.Categories) > 0 {
		base = categorizer.Config(c.Categories).Clone()
	}
	return base.Merge(c.CategoryOverrides)
}
