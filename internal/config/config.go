package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig holds the sqlite telemetry sink settings.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// TelemetryConfig controls event delivery.
type TelemetryConfig struct {
	// LogEvents mirrors every event into the log file.
	LogEvents   bool          `mapstructure:"log_events"`
	SinkTimeout time.Duration `mapstructure:"sink_timeout"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	RoutesFile    string        `mapstructure:"routes_file"`
	StartRoute    string        `mapstructure:"start_route"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "routepulse")
}

// Path is the config file location: $ROUTEPULSE_CONFIG or
// ~/.config/routepulse/config.toml.
func Path() string {
	if p := os.Getenv("ROUTEPULSE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "routepulse", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix ROUTEPULSE_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(dataDir(), "telemetry.db"))
	v.SetDefault("database.enabled", true)
	v.SetDefault("telemetry.log_events", true)
	v.SetDefault("telemetry.sink_timeout", 2*time.Second)
	v.SetDefault("ui.frame_interval", 16*time.Millisecond)
	v.SetDefault("ui.routes_file", "")
	v.SetDefault("ui.start_route", "index")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dataDir(), "routepulse.log"))

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("ROUTEPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing config file is fine, a malformed one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.UI.FrameInterval <= 0 {
		return Config{}, fmt.Errorf("ui.frame_interval must be positive, got %s", c.UI.FrameInterval)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.enabled", cfg.Database.Enabled)
	v.Set("telemetry.log_events", cfg.Telemetry.LogEvents)
	v.Set("telemetry.sink_timeout", cfg.Telemetry.SinkTimeout.String())
	v.Set("ui.frame_interval", cfg.UI.FrameInterval.String())
	v.Set("ui.routes_file", cfg.UI.RoutesFile)
	v.Set("ui.start_route", cfg.UI.StartRoute)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
