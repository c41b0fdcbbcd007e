package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	xdgAppName = "cadence"
	configName = "config"
	configType = "json"
	envPrefix  = "CADENCE"

	DefaultCalendar = "Tasks"
)

// Config holds all client settings. Environment variables (CADENCE_API_URL,
// CADENCE_CALENDAR_NAME, ...) take precedence over the config file.
type Config struct {
	APIURL      string         `mapstructure:"api_url" json:"api_url" validate:"required,url"`
	LogLevel    string         `mapstructure:"log_level" json:"log_level" validate:"required,oneof=debug info warn error"`
	HTTPTimeout time.Duration  `mapstructure:"http_timeout" json:"http_timeout" validate:"gt=0"`
	Calendar    CalendarConfig `mapstructure:"calendar" json:"calendar"`
}

// CalendarConfig controls mirroring tasks into Google Calendar.
type CalendarConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Name     string `mapstructure:"name" json:"name" validate:"required"`
	TimeZone string `mapstructure:"time_zone" json:"time_zone" validate:"required"`
}

// GetConfigDir returns ~/.config/cadence.
func GetConfigDir() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName), nil
}

// Load reads the config from the default directory.
func Load() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)

	v.SetDefault("api_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("calendar.enabled", false)
	v.SetDefault("calendar.name", DefaultCalendar)
	v.SetDefault("calendar.time_zone", "UTC")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadFrom reads dir/config.json, if present, and the environment. A missing
// file is not an error.
func LoadFrom(dir string) (*Config, error) {
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return &cfg, nil
}

// Validate checks the settings needed to talk to the API.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location returns the calendar time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar time zone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

// Save writes cfg to the default directory.
func Save(cfg *Config) error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return SaveTo(dir, cfg)
}

// SaveTo writes cfg to dir/config.json.
func SaveTo(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("api_url", cfg.APIURL)
	v.Set("log_level", cfg.LogLevel)
	v.Set("http_timeout", cfg.HTTPTimeout.String())
	v.Set("calendar.enabled", cfg.Calendar.Enabled)
	v.Set("calendar.name", cfg.Calendar.Name)
	v.Set("calendar.time_zone", cfg.Calendar.TimeZone)

	path := filepath.Join(dir, configName+"."+configType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}
