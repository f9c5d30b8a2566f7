// Package config loads client settings and resolves the configuration
// directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskmate"

	// ConfigFile is the optional settings filename inside the config dir.
	ConfigFile = "config.yaml"

	// SessionFile is the stored session filename inside the config dir.
	SessionFile = "session.json"

	// EnvPrefix prefixes environment overrides, e.g. TASKMATE_SERVER_URL.
	EnvPrefix = "TASKMATE"
)

// Notification sink names accepted by the notifications setting.
const (
	NotifyStderr = "stderr"
	NotifyLog    = "log"
	NotifyOff    = "off"
	NotifyBoth   = "both" // stderr and log
)

// Config holds the client settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-" mapstructure:"-"`

	ServerURL             string        `yaml:"server_url" mapstructure:"server_url"`
	Timeout               time.Duration `yaml:"timeout" mapstructure:"timeout"`
	LogLevel              string        `yaml:"log_level" mapstructure:"log_level"`
	Notifications         string        `yaml:"notifications" mapstructure:"notifications"`
	ProfileInsertAttempts int           `yaml:"profile_insert_attempts" mapstructure:"profile_insert_attempts"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		ServerURL:             "http://localhost:8080",
		Timeout:               10 * time.Second,
		LogLevel:              "warn",
		Notifications:         NotifyStderr,
		ProfileInsertAttempts: 2,
	}
}

// Load merges defaults, the optional config.yaml in dir and TASKMATE_*
// environment variables, in that order. An empty dir means DefaultDir.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	def := Default()

	v := viper.New()
	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("notifications", def.Notifications)
	v.SetDefault("profile_insert_attempts", def.ProfileInsertAttempts)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Notifications {
	case NotifyStderr, NotifyLog, NotifyOff, NotifyBoth:
	default:
		return fmt.Errorf("notifications must be one of %s, %s, %s, %s; got %q",
			NotifyStderr, NotifyLog, NotifyOff, NotifyBoth, c.Notifications)
	}
	if c.ProfileInsertAttempts < 1 {
		return fmt.Errorf("profile_insert_attempts must be at least 1, got %d", c.ProfileInsertAttempts)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// DefaultDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path of the settings file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SessionPath returns the path of the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}
