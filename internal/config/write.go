package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned by WriteDefault when the file is already present.
var ErrExists = errors.New("config file already exists")

type fileConfig struct {
	ServerURL             string `yaml:"server_url"`
	Timeout               string `yaml:"timeout"`
	LogLevel              string `yaml:"log_level"`
	Notifications         string `yaml:"notifications"`
	ProfileInsertAttempts int    `yaml:"profile_insert_attempts"`
}

// WriteDefault writes cfg to config.yaml in dir, creating dir with mode 0700.
// An existing file is only replaced when force is set.
func WriteDefault(dir string, cfg *Config, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFile)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, ErrExists
		}
	}

	data, err := yaml.Marshal(fileConfig{
		ServerURL:             cfg.ServerURL,
		Timeout:               cfg.Timeout.String(),
		LogLevel:              cfg.LogLevel,
		Notifications:         cfg.Notifications,
		ProfileInsertAttempts: cfg.ProfileInsertAttempts,
	})
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
