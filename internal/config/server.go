package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Server holds the backend server settings, read from the environment.
type Server struct {
	Port         string
	DatabasePath string
	JWTSecret    string
	BcryptCost   int
	TokenTTL     time.Duration
	SigninRate   float64 // refills per second, per email
	SigninBurst  float64
}

// LoadServer reads the server settings through getenv, usually os.Getenv.
func LoadServer(getenv func(string) string) (*Server, error) {
	envOrDefault := func(key, defaultVal string) string {
		if val := getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	cfg := &Server{
		Port:         envOrDefault("PORT", "8080"),
		DatabasePath: envOrDefault("DATABASE_PATH", "taskmate.db"),
		JWTSecret:    getenv("JWT_SECRET"),
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	cost, err := strconv.Atoi(envOrDefault("BCRYPT_COST", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if cost < 4 || cost > 14 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cost)
	}
	cfg.BcryptCost = cost

	ttl, err := time.ParseDuration(envOrDefault("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", ttl)
	}
	cfg.TokenTTL = ttl

	if cfg.SigninRate, err = parseNonNegative("SIGNIN_RATE", envOrDefault("SIGNIN_RATE", "0.1")); err != nil {
		return nil, err
	}
	if cfg.SigninBurst, err = parseNonNegative("SIGNIN_BURST", envOrDefault("SIGNIN_BURST", "5")); err != nil {
		return nil, err
	}
	if cfg.SigninBurst < 1 {
		return nil, fmt.Errorf("SIGNIN_BURST must be at least 1, got %g", cfg.SigninBurst)
	}
	return cfg, nil
}

func parseNonNegative(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %g", key, v)
	}
	return v, nil
}
