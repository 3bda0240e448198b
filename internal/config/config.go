// Package config loads server settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given. It may be absent.
const DefaultPath = "zaloga.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Addr     string `yaml:"addr"`
	DBPath   string `yaml:"dbPath"`
	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"`

	// JWTSecret signs session tokens. Empty means the secret stored in the
	// database is used, generating one on first start.
	JWTSecret    string `yaml:"jwtSecret"`
	TokenTTL     string `yaml:"tokenTTL"`
	BcryptCost   int    `yaml:"bcryptCost"`
	RequireToken bool   `yaml:"requireToken"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`

	// RedisAddr enables login and registration throttling when set.
	RedisAddr               string `yaml:"redisAddr"`
	RedisPassword           string `yaml:"redisPassword"`
	LoginRateLimitPerMinute int    `yaml:"loginRateLimitPerMinute"`

	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

// Defaults returns the settings used for anything the file and environment
// leave unset.
func Defaults() FileConfig {
	return FileConfig{
		Addr:                    ":8080",
		DBPath:                  "zaloga.sqlite3",
		LogLevel:                "info",
		TokenTTL:                "168h",
		MaxBodyBytes:            10 << 20,
		LoginRateLimitPerMinute: 10,
		ShutdownTimeout:         "5s",
	}
}

// Load reads config from path, applies ZALOGA_* environment overrides and
// validates the result. An empty path reads DefaultPath if it exists.
func Load(path string) (FileConfig, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from the environment.
func applyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ZALOGA_ADDR", &cfg.Addr)
	str("ZALOGA_DB", &cfg.DBPath)
	str("ZALOGA_LOG_LEVEL", &cfg.LogLevel)
	str("ZALOGA_LOG_FILE", &cfg.LogFile)
	str("ZALOGA_JWT_SECRET", &cfg.JWTSecret)
	str("ZALOGA_TOKEN_TTL", &cfg.TokenTTL)
	str("ZALOGA_REDIS_ADDR", &cfg.RedisAddr)
	str("ZALOGA_REDIS_PASSWORD", &cfg.RedisPassword)
	str("ZALOGA_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if v, ok := lookup("ZALOGA_REQUIRE_TOKEN"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: ZALOGA_REQUIRE_TOKEN: %w", err)
		}
		cfg.RequireToken = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ZALOGA_BCRYPT_COST", &cfg.BcryptCost},
		{"ZALOGA_LOGIN_RATE_LIMIT_PER_MINUTE", &cfg.LoginRateLimitPerMinute},
	}
	for _, e := range ints {
		if v, ok := lookup(e.key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("config: %s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	if v, ok := lookup("ZALOGA_MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("config: ZALOGA_MAX_BODY_BYTES: %w", err)
		}
		cfg.MaxBodyBytes = n
	}
	return nil
}

// Validate checks that the settings are usable.
func (c FileConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr is required")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: dbPath is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.TokenLifetime(); err != nil {
		return err
	}
	if _, err := c.ShutdownGrace(); err != nil {
		return err
	}
	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return fmt.Errorf("config: bcryptCost %d out of range 4-31", c.BcryptCost)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: maxBodyBytes must be > 0")
	}
	if c.LoginRateLimitPerMinute < 0 {
		return errors.New("config: loginRateLimitPerMinute must be >= 0")
	}
	return nil
}

// Level returns the configured log level.
func (c FileConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid logLevel %q", c.LogLevel)
	}
	return level, nil
}

// TokenLifetime returns the parsed session token lifetime.
func (c FileConfig) TokenLifetime() (time.Duration, error) {
	return parseDuration("tokenTTL", c.TokenTTL)
}

// ShutdownGrace returns how long in-flight requests get on shutdown.
func (c FileConfig) ShutdownGrace() (time.Duration, error) {
	return parseDuration("shutdownTimeout", c.ShutdownTimeout)
}

// RateLimitEnabled reports whether login throttling should be wired.
func (c FileConfig) RateLimitEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != "" && c.LoginRateLimitPerMinute > 0
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", name)
	}
	return d, nil
}
