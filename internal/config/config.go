package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"PORT"`
		ReadTimeout    string   `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout   string   `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
		AllowedOrigins []string `yaml:"allowedOrigins" env:"SERVER_ALLOWED_ORIGINS"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl" env:"QUIZ_CACHE_TTL"`
	} `yaml:"quiz"`
	Session struct {
		PreStartSeconds int    `yaml:"preStartSeconds" env:"SESSION_PRE_START_SECONDS"`
		ResultsSeconds  int    `yaml:"resultsSeconds" env:"SESSION_RESULTS_SECONDS"`
		ComposeTimeout  string `yaml:"composeTimeout" env:"SESSION_COMPOSE_TIMEOUT"`
		SearchLimit     int    `yaml:"searchLimit" env:"SESSION_SEARCH_LIMIT"`
		ChatMaxLength   int    `yaml:"chatMaxLength" env:"SESSION_CHAT_MAX_LENGTH"`
	} `yaml:"session"`
	Auth struct {
		Mode          string `yaml:"mode" env:"AUTH_MODE"`
		CookieName    string `yaml:"cookieName" env:"AUTH_COOKIE_NAME"`
		SessionPrefix string `yaml:"sessionPrefix" env:"AUTH_SESSION_PREFIX"`
		JWTSecret     string `yaml:"jwtSecret" env:"AUTH_JWT_SECRET"`
	} `yaml:"auth"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

// Auth modes.
const (
	AuthSession = "session"
	AuthJWT     = "jwt"
	AuthQuery   = "query"
)

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error: the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthSession
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LogLevel maps the configured level name, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}
