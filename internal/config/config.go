// Package config loads the service configuration from defaults, an optional
// YAML file, .env files and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the backend. A postgres:// DSN selects Postgres,
// sqlite: or file: selects SQLite.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxConns     int           `yaml:"max_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HTTPConfig holds middleware and endpoint switches.
type HTTPConfig struct {
	RateLimitRPS        float64  `yaml:"rate_limit_rps"`
	RateLimitBurst      int      `yaml:"rate_limit_burst"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes"`
	CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
	// TrustedProxies lists peer IPs whose X-Forwarded-For header is honoured
	// by the rate limiter.
	TrustedProxies      []string `yaml:"trusted_proxies"`
	EnableSetupEndpoint bool     `yaml:"enable_setup_endpoint"`
	EnableHSTS          bool     `yaml:"enable_hsts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          "sqlite:books.db",
			MaxConns:     10,
			QueryTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		HTTP: HTTPConfig{
			RateLimitRPS:        20,
			RateLimitBurst:      40,
			MaxBodyBytes:        1 << 20,
			EnableSetupEndpoint: true,
		},
	}
}

// LoadEnvFiles loads .env and .env.local without overriding variables that
// are already set (e.g. by Docker).
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration. path names an optional YAML file; when empty
// the CONFIG_FILE variable is consulted.
func Load(path string) (*Config, error) {
	LoadEnvFiles()

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error

	if v := os.Getenv("APP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("DB_MAX_CONNS", err))
		cfg.Database.MaxConns = n
	}
	if v := os.Getenv("DB_QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		errs = append(errs, envErr("DB_QUERY_TIMEOUT", err))
		cfg.Database.QueryTimeout = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		errs = append(errs, envErr("RATE_LIMIT_RPS", err))
		cfg.HTTP.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("RATE_LIMIT_BURST", err))
		cfg.HTTP.RateLimitBurst = n
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		errs = append(errs, envErr("MAX_BODY_BYTES", err))
		cfg.HTTP.MaxBodyBytes = n
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.HTTP.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("ENABLE_SETUP_ENDPOINT"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("ENABLE_SETUP_ENDPOINT", err))
		cfg.HTTP.EnableSetupEndpoint = b
	}
	if v := os.Getenv("ENABLE_HSTS"); v != "" {
		cfg.HTTP.EnableHSTS = v == "true"
	}

	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, "database.query_timeout must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		errs = append(errs, "http rate limit rps and burst must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, "http.max_body_bytes must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
