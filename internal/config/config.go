package config // package config loads the console configuration from .env, an optional YAML file and the environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
)

// Config holds all runtime configuration values.  Values come from, in
// increasing priority: built-in defaults, the YAML file named by
// CONSOLE_CONFIG, and environment variables (including a .env file).
type Config struct {
	Env            string          `yaml:"env"`              // APP_ENV
	Addr           string          `yaml:"addr"`             // CONSOLE_ADDR, where the console HTTP surface listens
	APIURL         string          `yaml:"api_url"`          // RESERVEEASE_API_URL, backend base URL
	APITimeout     time.Duration   `yaml:"api_timeout"`      // API_TIMEOUT, per request
	TokenStore     string          `yaml:"token_store"`      // TOKEN_STORE: memory, bolt or redis
	TokenStorePath string          `yaml:"token_store_path"` // TOKEN_STORE_PATH, bolt file
	Timezone       string          `yaml:"timezone"`         // TIMEZONE, IANA name used for day boundaries
	BoardPolicy    string          `yaml:"board_rollback_policy"`
	AMQPURL        string          `yaml:"amqp_url"`       // RABBITMQ_URL or AMQP_URL; empty disables events
	AuditLogPath   string          `yaml:"audit_log_path"` // AUDIT_LOG_PATH
	OTLPAddr       string          `yaml:"otlp_grpc_addr"` // OTLP_GRPC_ADDR; empty disables trace export
	MetricsEnabled bool            `yaml:"metrics_enabled"`
	Log            LogConfig       `yaml:"log"`
	Redis          RedisConfig     `yaml:"redis"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	// Location is Timezone resolved by Load.
	Location *time.Location `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // LOG_LEVEL: debug, info, warn, error
	Format string `yaml:"format"` // LOG_FORMAT: text or json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:            "dev",
		Addr:           ":8081",
		APIURL:         apiclient.DefaultBaseURL,
		APITimeout:     10 * time.Second,
		TokenStore:     "bolt",
		TokenStorePath: "reserveease.db",
		Timezone:       "Local",
		BoardPolicy:    "rollback",
		AuditLogPath:   "reservation-audit.log",
		MetricsEnabled: true,
		Log:            LogConfig{Level: "info", Format: "text"},
		Redis:          RedisConfig{Addr: "localhost:6379", Prefix: "reserveease"},
		RateLimit:      defaultRateLimit(),
	}
}

// Load reads .env (if present), the YAML file named by CONSOLE_CONFIG (if
// set) and the environment, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readFile overlays the YAML file at path onto cfg.  ${VAR} references
// in the file are expanded from the environment first.
func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envStr("APP_ENV", cfg.Env)
	cfg.Addr = envStr("CONSOLE_ADDR", cfg.Addr)
	cfg.APIURL = envStr("RESERVEEASE_API_URL", cfg.APIURL)
	cfg.APITimeout = envDur("API_TIMEOUT", cfg.APITimeout)
	cfg.TokenStore = envStr("TOKEN_STORE", cfg.TokenStore)
	cfg.TokenStorePath = envStr("TOKEN_STORE_PATH", cfg.TokenStorePath)
	cfg.Timezone = envStr("TIMEZONE", cfg.Timezone)
	cfg.BoardPolicy = envStr("BOARD_ROLLBACK_POLICY", cfg.BoardPolicy)
	cfg.AMQPURL = envStr("RABBITMQ_URL", envStr("AMQP_URL", cfg.AMQPURL))
	cfg.AuditLogPath = envStr("AUDIT_LOG_PATH", cfg.AuditLogPath)
	cfg.OTLPAddr = envStr("OTLP_GRPC_ADDR", cfg.OTLPAddr)
	cfg.MetricsEnabled = envBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.Log.Level = envStr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStr("LOG_FORMAT", cfg.Log.Format)
	applyRedisEnv(&cfg.Redis)
	applyRateLimitEnv(&cfg.RateLimit)
}

func (c *Config) validate() error {
	if !oneOf(c.TokenStore, "memory", "bolt", "redis") {
		return fmt.Errorf("TOKEN_STORE: unknown store %q", c.TokenStore)
	}
	if c.TokenStore == "bolt" && c.TokenStorePath == "" {
		return errors.New("TOKEN_STORE_PATH: required for the bolt token store")
	}
	if !oneOf(c.BoardPolicy, "rollback", "optimistic", "none", "no-rollback", "pessimistic") {
		return fmt.Errorf("BOARD_ROLLBACK_POLICY: unknown policy %q", c.BoardPolicy)
	}
	if !oneOf(c.Log.Format, "text", "json") {
		return fmt.Errorf("LOG_FORMAT: unknown format %q", c.Log.Format)
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("LOG_LEVEL: unknown level %q", c.Log.Level)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT: must be positive, got %s", c.APITimeout)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	c.Location = loc
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
