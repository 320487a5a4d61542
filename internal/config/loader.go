package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backends understood by the gateway.
const (
	BackendOpenAI = "openai"
	BackendEcho   = "echo"
)

// Config holds runtime parameters for the gateway. File values override
// Defaults(); MODELGW_* environment variables override file values.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr" env:"MODELGW_ADDR"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir" env:"MODELGW_MODELS_DIR"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model" env:"MODELGW_DEFAULT_MODEL"`

	Backend               string `json:"backend" yaml:"backend" toml:"backend" env:"MODELGW_BACKEND"`
	WorkerURL             string `json:"worker_url" yaml:"worker_url" toml:"worker_url" env:"MODELGW_WORKER_URL"`
	WorkerAPIKey          string `json:"worker_api_key" yaml:"worker_api_key" toml:"worker_api_key" env:"MODELGW_WORKER_API_KEY"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds" env:"MODELGW_REQUEST_TIMEOUT_SECONDS"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds" env:"MODELGW_CONNECT_TIMEOUT_SECONDS"`

	MaxQueueDepth  int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" env:"MODELGW_MAX_QUEUE_DEPTH"`
	MaxWaitSeconds int   `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds" env:"MODELGW_MAX_WAIT_SECONDS"`
	MaxBodyBytes   int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MODELGW_MAX_BODY_BYTES"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"MODELGW_LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"MODELGW_LOG_FORMAT"`

	CORS      CORSConfig      `json:"cors" yaml:"cors" toml:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
}

// CORSConfig enables and shapes the CORS middleware.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled" env:"MODELGW_CORS_ENABLED"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins" env:"MODELGW_CORS_ORIGINS"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods" env:"MODELGW_CORS_METHODS"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers" env:"MODELGW_CORS_HEADERS"`
}

// RateLimitConfig configures per-client request rate limiting. RPS <= 0
// disables it.
type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps" toml:"rps" env:"MODELGW_RATE_LIMIT_RPS"`
	Burst int     `json:"burst" yaml:"burst" toml:"burst" env:"MODELGW_RATE_LIMIT_BURST"`
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		Addr:                  ":8000",
		ModelsDir:             "~/.config/modelgw/models",
		Backend:               BackendOpenAI,
		WorkerURL:             "http://127.0.0.1:8080/v1",
		RequestTimeoutSeconds: 600,
		ConnectTimeoutSeconds: 10,
		MaxQueueDepth:         32,
		MaxWaitSeconds:        30,
		MaxBodyBytes:          1 << 20,
		LogLevel:              "info",
		LogFormat:             "json",
		CORS: CORSConfig{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		RateLimit: RateLimitConfig{Burst: 10},
	}
}

// Load reads a configuration file based on its extension, then applies
// environment overrides and validates the result.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Decode(path, b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return finish(cfg)
}

// FromEnv builds a configuration from Defaults() and the environment only.
func FromEnv() (Config, error) {
	return finish(Defaults())
}

// Decode unmarshals b into v using the format implied by name's extension.
func Decode(name string, b []byte, v any) error {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	case ".json":
		return json.Unmarshal(b, v)
	case ".toml":
		return toml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

func finish(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.Addr) == "" {
		result = multierror.Append(result, fmt.Errorf("addr must not be empty"))
	}
	switch c.Backend {
	case BackendOpenAI:
		if strings.TrimSpace(c.WorkerURL) == "" {
			result = multierror.Append(result, fmt.Errorf("worker_url is required for backend %q", c.Backend))
		}
	case BackendEcho:
	default:
		result = multierror.Append(result, fmt.Errorf("backend must be %q or %q, got %q", BackendOpenAI, BackendEcho, c.Backend))
	}
	if c.MaxQueueDepth < 0 {
		result = multierror.Append(result, fmt.Errorf("max_queue_depth must be >= 0"))
	}
	if c.MaxWaitSeconds < 0 || c.RequestTimeoutSeconds < 0 || c.ConnectTimeoutSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("timeouts must be >= 0"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate_limit.burst must be > 0 when rate_limit.rps is set"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		result = multierror.Append(result, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	return result.ErrorOrNil()
}
