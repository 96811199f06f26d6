package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config holds all service settings. Values are layered: struct defaults,
// then an optional YAML file, then environment variables.
type Config struct {
	HTTP         HTTPConfig         `koanf:"http"`
	OpenSky      OpenSkyConfig      `koanf:"opensky"`
	Retry        RetryConfig        `koanf:"retry"`
	Presentation PresentationConfig `koanf:"presentation"`
	Logging      LoggingConfig      `koanf:"logging"`
	Tracing      TracingConfig      `koanf:"tracing"`
}

// HTTPConfig controls the UI shell.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// Refreshes per minute per client IP. Zero disables the limit.
	RefreshRateLimit int      `koanf:"refresh_rate_limit" validate:"gte=0"`
	CORSOrigins      []string `koanf:"cors_origins"`
}

// OpenSkyConfig controls the outbound provider client.
type OpenSkyConfig struct {
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
	UserAgent string        `koanf:"user_agent" validate:"required"`
	Username  string        `koanf:"username"`
	Password  string        `koanf:"password"`
	// Zero means unlimited.
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
	BreakerFailures   uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// HasCredentials reports whether both halves of the basic-auth pair are set.
func (c OpenSkyConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// RetryConfig bounds the fetch retry loop.
type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" validate:"gte=1,lte=10"`
	MaxBackoff time.Duration `koanf:"max_backoff" validate:"gt=0"`
}

// PresentationConfig tunes the dashboard.
type PresentationConfig struct {
	HistogramBins int `koanf:"histogram_bins" validate:"gte=1,lte=200"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name" validate:"required"`
	Exporter    string  `koanf:"exporter" validate:"oneof=stdout otlp"`
	Endpoint    string  `koanf:"endpoint" validate:"required_if=Exporter otlp"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:             ":7860",
			WriteTimeout:     120 * time.Second,
			ShutdownTimeout:  10 * time.Second,
			RefreshRateLimit: 30,
			CORSOrigins:      []string{"*"},
		},
		OpenSky: OpenSkyConfig{
			BaseURL:           "https://opensky-network.org/api",
			Timeout:           15 * time.Second,
			UserAgent:         "Mozilla/5.0",
			RequestsPerSecond: 1,
			Burst:             2,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			MaxBackoff: 60 * time.Second,
		},
		Presentation: PresentationConfig{
			HistogramBins: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "aircraft-tracker",
			Exporter:    "stdout",
			Endpoint:    "localhost:4317",
			SampleRatio: 1.0,
		},
	}
}

// envMappings maps environment variables (lower-cased) to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_addr":                "http.addr",
	"http_write_timeout":       "http.write_timeout",
	"shutdown_timeout":         "http.shutdown_timeout",
	"refresh_rate_limit":       "http.refresh_rate_limit",
	"cors_origins":             "http.cors_origins",
	"opensky_base_url":         "opensky.base_url",
	"opensky_timeout":          "opensky.timeout",
	"opensky_user_agent":       "opensky.user_agent",
	"id_auth":                  "opensky.username",
	"pw_auth":                  "opensky.password",
	"opensky_rate_limit":       "opensky.requests_per_second",
	"opensky_burst":            "opensky.burst",
	"opensky_breaker_failures": "opensky.breaker_failures",
	"opensky_breaker_timeout":  "opensky.breaker_timeout",
	"max_retries":              "retry.max_retries",
	"retry_max_backoff":        "retry.max_backoff",
	"histogram_bins":           "presentation.histogram_bins",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"tracing_enabled":          "tracing.enabled",
	"tracing_service_name":     "tracing.service_name",
	"tracing_exporter":         "tracing.exporter",
	"otlp_endpoint":            "tracing.endpoint",
	"tracing_sample_ratio":     "tracing.sample_ratio",
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.HTTP.CORSOrigins = trimList(cfg.HTTP.CORSOrigins)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	cfg.Tracing.Exporter = strings.ToLower(cfg.Tracing.Exporter)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and reports failures by environment variable name.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		msgs = append(msgs, fmt.Sprintf("invalid %s (%s): must satisfy %s", envName(key), key, fieldRule(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func envName(key string) string {
	for env, k := range envMappings {
		if k == key {
			return strings.ToUpper(env)
		}
	}
	return key
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
