package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string
	LogLevel   string

	NominatimURL    string
	NWSURL          string
	UserAgent       string
	GatewayTimeout  time.Duration
	ForecastTimeout time.Duration

	RequestTimeout time.Duration

	StorageBackend string // "file", "sqlite", "memcached" or "in_memory"
	StorageDir     string
	SQLitePath     string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	SearchMinLength int
	SearchMaxLength int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Gateway struct {
		NominatimURL    string `yaml:"nominatim_url"`
		NWSURL          string `yaml:"nws_url"`
		UserAgent       string `yaml:"user_agent"`
		Timeout         string `yaml:"timeout"`
		ForecastTimeout string `yaml:"forecast_timeout"`
		CircuitBreaker  struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"gateway"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Storage struct {
		Backend    string `yaml:"backend"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		Memcached  struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"storage"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Search struct {
		MinLength int `yaml:"min_length"`
		MaxLength int `yaml:"max_length"`
	} `yaml:"search"`
}

// Load reads an optional .env, then config/{ENV_NAME}.yaml (default dev), then applies env
// overrides. Call from project root.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = envOr("SERVER_PORT", fc.Server.Port, "8080")
	cfg.LogLevel = strings.ToUpper(envOr("LOG_LEVEL", fc.Log.Level, "INFO"))

	cfg.NominatimURL = strings.TrimRight(envOr("NOMINATIM_URL", fc.Gateway.NominatimURL, "https://nominatim.openstreetmap.org"), "/")
	cfg.NWSURL = strings.TrimRight(envOr("NWS_URL", fc.Gateway.NWSURL, "https://api.weather.gov"), "/")
	cfg.UserAgent = envOr("USER_AGENT", fc.Gateway.UserAgent, "TextWeatherApp/1.0")
	cfg.GatewayTimeout = parseDurationOrZero(fc.Gateway.Timeout, 10*time.Second)
	cfg.ForecastTimeout = parseDuration(fc.Gateway.ForecastTimeout, 15*time.Second)

	cfg.CircuitBreakerEnabled = fc.Gateway.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.Gateway.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.Gateway.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Gateway.CircuitBreaker.Timeout, 30*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.StorageBackend = strings.ToLower(envOr("STORAGE_BACKEND", fc.Storage.Backend, "file"))
	cfg.StorageDir = envOr("STORAGE_DIR", fc.Storage.Dir, defaultStorageDir())
	cfg.SQLitePath = envOr("SQLITE_PATH", fc.Storage.SQLitePath, filepath.Join(cfg.StorageDir, "textweather.db"))
	cfg.MemcachedAddrs = envOr("MEMCACHED_ADDRS", fc.Storage.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Storage.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Storage.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 5*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Health.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.SearchMinLength = fc.Search.MinLength
	if cfg.SearchMinLength <= 0 {
		cfg.SearchMinLength = 1
	}
	cfg.SearchMaxLength = fc.Search.MaxLength
	if cfg.SearchMaxLength <= 0 {
		cfg.SearchMaxLength = 100
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOr returns the trimmed env value for key, else the file value, else def.
func envOr(key, fileVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "textweather")
	}
	return ".textweather"
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is raised above GatewayTimeout
// when needed so a handler never cancels a gateway call that is still within its budget.
func validate(cfg *Config) error {
	if cfg.GatewayTimeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.GatewayTimeout {
		cfg.RequestTimeout = cfg.GatewayTimeout + time.Second
	}
	switch cfg.StorageBackend {
	case "file", "sqlite", "memcached", "in_memory":
	default:
		return fmt.Errorf("storage.backend must be file, sqlite, memcached or in_memory, got %q", cfg.StorageBackend)
	}
	if cfg.SearchMinLength > cfg.SearchMaxLength {
		return fmt.Errorf("search.min_length %d exceeds search.max_length %d", cfg.SearchMinLength, cfg.SearchMaxLength)
	}
	return nil
}
