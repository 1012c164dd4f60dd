package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirTemp writes content as config/dev.yaml in a temp dir and makes it the working directory.
func chdirTemp(t *testing.T, content string) string {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	writeEnvFile(t, dir, content)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

// clearOverrides blanks every env override so the YAML file is what the test observes.
func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV_NAME", "SERVER_PORT", "STORAGE_BACKEND", "STORAGE_DIR", "SQLITE_PATH",
		"MEMCACHED_ADDRS", "NOMINATIM_URL", "NWS_URL", "USER_AGENT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Minimal(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.NominatimURL != "https://nominatim.example.com" {
		t.Errorf("NominatimURL = %q, want trailing slash trimmed", cfg.NominatimURL)
	}
	if cfg.NWSURL != "https://api.weather.gov" {
		t.Errorf("NWSURL = %q, want default", cfg.NWSURL)
	}
	if cfg.UserAgent != "TextWeatherApp/1.0" {
		t.Errorf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if cfg.GatewayTimeout != 2*time.Second {
		t.Errorf("GatewayTimeout = %v, want 2s", cfg.GatewayTimeout)
	}
	if cfg.StorageBackend != "file" {
		t.Errorf("StorageBackend = %q, want file", cfg.StorageBackend)
	}
	if cfg.CircuitBreakerEnabled {
		t.Error("CircuitBreakerEnabled = true, want false by default")
	}
	if cfg.SearchMinLength != 1 || cfg.SearchMaxLength != 100 {
		t.Errorf("search bounds = %d..%d, want 1..100", cfg.SearchMinLength, cfg.SearchMaxLength)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearOverrides(t)
	t.Setenv("ENV_NAME", "nonexistent")
	chdirTemp(t, minimalEnvYAML)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v, want config file not found", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, "server: [unclosed")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected parse error")
	}
	if !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("error = %v, want parse config file", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearOverrides(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/tw.db")
	t.Setenv("NWS_URL", "http://localhost:9999/")
	t.Setenv("LOG_LEVEL", "debug")
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.StorageBackend != "sqlite" {
		t.Errorf("StorageBackend = %q, want sqlite", cfg.StorageBackend)
	}
	if cfg.SQLitePath != "/tmp/tw.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
	if cfg.NWSURL != "http://localhost:9999" {
		t.Errorf("NWSURL = %q", cfg.NWSURL)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearOverrides(t)
	// godotenv never overrides a variable that is already set, even to "".
	os.Unsetenv("USER_AGENT")
	t.Cleanup(func() { os.Unsetenv("USER_AGENT") })
	dir := chdirTemp(t, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("USER_AGENT=FromDotEnv/2.0\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UserAgent != "FromDotEnv/2.0" {
		t.Errorf("UserAgent = %q, want value from .env", cfg.UserAgent)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, minimalEnvYAML+`
shutdown:
  timeout: "not-a-duration"
  in_flight_timeout: "-1s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s default", cfg.ShutdownTimeout)
	}
	if cfg.ShutdownInFlightTimeout != 5*time.Second {
		t.Errorf("ShutdownInFlightTimeout = %v, want 5s default", cfg.ShutdownInFlightTimeout)
	}
}

func TestLoad_ValidationFailsWhenGatewayTimeoutZero(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, `
gateway:
  timeout: "0s"
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected validation error")
	}
	if !strings.Contains(err.Error(), "gateway.timeout") {
		t.Errorf("error = %v, want gateway.timeout", err)
	}
}

func TestLoad_RequestTimeoutRaisedAboveGatewayTimeout(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, `
gateway:
  timeout: "20s"
request:
  timeout: "5s"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 21*time.Second {
		t.Errorf("RequestTimeout = %v, want 21s", cfg.RequestTimeout)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	clearOverrides(t)
	t.Setenv("STORAGE_BACKEND", "redis")
	chdirTemp(t, minimalEnvYAML)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("error = %v, want storage.backend", err)
	}
}

func TestLoad_RejectsInvertedSearchBounds(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, minimalEnvYAML+`
search:
  min_length: 50
  max_length: 10
`)

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for min_length > max_length")
	}
}

func TestLoad_CircuitBreakerSettings(t *testing.T) {
	clearOverrides(t)
	chdirTemp(t, `
gateway:
  timeout: "3s"
  circuit_breaker:
    enabled: true
    failure_threshold: 2
    timeout: "1m"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.CircuitBreakerEnabled {
		t.Error("CircuitBreakerEnabled = false, want true")
	}
	if cfg.CircuitBreakerFailureThreshold != 2 {
		t.Errorf("FailureThreshold = %d, want 2", cfg.CircuitBreakerFailureThreshold)
	}
	if cfg.CircuitBreakerSuccessThreshold != 1 {
		t.Errorf("SuccessThreshold = %d, want default 1", cfg.CircuitBreakerSuccessThreshold)
	}
	if cfg.CircuitBreakerTimeout != time.Minute {
		t.Errorf("CircuitBreaker Timeout = %v, want 1m", cfg.CircuitBreakerTimeout)
	}
}

// The checked-in dev config must load cleanly.
func TestLoad_ProjectDevConfig(t *testing.T) {
	clearOverrides(t)
	root := findProjectRoot(t)
	origWd, _ := os.Getwd()
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer func() { _ = os.Chdir(origWd) }()

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

const minimalEnvYAML = `
server:
  port: "8080"
gateway:
  nominatim_url: "https://nominatim.example.com/"
  timeout: "2s"
request:
  timeout: "5s"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
