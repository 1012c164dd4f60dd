//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/textweather/internal/client"
	"github.com/kjstillabower/textweather/internal/controller"
	"github.com/kjstillabower/textweather/internal/favorites"
	"github.com/kjstillabower/textweather/internal/observability"
	"github.com/kjstillabower/textweather/internal/storage"
)

// IntegrationTestConfig holds configuration for integration tests against the live services.
type IntegrationTestConfig struct {
	NominatimURL   string
	NWSURL         string
	UserAgent      string
	StorageBackend string // "file", "sqlite", "memcached" or "in_memory"
	MemcachedAddr  string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test unless TEXTWEATHER_LIVE=1, since the public services ask for light use.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	if os.Getenv("TEXTWEATHER_LIVE") != "1" {
		t.Skip("TEXTWEATHER_LIVE not set, skipping live integration test")
	}
	cfg := IntegrationTestConfig{
		NominatimURL:   os.Getenv("NOMINATIM_URL"),
		NWSURL:         os.Getenv("NWS_URL"),
		UserAgent:      os.Getenv("USER_AGENT"),
		StorageBackend: os.Getenv("INTEGRATION_STORAGE_BACKEND"),
		MemcachedAddr:  os.Getenv("MEMCACHED_ADDRS"),
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "file"
	}
	if cfg.MemcachedAddr == "" {
		cfg.MemcachedAddr = "localhost:11211"
	}
	return cfg
}

// SetupIntegrationClient creates a gateway client for the configured upstreams.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.Client {
	logger, err := observability.NewLoggerWithLevel("DEBUG")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return client.New(client.Config{
		NominatimURL: cfg.NominatimURL,
		NWSURL:       cfg.NWSURL,
		UserAgent:    cfg.UserAgent,
		Timeout:      15 * time.Second,
		Logger:       logger,
	})
}

// SetupIntegrationSlot opens the configured storage backend under a temp dir.
// Returns the slot and a cleanup function.
func SetupIntegrationSlot(t *testing.T, cfg IntegrationTestConfig) (storage.Slot, func()) {
	dir := t.TempDir()
	slot, err := storage.Open(storage.Options{
		Backend:               cfg.StorageBackend,
		Dir:                   dir,
		SQLitePath:            filepath.Join(dir, "textweather.db"),
		MemcachedAddrs:        cfg.MemcachedAddr,
		MemcachedTimeout:      500 * time.Millisecond,
		MemcachedMaxIdleConns: 2,
	})
	if err != nil {
		t.Fatalf("storage.Open(%s) error = %v", cfg.StorageBackend, err)
	}
	return slot, func() { _ = slot.Close() }
}

// SetupIntegrationController wires a controller over the live gateway and configured storage.
// Returns the controller, its slot, and a cleanup function.
func SetupIntegrationController(t *testing.T, cfg IntegrationTestConfig) (*controller.Controller, storage.Slot, func()) {
	gw := SetupIntegrationClient(t, cfg)
	slot, cleanup := SetupIntegrationSlot(t, cfg)
	store := favorites.NewStore(slot, nil, nil)
	ctrl := controller.New(store, gw, controller.WithFetchTimeout(20*time.Second))
	return ctrl, slot, cleanup
}
