package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjstillabower/textweather/internal/config"
	"github.com/kjstillabower/textweather/internal/storage"
)

// chdirProjectRoot moves into the directory holding config/ so config.Load finds the shipped files.
func chdirProjectRoot(t *testing.T) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	root, err := filepath.Abs(filepath.Join(origWd, "..", ".."))
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "config", "dev.yaml")); err != nil {
		t.Fatalf("config/dev.yaml not found under %s: %v", root, err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

// TestStorageOptions_ShippedConfigsOpen verifies each shipped config selects a backend storage.Open accepts.
func TestStorageOptions_ShippedConfigsOpen(t *testing.T) {
	tests := []struct {
		env         string
		wantBackend string
	}{
		{"dev", "file"},
		{"prod", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			chdirProjectRoot(t)
			dir := t.TempDir()
			t.Setenv("ENV_NAME", tt.env)
			t.Setenv("STORAGE_BACKEND", "")
			t.Setenv("STORAGE_DIR", dir)
			t.Setenv("SQLITE_PATH", filepath.Join(dir, "textweather.db"))

			cfg, err := config.Load()
			if err != nil {
				t.Fatalf("config.Load() error = %v", err)
			}
			opts := storageOptions(cfg)
			if opts.Backend != tt.wantBackend {
				t.Errorf("Backend = %q, want %q", opts.Backend, tt.wantBackend)
			}

			slot, err := storage.Open(opts)
			if err != nil {
				t.Fatalf("storage.Open(%q) error = %v", opts.Backend, err)
			}
			defer slot.Close()
			if err := slot.Ping(context.Background()); err != nil {
				t.Errorf("Ping() = %v", err)
			}
		})
	}
}

// TestStorageOptions_CopiesMemcachedSettings verifies the memcached fields reach storage.Options.
func TestStorageOptions_CopiesMemcachedSettings(t *testing.T) {
	chdirProjectRoot(t)
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("STORAGE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "cache-a:11211,cache-b:11211")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	opts := storageOptions(cfg)
	if opts.Backend != "memcached" {
		t.Errorf("Backend = %q, want memcached", opts.Backend)
	}
	if opts.MemcachedAddrs != "cache-a:11211,cache-b:11211" {
		t.Errorf("MemcachedAddrs = %q", opts.MemcachedAddrs)
	}
	if opts.MemcachedTimeout != cfg.MemcachedTimeout || opts.MemcachedTimeout == 0 {
		t.Errorf("MemcachedTimeout = %v, want %v", opts.MemcachedTimeout, cfg.MemcachedTimeout)
	}
	if opts.MemcachedMaxIdleConns != 2 {
		t.Errorf("MemcachedMaxIdleConns = %d, want 2", opts.MemcachedMaxIdleConns)
	}
}
