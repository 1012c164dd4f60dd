package storage

import (
	"fmt"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend string // "file", "sqlite", "memcached" or "in_memory"

	Dir        string
	SQLitePath string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
}

// Open returns the Slot for opts.Backend.
func Open(opts Options) (Slot, error) {
	switch opts.Backend {
	case "file", "":
		return NewFileSlot(opts.Dir)
	case "sqlite":
		return NewSQLiteSlot(opts.SQLitePath)
	case "memcached":
		return NewMemcachedSlot(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns)
	case "in_memory":
		return NewInMemorySlot(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
