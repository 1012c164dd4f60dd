package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Slot {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileSlot(filepath.Join(dir, "slots"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteSlot(filepath.Join(dir, "slots.db"))
	require.NoError(t, err)

	slots := map[string]Slot{
		"in_memory": NewInMemorySlot(),
		"file":      file,
		"sqlite":    sqlite,
	}
	t.Cleanup(func() {
		for _, s := range slots {
			_ = s.Close()
		}
	})
	return slots
}

func TestSlot_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(context.Background(), "weather_favorites")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestSlot_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "weather_favorites", []byte(`[{"id":"1"}]`)))
			require.NoError(t, s.Set(ctx, "weather_favorites", []byte(`[]`)))

			v, ok, err := s.Get(ctx, "weather_favorites")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[]`, string(v))
			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestFileSlot_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileSlot(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "weather_favorites", []byte(`["a"]`)))

	second, err := NewFileSlot(dir)
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, "weather_favorites")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, string(v))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSQLiteSlot_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fav.db")

	first, err := NewSQLiteSlot(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("v1")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteSlot(path)
	require.NoError(t, err)
	defer second.Close()
	v, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(v))
}

func TestInMemorySlot_Closed(t *testing.T) {
	s := NewInMemorySlot()
	require.NoError(t, s.Close())

	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "k", nil), ErrClosed)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)
}

func TestInMemorySlot_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySlot()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'z'

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"default is file", Options{Dir: dir}, false},
		{"in_memory", Options{Backend: "in_memory"}, false},
		{"sqlite", Options{Backend: "sqlite", SQLitePath: filepath.Join(dir, "x.db")}, false},
		{"memcached constructs lazily", Options{Backend: "memcached", MemcachedAddrs: "localhost:11211"}, false},
		{"file without dir", Options{Backend: "file"}, true},
		{"unknown", Options{Backend: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_ = s.Close()
		})
	}
}

func TestParseAddrs(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, parseAddrs(" a:1, ,b:2 "))
	assert.Nil(t, parseAddrs(""))
}
