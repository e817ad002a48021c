package xrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig("/tmp/x.log")
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"default", func(*Config) {}, nil},
		{"empty filename", func(c *Config) { c.Filename = "" }, ErrEmptyFilename},
		{"zero size", func(c *Config) { c.MaxSizeMB = 0 }, ErrInvalidMaxSize},
		{"huge size", func(c *Config) { c.MaxSizeMB = maxSizeMB + 1 }, ErrInvalidMaxSize},
		{"negative backups", func(c *Config) { c.MaxBackups = -1 }, ErrInvalidMaxBackups},
		{"negative age", func(c *Config) { c.MaxAgeDays = -1 }, ErrInvalidMaxAge},
		{"no cleanup", func(c *Config) { c.MaxBackups, c.MaxAgeDays = 0, 0 }, ErrNoCleanupPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_WriteRotateClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xpropd.log")
	cfg := DefaultConfig(path)
	cfg.Compress = false

	r, err := New(cfg)
	require.NoError(t, err)

	_, err = r.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "current file plus one backup")

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)
	_, err = r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrEmptyFilename)
}
