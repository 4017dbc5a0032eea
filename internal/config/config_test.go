// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen: \":9090\"\n"+
			"db_path: /var/lib/playlistd/data.db\n"+
			"scheduler_interval: 30m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "/var/lib/playlistd/data.db", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.SchedulerInterval)
	// Untouched fields keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o644))

	t.Setenv("PLAYLISTD_LISTEN", ":7070")
	t.Setenv("PLAYLISTD_FETCH_TIMEOUT", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"scheduler interval too small", func(c *Config) { c.SchedulerInterval = time.Second }},
		{"negative probe rps", func(c *Config) { c.ProbeRPS = -1 }},
		{"zero probe concurrency", func(c *Config) { c.ProbeConcurrency = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
