// SPDX-License-Identifier: MIT

// Package config loads playlistd configuration with ENV > file > defaults
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon's runtime configuration.
type Config struct {
	Listen            string        `yaml:"listen"`
	DBPath            string        `yaml:"db_path"`
	LogLevel          string        `yaml:"log_level"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
	ProbeRPS          float64       `yaml:"probe_rps"`
	ProbeBurst        int           `yaml:"probe_burst"`
	ProbeConcurrency  int           `yaml:"probe_concurrency"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Listen:            ":8080",
		DBPath:            "playlistd.db",
		LogLevel:          "info",
		FetchTimeout:      30 * time.Second,
		SchedulerInterval: 15 * time.Minute,
		ProbeRPS:          5,
		ProbeBurst:        5,
		ProbeConcurrency:  4,
	}
}

// Load builds the effective configuration. path may be empty, in which case
// only defaults and environment variables apply.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Listen = ParseString("PLAYLISTD_LISTEN", cfg.Listen)
	cfg.DBPath = ParseString("PLAYLISTD_DB", cfg.DBPath)
	cfg.LogLevel = ParseString("PLAYLISTD_LOG_LEVEL", cfg.LogLevel)
	cfg.FetchTimeout = parseDuration("PLAYLISTD_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.SchedulerInterval = parseDuration("PLAYLISTD_SCHEDULER_INTERVAL", cfg.SchedulerInterval)
	cfg.ProbeRPS = parseFloat("PLAYLISTD_PROBE_RPS", cfg.ProbeRPS)
	cfg.ProbeBurst = parseInt("PLAYLISTD_PROBE_BURST", cfg.ProbeBurst)
	cfg.ProbeConcurrency = parseInt("PLAYLISTD_PROBE_CONCURRENCY", cfg.ProbeConcurrency)
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.SchedulerInterval < time.Minute {
		return fmt.Errorf("scheduler_interval must be at least 1m, got %s", c.SchedulerInterval)
	}
	if c.ProbeRPS < 0 {
		return fmt.Errorf("probe_rps must not be negative, got %v", c.ProbeRPS)
	}
	if c.ProbeConcurrency < 1 {
		return fmt.Errorf("probe_concurrency must be at least 1, got %d", c.ProbeConcurrency)
	}
	return nil
}

// ParseString returns the environment value for key, or fallback when unset
// or empty.
func ParseString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
