// Package config holds the server settings and the course table loader.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Addr is the TCP address the queue protocol listens on.
	Addr string
	// Backlog bounds connections accepted but not yet registered.
	Backlog      int
	WriteTimeout time.Duration

	// CoursesPath points at a course file. Empty means the built-in table.
	CoursesPath string
	// MetricsAddr serves /metrics and /healthz. Empty disables it.
	MetricsAddr string
	// JournalPath is the sqlite file finished help sessions are logged to.
	// Empty disables the journal.
	JournalPath string

	LogLevel slog.Level
}

// DefaultConfig listens on port 30000 with a backlog of 3.
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":30000",
		Backlog:      3,
		WriteTimeout: 5 * time.Second,
		MetricsAddr:  ":9090",
		LogLevel:     slog.LevelInfo,
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.Addr {
		return fmt.Errorf("metrics address must differ from listen address")
	}
	return nil
}

// LoadFromEnv overrides defaults with HCQ_* environment variables. Values
// that fail to parse are ignored.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("HCQ_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if backlog := os.Getenv("HCQ_BACKLOG"); backlog != "" {
		if n, err := strconv.Atoi(backlog); err == nil {
			cfg.Backlog = n
		}
	}
	if wt := os.Getenv("HCQ_WRITE_TIMEOUT"); wt != "" {
		if d, err := time.ParseDuration(wt); err == nil {
			cfg.WriteTimeout = d
		}
	}
	if path := os.Getenv("HCQ_COURSES"); path != "" {
		cfg.CoursesPath = path
	}
	if addr, ok := os.LookupEnv("HCQ_METRICS_ADDR"); ok {
		cfg.MetricsAddr = addr
	}
	if path := os.Getenv("HCQ_JOURNAL"); path != "" {
		cfg.JournalPath = path
	}
	if lvl := os.Getenv("HCQ_LOG_LEVEL"); lvl != "" {
		if l, err := ParseLevel(lvl); err == nil {
			cfg.LogLevel = l
		}
	}
	return cfg
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}
