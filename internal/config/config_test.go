package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

func TestConfig_DefaultIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":30000", cfg.Addr)
	assert.Equal(t, 3, cfg.Backlog)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Backlog = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.WriteTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MetricsAddr = cfg.Addr
	assert.Error(t, cfg.Validate())
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("HCQ_ADDR", ":31000")
	t.Setenv("HCQ_BACKLOG", "5")
	t.Setenv("HCQ_WRITE_TIMEOUT", "2s")
	t.Setenv("HCQ_METRICS_ADDR", "")
	t.Setenv("HCQ_JOURNAL", "/tmp/hcq.db")
	t.Setenv("HCQ_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()
	assert.Equal(t, ":31000", cfg.Addr)
	assert.Equal(t, 5, cfg.Backlog)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.Equal(t, "/tmp/hcq.db", cfg.JournalPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestConfig_LoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("HCQ_BACKLOG", "lots")
	t.Setenv("HCQ_WRITE_TIMEOUT", "soon")
	cfg := LoadFromEnv()
	assert.Equal(t, DefaultConfig().Backlog, cfg.Backlog)
	assert.Equal(t, DefaultConfig().WriteTimeout, cfg.WriteTimeout)
}

func TestParseCourses(t *testing.T) {
	in := "3\nCSC108 Introduction to Computer Programming\nCSC148 Introduction to Computer Science\n\nCSC209 Software Tools\n"
	courses, err := ParseCourses(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, "CSC108", courses[0].Code)
	assert.Equal(t, "Introduction to Computer Programming", courses[0].Description)
	assert.Equal(t, "CSC209", courses[2].Code)
	assert.Equal(t, "Software Tools", courses[2].Description)
}

func TestParseCourses_AnyWhitespaceSeparatesCode(t *testing.T) {
	courses, err := ParseCourses(strings.NewReader("3\nCSC209\tSoftware Tools\nCSC108  \t Intro\nMAT137\n"))
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, hcq.Course{Code: "CSC209", Description: "Software Tools"}, courses[0])
	assert.Equal(t, hcq.Course{Code: "CSC108", Description: "Intro"}, courses[1])
	assert.Equal(t, hcq.Course{Code: "MAT137"}, courses[2])
}

func TestParseCourses_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"bad count":  "three\nCSC108 x\n",
		"too few":    "2\nCSC108 x\n",
		"long code":  "1\nCSC1080 x\n",
		"duplicated": "2\nCSC108 a\nCSC108 b\n",
	}
	for name, in := range cases {
		_, err := ParseCourses(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestLoadCourses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\nMAT137 Calculus\n"), 0o644))

	courses, err := LoadCourses(path)
	require.NoError(t, err)
	assert.Equal(t, "MAT137", courses[0].Code)

	_, err = LoadCourses(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"INFO":   slog.LevelInfo,
		" warn ": slog.LevelWarn,
		"error":  slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
