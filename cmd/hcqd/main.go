package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andy6609/helpcentre-queue/internal/admin"
	"github.com/andy6609/helpcentre-queue/internal/config"
	"github.com/andy6609/helpcentre-queue/internal/hcq"
	"github.com/andy6609/helpcentre-queue/internal/helpcentre"
	"github.com/andy6609/helpcentre-queue/internal/journal"
)

func main() {
	cfg := config.LoadFromEnv()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "help centre listen address")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "pending connection backlog")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "per-write deadline for client sockets")
	flag.StringVar(&cfg.CoursesPath, "courses", cfg.CoursesPath, "course file (default: built-in course list)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "admin/metrics listen address, empty to disable")
	flag.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "sqlite journal path, empty to disable")
	logLevel := flag.String("log-level", cfg.LogLevel.String(), "log level (debug, info, warn, error)")
	flag.Parse()

	lvl, levelErr := config.ParseLevel(*logLevel)
	if levelErr == nil {
		cfg.LogLevel = lvl
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if levelErr != nil {
		logger.Error("invalid log level", "value", *logLevel, "error", levelErr)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	courses := config.DefaultCourses()
	if cfg.CoursesPath != "" {
		loaded, err := config.LoadCourses(cfg.CoursesPath)
		if err != nil {
			logger.Error("failed to load courses", "path", cfg.CoursesPath, "error", err)
			os.Exit(1)
		}
		courses = loaded
	}

	queue := hcq.NewQueue(courses, nil)
	observers := hcq.Observers{helpcentre.MetricsObserver{}}

	var store *journal.Store
	if cfg.JournalPath != "" {
		var err error
		store, err = journal.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.JournalPath, "error", err)
			os.Exit(1)
		}
		observers = append(observers, store)
	}
	queue.SetObserver(observers)

	var adminSrv *http.Server
	if cfg.MetricsAddr != "" {
		var j admin.Journal
		if store != nil {
			j = store
		}
		adminSrv = admin.NewServer(cfg.MetricsAddr, admin.NewRouter(j, nil, logger))
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server failed", "error", err)
			}
		}()
	}

	srv := helpcentre.NewServer(cfg.Addr, queue, helpcentre.Options{
		Backlog:      cfg.Backlog,
		WriteTimeout: cfg.WriteTimeout,
	}, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigCh:
	case <-srv.Done():
		if err := srv.Err(); err != nil {
			logger.Error("server stopped", "error", err)
			exitCode = 1
		}
	}

	srv.Stop()

	if adminSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := adminSrv.Shutdown(ctx); err != nil {
			logger.Warn("admin shutdown", "error", err)
		}
		cancel()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("journal close", "error", err)
		}
	}
	os.Exit(exitCode)
}
