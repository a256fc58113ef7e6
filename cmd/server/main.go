// Package main is the entry point for the excalidraw-local server: a
// locally-hosted file API that persists Excalidraw drawings as native
// JSON or as markdown-embedded documents inside an Obsidian vault.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/hmizuno/excalidraw-local/pkg/api"
	"github.com/hmizuno/excalidraw-local/pkg/backup"
	"github.com/hmizuno/excalidraw-local/pkg/config"
	"github.com/hmizuno/excalidraw-local/pkg/store"
	"github.com/hmizuno/excalidraw-local/pkg/sync"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "excalidraw-local: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "excalidraw-local.yaml", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	documents := store.New(backup.NewEngine(logger), logger)

	var gitSync *sync.Manager
	if cfg.Sync.Enabled {
		gitSync = sync.NewManager(cfg.Sync.RepoPath, cfg.Sync.Push, logger)
		logger.Info("git sync enabled", "repo", cfg.Sync.RepoPath, "push", cfg.Sync.Push)
	}

	handler := &api.Handler{Store: documents, Git: gitSync, Log: logger}
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	out := os.Stderr
	return slog.New(tint.NewHandler(colorable.NewColorable(out), &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(out.Fd()),
	})), nil
}
