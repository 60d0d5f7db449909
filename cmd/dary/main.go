// DARY - Real estate investment scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/dary/internal/api"
	"github.com/opensource-finance/dary/internal/batch"
	"github.com/opensource-finance/dary/internal/cache"
	"github.com/opensource-finance/dary/internal/config"
	"github.com/opensource-finance/dary/internal/domain"
	"github.com/opensource-finance/dary/internal/history"
	"github.com/opensource-finance/dary/internal/logging"
	"github.com/opensource-finance/dary/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (default ./.env when present)")
	usage := flag.Bool("usage", false, "Print the supported environment variables and exit")
	flag.Parse()

	if *usage {
		fmt.Println(config.Usage())
		return
	}

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dary: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	slog.SetDefault(logging.New(cfg.Logging, os.Stdout))

	slog.Info("starting dary",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"cache", cfg.Cache.Type,
		"two_phase", cfg.Cache.EnableTwoPhase,
		"history_max_entries", cfg.History.MaxEntries,
		"batch_workers", cfg.Batch.Workers,
		"screens_file", cfg.Screens.File,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize Screening Engine
	engine, err := rules.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize screening engine", "error", err)
		os.Exit(1)
	}

	screens := screenSource(cfg.Screens)
	initial, err := screens()
	if err != nil {
		slog.Error("failed to load screens", "error", err)
		os.Exit(1)
	}
	if err := engine.LoadRules(initial); err != nil {
		slog.Error("failed to compile screens", "error", err)
		os.Exit(1)
	}
	slog.Info("screening engine initialized", "rules_count", engine.RulesCount())

	// Initialize Server
	srv := api.NewServer(api.Config{Server: cfg.Server, Version: Version}, api.Deps{
		Cache:   cacheImpl,
		History: history.NewStore(cacheImpl, cfg.History),
		Engine:  engine,
		Runner:  batch.NewRunner(cfg.Batch, engine),
		Screens: screens,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("dary is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	_ = engine.Close()

	slog.Info("dary shutdown complete")
}

// screenSource reads the configured rules file, or the builtin screens when
// no file is configured.
func screenSource(cfg domain.ScreensConfig) api.ScreenSource {
	return func() ([]*domain.ScreenRule, error) {
		if cfg.File == "" {
			return rules.BuiltinRules(), nil
		}
		loaded, err := rules.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		slog.Info("screens loaded from file", "path", cfg.File, "count", len(loaded))
		return loaded, nil
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║                 DARY SCORE                ║")
	fmt.Println("  ║   Real estate investment scoring engine   ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /evaluate                 - Score a project")
	fmt.Println("    POST   /batch                    - Score a CSV or JSON batch")
	fmt.Println("    GET    /criteria                 - Scoring grid")
	fmt.Println("    GET    /history                  - Session history")
	fmt.Println("    DELETE /history                  - Clear session history")
	fmt.Println("    GET    /evaluations/{id}         - Get evaluation by ID")
	fmt.Println("    GET    /evaluations/{id}/export  - Export as json, csv, html or pdf")
	fmt.Println("    GET    /screens                  - List screening rules")
	fmt.Println("    POST   /screens                  - Add a screening rule")
	fmt.Println("    POST   /screens/reload           - Reload screening rules")
	fmt.Println("    GET    /health                   - Health check")
	fmt.Println()
}
