// IDTrace - identity exposure scanning that deploys in 60 seconds.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/idtrace/idtrace/internal/advisor"
	"github.com/idtrace/idtrace/internal/api"
	"github.com/idtrace/idtrace/internal/bus"
	"github.com/idtrace/idtrace/internal/cache"
	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/policy"
	"github.com/idtrace/idtrace/internal/providers"
	"github.com/idtrace/idtrace/internal/repository"
	"github.com/idtrace/idtrace/internal/scoring"
	"github.com/idtrace/idtrace/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration before logging so the log level applies from
	// the first line.
	cfg := domain.DefaultConfig()
	cfg.LoadFromEnv()

	logger := slog.New(newLogHandler(cfg.Logging))
	slog.SetDefault(logger)

	slog.Info("starting idtrace",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
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

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize intelligence providers and the scan aggregator
	providerList := providers.FromConfig(cfg.Providers, cfg.Scan.ProviderTimeout)
	aggregator := intel.NewAggregator(providerList, cfg.Scan.ProviderTimeout)

	names := make([]string, 0, len(providerList))
	for _, p := range providerList {
		names = append(names, p.Name())
	}
	slog.Info("intelligence providers initialized", "providers", names)

	// Initialize Scoring Engine
	engine := scoring.NewEngine()

	// Initialize Advisor (disabled without an API key)
	adv := advisor.New(cfg.Advisor)
	slog.Info("advisor initialized", "enabled", adv.Enabled())

	// Initialize Alert Policy
	policyEngine, err := policy.NewEngine(cfg.AlertPolicy)
	if err != nil {
		slog.Error("failed to initialize alert policy", "error", err)
		os.Exit(1)
	}
	slog.Info("alert policy initialized", "expression", policyEngine.Expression())

	// Initialize monitor Worker
	monitorWorker := worker.NewWorker(busImpl, repo, aggregator, engine, policyEngine)
	if err := monitorWorker.Start(); err != nil {
		slog.Error("failed to start monitor worker", "error", err)
		os.Exit(1)
	}
	slog.Info("monitor worker started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, cfg.Scan, repo, cacheImpl, busImpl,
		aggregator, engine, adv, cfg.Cache.ProfileTTL, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("idtrace is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the worker first so in-flight checks finish
	if err := monitorWorker.Stop(); err != nil {
		slog.Error("failed to stop monitor worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("idtrace shutdown complete")
}

// newLogHandler builds the slog handler from config.
func newLogHandler(cfg domain.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🔍 IDTRACE                   ║")
	fmt.Println("  ║     Identity Exposure Intelligence        ║")
	fmt.Println("  ║      Know where your data leaks.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /scan?email=...         - Scan an email for exposures")
	fmt.Println("    POST /monitors               - Register a monitored email")
	fmt.Println("    GET  /monitors               - List monitors")
	fmt.Println("    GET  /monitors/{id}          - Get monitor by ID")
	fmt.Println("    POST /monitors/{id}/check    - Queue an immediate check")
	fmt.Println("    GET  /monitors/{id}/history  - Past scan results")
	fmt.Println("    DELETE /monitors/{id}        - Remove a monitor")
	fmt.Println("    GET  /health                 - Health check")
	fmt.Println()
}
