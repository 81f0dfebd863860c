// Command ramble is the main entry point for the ramble knowledge server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/ashishact/ramble/internal/app"
	"github.com/ashishact/ramble/internal/config"
	"github.com/ashishact/ramble/internal/observe"
	"github.com/ashishact/ramble/internal/resilience"
	"github.com/ashishact/ramble/pkg/provider/llm"
	"github.com/ashishact/ramble/pkg/provider/llm/anyllm"
	"github.com/ashishact/ramble/pkg/provider/llm/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ramble: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ramble: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level is held in a LevelVar so config reloads can adjust it live.
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("ramble starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "ramble",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Model providers ───────────────────────────────────────────────────────
	chat, err := buildChat(cfg)
	if err != nil {
		slog.Error("failed to build model providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, chat, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(d.NewLogLevel.Level())
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.SpanPatternsChanged || d.ThresholdsChanged {
			slog.Info("pipeline tuning changed in config; restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildChat constructs the tiered chat router from the configured providers.
// Returns nil when no fast tier is configured; the server then runs in
// ingest-only mode.
func buildChat(cfg *config.Config) (*llm.Chat, error) {
	if !cfg.LLM.Fast.Set() {
		return nil, nil
	}

	fast, err := buildProvider(cfg.LLM.Fast)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	slog.Info("provider created", "tier", "fast", "name", cfg.LLM.Fast.Provider, "model", cfg.LLM.Fast.Model)

	// Each tier gets a circuit breaker so a flapping backend fails fast
	// instead of stalling the worker pool. When the intelligent tier is
	// configured it also serves as the fast tier's fallback.
	fastGuard := resilience.NewLLMFallback(fast, cfg.LLM.Fast.Provider, resilience.FallbackConfig{})

	var opts []llm.ChatOption
	if cfg.LLM.Intelligent.Set() {
		intelligent, err := buildProvider(cfg.LLM.Intelligent)
		if err != nil {
			return nil, fmt.Errorf("intelligent tier: %w", err)
		}
		fastGuard.AddFallback(cfg.LLM.Intelligent.Provider, intelligent)
		guard := resilience.NewLLMFallback(intelligent, cfg.LLM.Intelligent.Provider, resilience.FallbackConfig{})
		opts = append(opts, llm.WithIntelligent(guard))
		slog.Info("provider created", "tier", "intelligent", "name", cfg.LLM.Intelligent.Provider, "model", cfg.LLM.Intelligent.Model)
	}

	return llm.NewChat(fastGuard, opts...), nil
}

// buildProvider constructs one tier's provider. OpenAI uses the native
// client; everything else routes through the any-llm backends.
func buildProvider(tier config.LLMTier) (llm.Provider, error) {
	if tier.Provider == "openai" {
		var opts []openai.Option
		if tier.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(tier.BaseURL))
		}
		return openai.New(tier.APIKey, tier.Model, opts...)
	}

	var opts []anyllmlib.Option
	if tier.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(tier.APIKey))
	}
	if tier.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(tier.BaseURL))
	}
	return anyllm.New(tier.Provider, tier.Model, opts...)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          ramble — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printTier("Fast LLM", cfg.LLM.Fast)
	printTier("Intelligent", cfg.LLM.Intelligent)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Storage         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Storage         : %-19s ║\n", "in-memory")
	}
	fmt.Printf("║  Max concurrent  : %-19d ║\n", cfg.Pipeline.MaxConcurrent)
	fmt.Printf("║  Span patterns   : %-19d ║\n", len(cfg.Pipeline.SpanPatterns))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printTier(label string, tier config.LLMTier) {
	value := tier.Provider
	if value == "" {
		value = "(not configured)"
	} else if tier.Model != "" {
		value = tier.Provider + " / " + tier.Model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}
