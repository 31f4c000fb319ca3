package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teilomillet/gollm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slangbridge/config"
	"slangbridge/gateway"
	"slangbridge/metrics"
	"slangbridge/modes"
	"slangbridge/prompt"
	"slangbridge/relay"
	"slangbridge/server"
	"slangbridge/store"
	"slangbridge/telegram"
)

var (
	configFile = flag.String("config", "slangbridge.yaml", "Path to configuration file")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("slangbridge %s\n", Version)
		os.Exit(0)
	}

	if *validate {
		if _, err := config.LoadFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	watcher, err := config.NewFileWatcher(*configFile, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	logger, err := newLogger(watcher.GetCurrentConfig().Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := runLoop(ctx, watcher, logger); err != nil {
		logger.Fatal("Relay exited with error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

// runLoop runs the relay, restarting it with fresh components whenever the
// configuration file changes. Mode catalog, credentials and breaker settings
// are all fixed per run, so a restart is the reload strategy.
func runLoop(ctx context.Context, watcher config.Watcher, logger *zap.Logger) error {
	reloads := watcher.Subscribe()

	for {
		cfg := watcher.GetCurrentConfig()

		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- run(runCtx, cfg, logger)
		}()

		select {
		case <-ctx.Done():
			cancelRun()
			return ignoreCanceled(<-done)

		case <-reloads:
			logger.Info("Configuration changed, restarting relay")
			cancelRun()
			if err := ignoreCanceled(<-done); err != nil {
				logger.Error("Relay stopped with error during restart", zap.Error(err))
			}

		case err := <-done:
			cancelRun()
			return err
		}
	}
}

// run builds the relay from one configuration snapshot and serves until ctx
// is done.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot.token is required (set TELEGRAM_BOT_TOKEN or bot.token in config)")
	}

	llm, err := createLLM(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	registry, err := modes.NewRegistry(modeList(cfg.Modes))
	if err != nil {
		return fmt.Errorf("build mode registry: %w", err)
	}

	builder, err := prompt.NewBuilder()
	if err != nil {
		return fmt.Errorf("build prompt template: %w", err)
	}

	// Token counting is informational only; a missing encoding must not keep
	// the bot from starting.
	counter, err := prompt.NewTokenCounter()
	if err != nil {
		logger.Warn("Token counter unavailable", zap.Error(err))
		counter = nil
	}

	m := metrics.New()

	gw := gateway.New(llm, cfg.CircuitBreaker, cfg.LLM.Timeout, m, logger)

	st := store.New(cfg.Store.PendingTTL, m)
	go st.StartSweeper(ctx)

	adapter, err := telegram.New(cfg.Bot, logger)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}

	ctrl := relay.NewController(registry, builder, counter, gw, st, adapter, m, logger)
	adapter.Bind(ctx, ctrl)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return adapter.Start(gctx)
	})

	if cfg.Ops.Enabled {
		ops := server.New(cfg.Ops, m, logger)
		g.Go(func() error {
			return ops.Start(gctx)
		})
	}

	logger.Info("Relay running",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Int("modes", registry.Len()),
	)

	return g.Wait()
}

func createLLM(cfg config.LLMConfig) (gollm.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key is required (set the provider API key env var or llm.api_key in config)")
	}

	// Retries stay off: the controller reports a failure to the user
	// immediately instead of retrying behind their back.
	return gollm.NewLLM(
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetAPIKey(cfg.APIKey),
		gollm.SetMaxRetries(0),
	)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

func modeList(configured []config.ModeConfig) []modes.Mode {
	list := make([]modes.Mode, len(configured))
	for i, mc := range configured {
		list[i] = modes.Mode{Key: mc.Key, Label: mc.Label, Instruction: mc.Instruction}
	}
	return list
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
