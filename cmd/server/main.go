package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/connector/kalshi"
	"github.com/omniverse/omnimarket/internal/connector/polymarket"
	"github.com/omniverse/omnimarket/internal/logging"
	"github.com/omniverse/omnimarket/internal/mockdata"
	"github.com/omniverse/omnimarket/internal/retry"
	"github.com/omniverse/omnimarket/internal/sample"
	"github.com/omniverse/omnimarket/internal/scheduler"
	"github.com/omniverse/omnimarket/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/server/config.yaml", "path to config file")
	flag.Parse()

	// A local .env may carry provider credentials during development.
	_ = godotenv.Load()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Couldn't build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := mockSource(cfg)
	if err != nil {
		logger.Fatal("couldn't load mock dataset", zap.Error(err))
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Duration(),
		MaxDelay:    cfg.Retry.MaxDelay.Duration(),
	}

	registry := connector.NewRegistry(
		kalshi.New(kalshi.Config{
			BaseURL: cfg.Providers.Kalshi.BaseURL,
			KeyID:   cfg.Providers.Kalshi.APIKeyID,
			Key:     cfg.Providers.Kalshi.APIPrivateKey.PrivateKey,
		}, src, policy, logger),
		polymarket.New(polymarket.Config{
			GammaURL: cfg.Providers.Polymarket.GammaURL,
			ClobURL:  cfg.Providers.Polymarket.ClobURL,
			APIKey:   cfg.Providers.Polymarket.APIKey,
		}, src, policy, logger),
	)
	for _, conn := range registry.All() {
		logger.Info("provider registered",
			zap.String("provider", string(conn.Provider())),
			zap.String("mode", string(conn.Mode())))
	}

	sched, err := scheduler.New(registry, cfg.Sync.Schedule, cfg.Sync.Timeout.Duration(), logger)
	if err != nil {
		logger.Fatal("couldn't build scheduler", zap.Error(err))
	}
	sched.Start()
	if cfg.Sync.RunOnStart {
		go sched.RunNow()
	}

	srv := server.New(logger, registry, cfg.Server.RequestTimeout.Duration())
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("couldn't shut down cleanly", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
}

// mockSource builds the dataset mock-mode connectors serve. A configured
// file wins; otherwise the generated dataset backs zero-config runs.
func mockSource(cfg *config) (*mockdata.Source, error) {
	if cfg.Mock.Dataset != "" {
		return mockdata.Load(cfg.Mock.Dataset)
	}
	return mockdata.New(sample.Generate(sample.DefaultSeed, sample.DefaultHours))
}
