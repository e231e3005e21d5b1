package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/prism-copy/internal/cli"
	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/copywriter"
	"github.com/nulzo/prism-copy/internal/failover"
	kvfactory "github.com/nulzo/prism-copy/internal/kv/factory"
	"github.com/nulzo/prism-copy/internal/llm"
	"github.com/nulzo/prism-copy/internal/platform/logger"
	"github.com/nulzo/prism-copy/internal/platform/otel"
	"github.com/nulzo/prism-copy/internal/quota"
	"github.com/nulzo/prism-copy/internal/server"
	"github.com/nulzo/prism-copy/internal/version"
	"go.uber.org/zap"

	// Register adapters with the llm factory.
	_ "github.com/nulzo/prism-copy/internal/llm/chat"
	_ "github.com/nulzo/prism-copy/internal/llm/inference"
	_ "github.com/nulzo/prism-copy/internal/llm/replicate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logger.Initialize(logCfg)
	defer logger.Sync()
	log := logger.Get()

	log.Info("Starting prism-copy",
		zap.String("version", version.Version),
		zap.String("env", cfg.Server.Env),
		zap.String("storage", cfg.Storage.Driver),
	)

	shutdownTracing, err := otel.Setup(cfg.Tracing, version.Version, os.Stdout, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	ctx := context.Background()

	store, err := kvfactory.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: cfg.Failover.RequestTimeout}

	log.Info(cli.Stylize("Provider pool", cli.Bold))
	pool := failover.NewPool(cfg.Providers, llm.Options{
		Client:          httpClient,
		PollInterval:    cfg.Failover.PollInterval,
		PollMaxAttempts: cfg.Failover.PollMaxAttempts,
	}, logger.Named("pool"))

	cooldown := failover.NewCooldown(cfg.Failover.CooldownWindow, nil)
	client := failover.NewClient(pool, cooldown, httpClient, logger.Named("failover"))

	loc, err := quota.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		log.Warn("Unknown quota timezone, using local time", zap.String("timezone", cfg.Quota.Timezone), zap.Error(err))
		loc = time.Local
	}
	gate := quota.NewGate(store, cfg.Quota.DailyLimit,
		quota.WithLocation(loc),
		quota.WithLogger(logger.Named("quota")),
	)

	features := copywriter.NewService(client, gate, logger.Named("copywriter"))

	if len(cfg.Server.APIKeys) == 0 {
		log.Warn("No server.api_keys configured, the API is open to anyone who can reach it")
	}

	go checkForUpdates(log)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go client.RunSweeper(sweepCtx)

	srv := server.New(cfg, log, server.Deps{
		Failover: client,
		Quota:    gate,
		Features: features,
		PoolSize: func() int { return len(pool) },
		Version:  version.Version,
	})
	httpServer := srv.HTTPServer()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info(cli.Arrow()+" Listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-stop
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Tracer shutdown", zap.Error(err))
	}
}

func checkForUpdates(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	upd, err := version.Check(ctx, nil, version.DefaultReleaseURL, version.Version)
	if err != nil {
		log.Debug("Release check skipped", zap.Error(err))
		return
	}
	if upd.Outdated {
		log.Warn(cli.WarningSign()+" A newer release is available",
			zap.String("current", upd.Current),
			zap.String("latest", upd.Latest),
		)
	}
}
