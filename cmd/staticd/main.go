package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/staticd-io/staticd/internal/logger"
	"github.com/staticd-io/staticd/pkg/cache"
	"github.com/staticd-io/staticd/pkg/config"
	"github.com/staticd-io/staticd/pkg/metrics"
	"github.com/staticd-io/staticd/pkg/pool"
	"github.com/staticd-io/staticd/pkg/server"
)

// Exit codes reported to the invoking shell.
const (
	exitOK          = 0
	exitIOError     = 1
	exitAppData     = 2
	exitUnspecified = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		if errors.Is(err, config.ErrConfigFile) {
			return exitIOError
		}
		return exitAppData
	}

	if err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		return exitAppData
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("store", cfg.Store.Type).
		Str("home_page", cfg.Site.HomePage).
		Msg("staticd starting")

	var serverMetrics metrics.ServerMetrics
	var cacheMetrics cache.Metrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		serverMetrics = metrics.NewServerMetrics()
		cacheMetrics = metrics.NewCacheMetrics()

		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
		log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics endpoint enabled")
	}

	store, err := config.NewResourceStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to create resource store")
		return exitAppData
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("resource store close failed")
		}
	}()

	workers := pool.New(cfg.Server.MaxWorkers)
	workers.Start()
	defer workers.Stop()

	resourceCache := cache.New(ctx, store, workers, cacheMetrics)

	srv := server.New(cfg.Server, cfg.Site.HomePage, resourceCache, workers, serverMetrics)

	if err := srv.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		if errors.Is(err, server.ErrBind) {
			return exitIOError
		}
		return exitUnspecified
	}

	log.Info().Msg("staticd stopped")
	return exitOK
}
