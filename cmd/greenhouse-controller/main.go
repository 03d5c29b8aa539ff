package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/api"
	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/datadog"
	"github.com/thatsimonsguy/greenhouse-controller/internal/env"
	"github.com/thatsimonsguy/greenhouse-controller/internal/greenhouse"
	"github.com/thatsimonsguy/greenhouse-controller/internal/logging"
	"github.com/thatsimonsguy/greenhouse-controller/internal/notifications"
	"github.com/thatsimonsguy/greenhouse-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.Logging.Format, cfg.Logging.File)
	env.Cfg = &cfg

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("site", cfg.Site.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting greenhouse controller")

	datadog.InitMetrics()
	shutdown.Register("datadog", func(ctx context.Context) error {
		datadog.Close()
		return nil
	})
	notifications.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sys, err := greenhouse.InitializeSystem(ctx, env.Cfg, clock.Real())
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to initialize greenhouse system")
	}
	shutdown.Register("system", func(ctx context.Context) error {
		cancel()
		sys.Shutdown()
		return nil
	})

	server := api.NewServer(sys.Service)
	shutdown.Register("http", server.Shutdown)
	go func() {
		if err := server.Start(cfg.API.Host, cfg.API.Port); err != nil {
			shutdown.ShutdownWithError(err, "REST API server failed")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
	shutdown.Shutdown()
}
