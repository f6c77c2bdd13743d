// Command quotad serves metered tool endpoints guarded by the entitlement
// engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/quotakit/pkg/config"
	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/requestid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "quotad:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	// LOG_LEVEL and LOG_FORMAT override the environment preset.
	opts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, cfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor(), identity.LoggerExtractor()),
	}
	log := logger.New(append(opts, logger.FromConfig(cfg.Log)...)...)

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "startup failed", logger.Error(err))
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, a.router(cfg))
}
