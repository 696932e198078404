// Command surge runs the dynamic pricing engine. Purchases push prices up,
// idle products decay back down, and products that hit their ceiling crash
// into a half-price sale.
//
// Usage:
//
//	surge --config config.yaml
//	surge (uses CLI arguments)
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/surge/config"
	"github.com/vadiminshakov/surge/internal/app"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	marketplace, err := app.NewMarketplace(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build marketplace", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := marketplace.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("marketplace stopped", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
