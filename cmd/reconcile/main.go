package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/matthewtrundle/premieratx-orders/internal/config"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/backfill"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/order"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single backfill pass and exit")
	flag.Parse()

	cfg, err := config.Load(".env")
	logger := config.NewLogger(cfg, os.Stdout)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		return err
	}
	defer db.Close()
	if err := order.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema", "error", err)
		return err
	}
	if err := backfill.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema", "error", err)
		return err
	}

	shop, err := shopify.NewClient(cfg.ShopifyStoreURL, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, nil)
	if err != nil {
		logger.Error("shopify client", "error", err)
		return err
	}
	job := backfill.NewJob(shop, order.NewPostgresRepository(db), backfill.NewPostgresRepository(db),
		cfg.ReconcileLookback, logger)

	if *once {
		rep, err := job.RunOnce(ctx)
		if err != nil {
			logger.Error("backfill failed", "error", err)
			return err
		}
		logger.Info("backfill complete", "inserted", rep.Inserted, "completed", rep.Completed, "scanned", rep.Scanned)
		return nil
	}

	logger.Info("backfill loop starting", "interval", cfg.ReconcileInterval, "lookback", cfg.ReconcileLookback)
	if err := job.Run(ctx, cfg.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("backfill loop stopped", "error", err)
		return err
	}
	return nil
}
