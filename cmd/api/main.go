package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/matthewtrundle/premieratx-orders/internal/config"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/auth"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/backfill"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/customer"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/draft"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/order"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/payment"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	logger := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		logger.Error("config", "error", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config", "error", err)
		return err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping database", "error", err)
		return err
	}
	if err := order.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema", "error", err)
		return err
	}
	if err := backfill.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema", "error", err)
		return err
	}
	logger.Info("connected to database")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(order.CORS())

	// ── Upstreams ───────────────────────────────────────────
	stripeGateway := payment.NewStripeGateway(cfg.StripeSecretKey, nil)
	shop, err := shopify.NewClient(cfg.ShopifyStoreURL, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, nil)
	if err != nil {
		logger.Error("shopify client", "error", err)
		return err
	}

	// ── Payment → Order ─────────────────────────────────────
	orderService := order.NewService(
		payment.NewVerifier(stripeGateway, logger),
		draft.NewResolver(draft.NewPostgresRepository(db), logger),
		customer.NewUpserter(shop, logger),
		shop,
		order.NewPostgresRepository(db),
		logger,
	)

	var mw []func(http.Handler) http.Handler
	if cfg.JWTSecret != "" {
		mw = append(mw, auth.Middleware(auth.NewService(cfg.JWTSecret)))
	} else {
		logger.Warn("SUPABASE_JWT_SECRET not set, order endpoint is unauthenticated")
	}
	order.NewHandler(orderService).RegisterRoutes(router, mw...)

	// ── Start Server ─────────────────────────────────────────
	logger.Info("order service starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	return nil
}
