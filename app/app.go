package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/cache"
	"github.com/cromashop/croma/internal/config"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/email"
	"github.com/cromashop/croma/internal/handlers"
	"github.com/cromashop/croma/internal/services"
	"github.com/cromashop/croma/internal/stripe"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session verifier: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	productStore := db.NewProductStore(database)
	orderStore := db.NewOrderStore(database)
	inventoryStore := db.NewInventoryStore(database)
	couponStore := db.NewCouponStore(database)
	returnStore := db.NewReturnStore(database)
	newsletterStore := db.NewNewsletterStore(database)

	gateway := stripe.NewClient(cfg.StripeSecretKey)
	orderEmailer := services.NewStoreOrderEmailSender(emailProvider, cfg.SiteName, cfg.BaseURL)

	checkoutService := services.NewCheckoutService(
		productStore,
		orderStore,
		inventoryStore,
		couponStore,
		gateway,
		cfg.BaseURL,
		logger.With("component", "checkout_service"),
	)
	reconcileService := services.NewReconcileService(
		orderStore,
		couponStore,
		gateway,
		orderEmailer,
		logger.With("component", "reconcile_service"),
	)
	orderActions := services.NewOrderActionsService(
		orderStore,
		gateway,
		orderEmailer,
		cfg.BaseURL,
		logger.With("component", "order_actions"),
	)
	returnService := services.NewReturnService(orderStore, returnStore, logger.With("component", "return_service"))
	couponService := services.NewCouponService(couponStore)
	marketingService := services.NewMarketingService(newsletterStore, emailProvider, logger.With("component", "marketing_service"))
	stripeRouter := handlers.NewStripeEventRouter(reconcileService, logger.With("component", "stripe_router"))

	h, err := handlers.New(handlers.Dependencies{
		Config:           cfg,
		DB:               database,
		CacheProvider:    cacheProvider,
		Verifier:         verifier,
		StripeRouter:     stripeRouter,
		CheckoutService:  checkoutService,
		ReconcileService: reconcileService,
		OrderActions:     orderActions,
		ReturnService:    returnService,
		CouponService:    couponService,
		MarketingService: marketingService,
		Logger:           logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
