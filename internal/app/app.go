// Package app wires the storefront together: configuration, storage,
// domain services, the HTTP server, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/craftpc/storefront/internal/domain/cart"
	"github.com/craftpc/storefront/internal/domain/checkout"
	"github.com/craftpc/storefront/internal/domain/coupon"
	"github.com/craftpc/storefront/internal/handler"
	"github.com/craftpc/storefront/internal/payment"
	"github.com/craftpc/storefront/internal/refund"
	"github.com/craftpc/storefront/internal/storage/postgres"
	"github.com/craftpc/storefront/pkg/health"
	"github.com/craftpc/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	// Discount rules are loaded once at startup; rule changes roll out
	// with a restart, matching the release cadence of pricing changes.
	rules, err := couponRepo.ListRules(ctx)
	if err != nil {
		return errors.Wrap(err, "load coupon rules")
	}
	engine := coupon.NewEngine(rules...)

	codes, err := couponRepo.ListCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "load coupon codes")
	}
	codeGuard := coupon.NewCodeGuard(codes, couponRepo)

	// Payment gateway client. Missing credentials are a startup failure.
	gateway, err := payment.NewClient(payment.Config{
		BaseURL:   cfg.Payment.BaseURL,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		Timeout:   cfg.Payment.Timeout,
	}, lg.Named("payment"))
	if err != nil {
		return errors.Wrap(err, "create payment client")
	}

	// Domain services.
	carts := cart.NewStore(cartRepo, lg.Named("cart"))
	checkoutSvc := checkout.NewService(
		productRepo, engine, gateway, paymentRepo, carts, cfg.Currency, lg.Named("checkout"),
	)
	refundProc := refund.NewProcessor(gateway, paymentRepo, paymentRepo, lg.Named("refund"))

	// HTTP handlers.
	h := handler.NewHandler(productRepo, carts, checkoutSvc, refundProc, codeGuard)

	api := httpmiddleware.Wrap(h.Routes(), handler.SessionIdentity())

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "storefront-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-Session-ID", "X-User-Role"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
