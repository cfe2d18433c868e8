package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/guard"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/migrate"
	"storefront/internal/payment"
	"storefront/internal/reconcile"
	addressrepo "storefront/internal/repository/address"
	contactrepo "storefront/internal/repository/contact"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/repository/outbox"
	paymentrepo "storefront/internal/repository/payment"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	addresssvc "storefront/internal/service/address"
	contactsvc "storefront/internal/service/contact"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	usersvc "storefront/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "api")

	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		st, err := migrate.Apply(ctx, dbpool)
		if err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Uint("schema_version", st.Version).Msg("migrations applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	locks, cache, closeRedis := redisBacked(ctx, cfg, logger)
	defer closeRedis()

	provider, err := payment.FromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init payment provider")
	}
	publisher, err := events.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init event publisher")
	}
	defer publisher.Close()

	tokens := tokenrepo.NewPostgres(dbpool)
	payments := paymentrepo.NewPostgres(dbpool)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		UserSvc:    usersvc.New(userrepo.NewPostgres(dbpool, logger), tokens, cfg.JWTSecret, cfg.JWTTTL),
		AddressSvc: addresssvc.New(addressrepo.NewPostgres(dbpool)),
		ContactSvc: contactsvc.New(contactrepo.NewPostgres(dbpool)),
		OrderSvc:   ordersvc.New(orderrepo.NewPostgres(dbpool), payments, m, logger),
		PaymentSvc: paymentsvc.New(payments, provider, locks, paymentsvc.Options{
			Currency: cfg.Currency,
			LockTTL:  cfg.CheckoutTTL,
			Metrics:  m,
			Logger:   logger,
		}),
		Catalog:     catalog.NewClient(cfg.CatalogURL, cache, cfg.CatalogCacheTTL, logger),
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	relay := events.NewRelay(outbox.NewPostgres(dbpool), publisher, m, logger, cfg.OutboxPollInterval)
	reconciler := reconcile.New(payments, tokens, m, logger, cfg.ReconcileGrace)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return reconciler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}

// redisBacked returns the checkout guard and catalog cache. Without
// REDIS_ADDR both fall back to process memory.
func redisBacked(ctx context.Context, cfg config.Config, logger zerolog.Logger) (guard.Locker, catalog.Cache, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory checkout guard and catalog cache")
		return guard.NewMemory(), catalog.NewMemoryCache(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect to redis")
	}
	return guard.NewRedis(client), catalog.NewRedisCache(client), func() { _ = client.Close() }
}

