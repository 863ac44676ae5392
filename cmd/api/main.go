package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/wanterio/wanterio-backend/api/controllers"
	"github.com/wanterio/wanterio-backend/api/middleware"
	"github.com/wanterio/wanterio-backend/api/routes"
	"github.com/wanterio/wanterio-backend/internal/admin"
	"github.com/wanterio/wanterio-backend/internal/care"
	"github.com/wanterio/wanterio-backend/internal/cart"
	"github.com/wanterio/wanterio-backend/internal/catalog"
	"github.com/wanterio/wanterio-backend/internal/checkout"
	"github.com/wanterio/wanterio-backend/internal/session"
	authsession "github.com/wanterio/wanterio-backend/pkg/auth/session"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/backend/platform"
	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/db"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/metrics"
	"github.com/wanterio/wanterio-backend/pkg/migrate"
	"github.com/wanterio/wanterio-backend/pkg/redis"
	"github.com/wanterio/wanterio-backend/pkg/security"
	"github.com/wanterio/wanterio-backend/pkg/storage"
)

const sessionRefreshWindow = 30 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	checks := map[string]controllers.Pinger{}

	var (
		redisClient *redis.Client
		kv          storage.KV
		rateStore   middleware.RateLimitStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		kv, rateStore = redisClient, redisClient
		checks["redis"] = redisClient
	}

	local, err := storage.Open(cfg.Storage, kv)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		identity backend.Identity = backend.Unconfigured{}
		records  backend.Records  = backend.Unconfigured{}
		demo                      = true
	)
	if cfg.DB.Configured(cfg.FeatureFlags) {
		dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
		if err != nil {
			return err
		}
		closers = append(closers, dbClient.Close)
		checks["db"] = dbClient

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return err
		}

		var sessionStore authsession.Store = authsession.NewMemoryStore()
		if redisClient != nil {
			sessionStore = redisClient
		}
		accessSessions, err := authsession.NewManager(sessionStore, sessionRefreshWindow)
		if err != nil {
			return err
		}

		platformBackend, err := platform.New(platform.Params{
			DB:       dbClient,
			Hasher:   security.NewHasher(cfg.Password),
			Sessions: accessSessions,
			Local:    local,
			JWT:      cfg.JWT,
			Logger:   logg,
		})
		if err != nil {
			return err
		}
		identity, records, demo = platformBackend, platformBackend, false
	} else {
		logg.Warn(ctx, "datastore not configured; serving the demo catalogue")
	}

	cartParams := cart.ManagerParams{
		Storage: local,
		Logger:  logg,
		Metrics: metrics.NewCartMetrics(registry),
	}
	if cfg.Cart.RemoteSync && !demo {
		cartParams.Remote = records
	}
	carts, err := cart.NewManager(cartParams)
	if err != nil {
		return err
	}
	closers = append(closers, func() error { carts.Close(); return nil })

	sessions, err := session.NewManager(session.ManagerParams{
		Identity:  identity,
		Records:   records,
		Navigator: newNavigator(logg),
		Logger:    logg,
		Metrics:   metrics.NewSessionMetrics(registry),
		Timeout:   cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}
	closers = append(closers, func() error { sessions.Close(); return nil })

	unbind := bindCart(sessions, carts, logg)
	closers = append(closers, func() error { unbind(); return nil })

	if err := sessions.Start(ctx); err != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{"error": err.Error()}), "session restore failed; starting signed out")
	}

	medicines, err := catalog.NewService(records, logg, cfg.Backend.Timeout)
	if err != nil {
		return err
	}
	orders, err := checkout.NewService(checkout.ServiceParams{
		Session: sessions,
		Cart:    carts,
		Orders:  records,
		Logger:  logg,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}
	careService, err := care.NewService(care.ServiceParams{
		Session: sessions,
		Records: records,
		Logger:  logg,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}
	adminService, err := admin.NewService(admin.ServiceParams{
		Session: sessions,
		Records: records,
		Logger:  logg,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			Gatherer:  registry,
			RateStore: rateStore,
			Checks:    checks,
			Demo:      demo,
			Session:   sessions,
			Cart:      carts,
			Items:     medicines,
			Catalog:   medicines,
			Checkout:  orders,
			Care:      careService,
			Admin:     adminService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": server.Addr, "demo": demo}), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	logg.Info(ctx, "shutting down api server")
	return server.Shutdown(shutdownCtx)
}
