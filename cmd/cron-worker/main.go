package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/wanterio/wanterio-backend/internal/cron"
	authsession "github.com/wanterio/wanterio-backend/pkg/auth/session"
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

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "once": *once})

	if err := run(ctx, cfg, logg, *once); err != nil {
		logg.Error(ctx, "cron worker failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	if !cfg.DB.Configured(cfg.FeatureFlags) {
		logg.Warn(ctx, "datastore not configured; nothing to maintain")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()

		env := cfg.App.Env
		if env == "" {
			env = "local"
		}
		// held past one interval so a crashed runner cannot block the next cycle for long
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+env), cfg.Maintenance.Interval+time.Hour)
		if err != nil {
			return err
		}
	}

	// the worker never signs anyone in; the registry only satisfies platform.New
	accessSessions, err := authsession.NewManager(authsession.NewMemoryStore(), cfg.JWT.TTL()+time.Minute)
	if err != nil {
		return err
	}
	records, err := platform.New(platform.Params{
		DB:       dbClient,
		Hasher:   security.NewHasher(cfg.Password),
		Sessions: accessSessions,
		Local:    storage.NewMemoryStore(0),
		JWT:      cfg.JWT,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	registry, err := jobs(cfg.Maintenance, records)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "cron worker started")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker stopped")
	return nil
}

func jobs(cfg config.MaintenanceConfig, records *platform.Backend) (*cron.Registry, error) {
	retention, err := cron.NewCartRetentionJob(records, cfg.CartRetention)
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewAppointmentExpiryJob(records, cfg.AppointmentGraceDays)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(retention, expiry)
}
