// Package db owns the GORM connection used by the platform backend and the
// maintenance worker. Postgres is the production driver; SQLite serves
// local development when WANTERIO_USE_SQLITE is set.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Client struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.DBConfig, flags config.FeatureFlagsConfig, logg *logger.Logger) (*Client, error) {
	driver, dialector, err := dialectorFor(cfg, flags)
	if err != nil {
		return nil, err
	}
	if logg == nil {
		logg = logger.Nop()
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}

	if driver == "sqlite" {
		// one writer; concurrent writers hit SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	logg.Info(logg.WithField(ctx, "driver", driver), "database connected")
	return &Client{conn: conn}, nil
}

// FromGORM wraps an already-open connection.
func FromGORM(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func dialectorFor(cfg config.DBConfig, flags config.FeatureFlagsConfig) (string, gorm.Dialector, error) {
	if flags.UseSQLite {
		if cfg.SQLitePath == "" {
			return "", nil, errors.New("WANTERIO_SQLITE_PATH is required with WANTERIO_USE_SQLITE")
		}
		return "sqlite", sqlite.Open(cfg.SQLitePath), nil
	}
	if cfg.DSN == "" {
		return "", nil, errors.New("database DSN is required")
	}
	// simple protocol keeps statements compatible with transaction poolers
	return "postgres", postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) Exec(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.conn.WithContext(ctx).Exec(query, args...)
}

func (c *Client) Raw(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.conn.WithContext(ctx).Raw(query, args...)
}

func (c *Client) IsSQLite() bool {
	return c.conn.Dialector.Name() == "sqlite"
}

// WithTx runs fn in a transaction. fn's error or panic rolls it back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}

// queryLogger routes GORM's statement log through the service logger: slow
// statements at warn, failures at debug (callers classify and log those).
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	return queryLogger{logg: logg, slow: slow}
}

func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q queryLogger) Info(ctx context.Context, msg string, args ...any) {
	q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
}

func (q queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
}

func (q queryLogger) Error(ctx context.Context, msg string, args ...any) {
	q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
}

func (q queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	slow := q.slow > 0 && elapsed > q.slow
	if err == nil && !slow {
		return
	}
	sql, rows := fc()
	fields := q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		q.logg.Debug(q.logg.WithField(fields, "error", err.Error()), "query failed")
	case slow:
		q.logg.Warn(fields, "slow query")
	}
}
