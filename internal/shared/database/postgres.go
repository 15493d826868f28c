// Package database owns the PostgreSQL pool and the embedded schema
// migrations for stored assessments.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/shared/config"
)

const (
	applicationName   = "qdiabetes-platform"
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute

	defaultMaxConns       = 10
	defaultConnectTimeout = 5 * time.Second
)

// DB holds the pool the assessment repository and migrations share.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool and fails unless the first ping answers within
// cfg.ConnectTimeout.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pc.ConnConfig.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int32("max_conns", pc.MaxConns),
	)
	return &DB{Pool: pool}, nil
}

// poolConfig turns the database settings into a pgxpool configuration.
// Unset or inconsistent sizes fall back to safe values.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	minConns := min(max(cfg.MinConns, 0), maxConns)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	pc.MaxConns = int32(maxConns)
	pc.MinConns = int32(minConns)
	pc.MaxConnLifetime = maxConnLifetime
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod
	pc.ConnConfig.ConnectTimeout = timeout
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	return pc, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings the server. A pool with no free connection still answers,
// since Ping waits for one.
func (db *DB) Health(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
