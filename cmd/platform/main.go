package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/adapters/his"
	"github.com/riskcalc/platform/internal/adapters/his/fhir"
	"github.com/riskcalc/platform/internal/adapters/his/sqlserver"
	"github.com/riskcalc/platform/internal/shared/config"
	"github.com/riskcalc/platform/internal/shared/database"
	"github.com/riskcalc/platform/internal/shared/events"
	"github.com/riskcalc/platform/internal/shared/logging"
)

// App holds all application dependencies. Optional dependencies are nil when
// disabled or unreachable.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *database.DB
	Bus    *events.Bus
	Redis  *redis.Client
	HIS    *his.Prefiller
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Server.Env, "qdiabetes-platform")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app := &App{Config: cfg, Logger: logger}
	closeDeps := connect(context.Background(), app)
	defer closeDeps()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(app),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	logger.Info("server starting",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("database", app.DB != nil),
		zap.Bool("kurrentdb", app.Bus != nil),
		zap.Bool("redis", app.Redis != nil),
		zap.Bool("his", app.HIS != nil),
		zap.Bool("auth", cfg.Auth.Enabled),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", zap.Error(err))
		closeDeps()
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

// connect opens the optional dependencies. Failures are logged and the server
// runs without the dependency. The returned func closes whatever was opened.
func connect(ctx context.Context, app *App) func() {
	cfg, logger := app.Config, app.Logger
	var closers []func()

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("database not available, assessments will not be stored", zap.Error(err))
		} else {
			app.DB = db
			closers = append(closers, db.Close)

			if err := database.Migrate(ctx, db.Pool, logger); err != nil {
				logger.Warn("migration failed", zap.Error(err))
			}
		}
	}

	if cfg.KurrentDB.Enabled {
		bus, err := events.NewBus(cfg.KurrentDB, logger)
		if err != nil {
			logger.Warn("KurrentDB not available, events kept in memory", zap.Error(err))
		} else {
			app.Bus = bus
			closers = append(closers, bus.Close)
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis not available, extraction cache disabled", zap.Error(err))
			client.Close()
		} else {
			app.Redis = client
			closers = append(closers, func() { client.Close() })
		}
	}

	if cfg.HIS.Enabled {
		source, closeSource, err := openHIS(ctx, cfg.HIS)
		if err != nil {
			logger.Warn("HIS not available, prefill disabled",
				zap.String("source", cfg.HIS.Source), zap.Error(err))
		} else {
			app.HIS = his.NewPrefiller(source, logger)
			closers = append(closers, closeSource)
		}
	}

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// openHIS connects to the configured HIS source.
func openHIS(ctx context.Context, cfg config.HISConfig) (his.Source, func(), error) {
	switch cfg.Source {
	case config.HISSourceFHIR:
		adapter, err := fhir.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() {}, nil
	case config.HISSourceSQLServer, "":
		adapter, err := sqlserver.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() { adapter.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown HIS source %q", cfg.Source)
	}
}
