package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/assessment"
	"github.com/riskcalc/platform/internal/extraction"
	"github.com/riskcalc/platform/internal/shared/auth"
	"github.com/riskcalc/platform/internal/shared/events"
	"github.com/riskcalc/platform/internal/shared/logging"
	"github.com/riskcalc/platform/internal/shared/metrics"
	secmiddleware "github.com/riskcalc/platform/internal/shared/middleware"
	"github.com/riskcalc/platform/internal/speech"
)

const (
	maxBodyBytes    = 1 << 20
	eventBufferSize = 1000
)

func newRouter(app *App) http.Handler {
	cfg, logger := app.Config, app.Logger

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig(cfg.Server.CORSOrigins)))
	r.Use(secmiddleware.BodyLimit(maxBodyBytes))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	assessmentHandler := assessment.NewHandler(newAssessmentService(app), prefiller(app), logger)
	extractionHandler := extraction.NewHandler(
		newExtractionService(app),
		secmiddleware.NewIPRateLimiter(cfg.RateLimit.ExtractionPerMinute),
		logger,
	)
	speechHandler := speech.NewHandler(speech.NewBroker(cfg.Speech, logger))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute).Middleware)

		if cfg.Auth.Enabled || cfg.IsProduction() {
			r.Use(auth.Middleware(cfg.Auth))
			r.Use(auth.RequireRoles(auth.RoleClinician, auth.RoleAdmin))
		}

		r.Mount("/assessments", assessmentHandler.Routes())
		r.Mount("/reference", assessmentHandler.ReferenceRoutes())
		r.Mount("/patients", assessmentHandler.PatientRoutes())
		r.Mount("/extraction", extractionHandler.Routes())
		r.Mount("/speech", speechHandler.Routes())
	})

	return r
}

func newAssessmentService(app *App) *assessment.Service {
	var repo assessment.Repository
	if app.DB != nil {
		repo = assessment.NewPostgresRepository(app.DB.Pool)
	}

	var publisher events.Publisher = events.NewRecorder(eventBufferSize)
	if app.Bus != nil {
		publisher = app.Bus
	}

	return assessment.NewService(repo, publisher, app.Logger)
}

func newExtractionService(app *App) *extraction.Service {
	var extractor extraction.Extractor
	client, err := extraction.NewClient(app.Config.Extraction)
	if err != nil {
		app.Logger.Warn("transcript extraction disabled", zap.Error(err))
	} else {
		extractor = client
	}

	var cache extraction.Cache
	if app.Redis != nil {
		cache = extraction.NewRedisCache(app.Redis)
	}

	return extraction.NewService(extractor, cache, app.Config.Extraction.CacheTTL, app.Logger)
}

func prefiller(app *App) assessment.Prefiller {
	if app.HIS == nil {
		return nil
	}
	return app.HIS
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "QDiabetes Risk Platform",
		"version": "0.1.0",
		"model":   "QDiabetes-2018",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		check := func(name string, enabled bool, ping func(context.Context) error) {
			if !enabled {
				checks[name] = "not configured"
				return
			}
			if err := ping(r.Context()); err != nil {
				checks[name] = "not ready: " + err.Error()
				return
			}
			checks[name] = "ready"
		}

		check("database", app.DB != nil, func(ctx context.Context) error { return app.DB.Health(ctx) })
		check("kurrentdb", app.Bus != nil, func(ctx context.Context) error { return app.Bus.Health(ctx) })
		check("redis", app.Redis != nil, func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() })
		check("his", app.HIS != nil, func(ctx context.Context) error { return app.HIS.Health(ctx) })

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
