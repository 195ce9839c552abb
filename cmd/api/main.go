// Package main is the entrypoint for the Slotbook API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/slotbook/slotbook/internal/cache"
	"github.com/slotbook/slotbook/internal/config"
	"github.com/slotbook/slotbook/internal/handler"
	"github.com/slotbook/slotbook/internal/metrics"
	"github.com/slotbook/slotbook/internal/middleware"
	"github.com/slotbook/slotbook/internal/repository"
	"github.com/slotbook/slotbook/internal/server"
	"github.com/slotbook/slotbook/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	userService := service.NewUserService(repo, cacheClient, cfg.JWTSecret, cfg.TokenTTL, cfg.StoreTimeout, recorder)
	bookingService := service.NewBookingService(repo, cacheClient, cfg.StoreTimeout, recorder)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(userService, logger)
	appointmentHandler := handler.NewAppointmentHandler(bookingService, logger)
	timeslotHandler := handler.NewTimeslotHandler(bookingService, logger)
	adminHandler := handler.NewAdminHandler(bookingService, userService, logger)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(routerDeps{
		base:         h,
		health:       healthHandler,
		auth:         authHandler,
		appointments: appointmentHandler,
		timeslots:    timeslotHandler,
		admin:        adminHandler,
		metrics:      metricsHandler,
		users:        userService,
		cache:        cacheClient,
		cfg:          cfg,
		logger:       logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	base         *handler.Handler
	health       *handler.HealthHandler
	auth         *handler.AuthHandler
	appointments *handler.AppointmentHandler
	timeslots    *handler.TimeslotHandler
	admin        *handler.AdminHandler
	metrics      *handler.MetricsHandler
	users        *service.UserService
	cache        *cache.Cache
	cfg          *config.Config
	logger       *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(securityConfig(deps.cfg)))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	}
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", deps.base.Root)

	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		JWTSecret:  deps.cfg.JWTSecret,
		Principals: deps.users,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    deps.logger,
		Cache:     deps.cache,
		Enabled:   deps.cfg.RateLimitEnabled,
		AuthRPS:   deps.cfg.RateLimitAuthRPS,
		AuthBurst: deps.cfg.RateLimitAuthBurst,
		APIRPS:    deps.cfg.RateLimitAPIRPS,
		APIBurst:  deps.cfg.RateLimitAPIBurst,
	}

	// Credential endpoints: rate limited per IP, no token required.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitAuth(rateLimitCfg))
		r.Post("/auth/register", deps.auth.Register)
		r.Post("/auth/login", deps.auth.Login)
	})

	// Authenticated routes: token required, rate limited per user.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.Get("/auth/me", deps.auth.Me)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", deps.appointments.List)
			r.Post("/", deps.appointments.Create)
			r.Get("/{id}", deps.appointments.Get)
			r.Delete("/{id}", deps.appointments.Delete)
		})

		r.Route("/calendar/timeslots", func(r chi.Router) {
			r.Get("/", deps.timeslots.List)
			r.With(middleware.RequireAdmin()).Post("/", deps.timeslots.Create)
			r.With(middleware.RequireAdmin()).Delete("/{id}", deps.timeslots.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/dashboard", deps.admin.Dashboard)
			r.Get("/users", deps.admin.ListUsers)
			r.Get("/appointments", deps.admin.ListAppointments)
			r.Get("/timeslots", deps.admin.ListTimeslots)
			r.Delete("/appointments/{id}", deps.admin.DeleteAppointment)
		})

		r.With(middleware.RequireAdmin()).Get("/metrics", deps.metrics.Metrics)
	})

	// 404 and 405 handlers
	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

// securityConfig builds the security header configuration, relaxing
// HSTS outside production so local HTTP development works.
func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	sec := middleware.DefaultSecurityConfig()
	sec.IsDevelopment = !cfg.IsProduction()
	sec.MaxRequestBodySize = cfg.MaxRequestBodySize
	return sec
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
