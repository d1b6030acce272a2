package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gheop3s/gheop3s/internal/catalog"
	"github.com/gheop3s/gheop3s/internal/config"
	"github.com/gheop3s/gheop3s/internal/domain/drugref"
	"github.com/gheop3s/gheop3s/internal/domain/screening"
	"github.com/gheop3s/gheop3s/internal/platform/auth"
	"github.com/gheop3s/gheop3s/internal/platform/cdshooks"
	"github.com/gheop3s/gheop3s/internal/platform/db"
	"github.com/gheop3s/gheop3s/internal/platform/metrics"
	"github.com/gheop3s/gheop3s/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the screening API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := cfg.Level(); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

// app holds the long-lived dependencies shared by the server and the CLI.
// pool and cache are nil when DATABASE_URL or REDIS_URL are unset.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	cache     *redis.Client
	screening *screening.Service
	drugs     *drugref.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	cat, err := catalog.Resolve(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	n, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}
	a.screening = screening.NewService(cat, screening.NewEvaluator(n), logger)
	logger.Info().
		Str("catalog", cat.Name).
		Str("version", cat.Version).
		Int("rules", cat.Len()).
		Str("any_interval_policy", n.AnyPolicy.String()).
		Msg("rule catalog loaded")

	var repo drugref.Repository
	if cfg.DatabaseURL != "" {
		a.pool, err = db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		repo = drugref.NewProductRepoPG(a.pool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set; drug reference table is kept in memory")
		repo = drugref.NewMemoryRepo()
	}

	if cfg.RedisURL != "" {
		a.cache, err = newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; drug lookups are not cached")
			a.cache = nil
		}
	}
	repo = drugref.NewCachedRepo(repo, a.cache, cfg.DrugCacheTTL, logger)
	a.drugs = drugref.NewService(repo, logger)

	return a, nil
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) authMiddleware() echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Issuer:     a.cfg.AuthIssuer,
		Audience:   a.cfg.AuthAudience,
		SigningKey: []byte(a.cfg.AuthSigningKey),
	}
	if a.cfg.IsDev() {
		return auth.DevAuthMiddleware(jwtCfg)
	}
	return auth.JWTMiddleware(jwtCfg)
}

func newServer(a *app) *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.ImportBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(a.authMiddleware())
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	cat := a.screening.Catalog()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":          "healthy",
			"catalog":         cat.Name,
			"catalog_version": cat.Version,
			"rules":           cat.Len(),
			"version":         progVersion.String(),
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	e.GET("/metrics", metrics.Handler())

	apiV1 := e.Group("/api/v1")
	screening.NewHandler(a.screening).RegisterRoutes(apiV1)
	drugref.NewHandler(a.drugs).RegisterRoutes(apiV1)

	hooks := cdshooks.NewHandler()
	screening.RegisterCDSServices(hooks, a.screening, logger)
	hooks.RegisterRoutes(e, auth.RequireRole(auth.ClinicalRoles...))

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: requests without a bearer token are treated as admin")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.Close()

	e := newServer(a)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
