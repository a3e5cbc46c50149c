package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/config"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/identity"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/scheduling"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/db"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/events"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/middleware"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/notification"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/telemetry"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/websocket"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodySize     = "1M"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

func runServer(ctx context.Context) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	metrics := telemetry.New()
	metrics.RegisterPool(rt.pool)

	// Notifications: stored, pushed to websocket clients (through Redis when
	// several instances run) and optionally sent to Telegram.
	hub := websocket.NewHub(logger)
	var publisher events.Publisher = events.NewLocalBus(hub)
	var redisBus *events.RedisBus
	if cfg.RedisURL != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		redisBus = events.NewRedisBus(client, events.DefaultChannel, hub, logger)
		publisher = redisBus
		logger.Info().Msg("using redis event bus")
	}

	notifyOpts := []notification.Option{notification.WithMetrics(metrics)}
	if cfg.TelegramToken != "" {
		sender, err := notification.NewTelegramSender(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifyOpts = append(notifyOpts, notification.WithChatSender(sender))
	}
	dispatcher := notification.NewDispatcher(notification.NewPGStore(rt.pool), publisher, logger, notifyOpts...)

	identitySvc := rt.identityService()
	schedulingSvc := rt.schedulingService(identitySvc,
		scheduling.WithNotifier(dispatcher),
		scheduling.WithMetrics(metrics),
	)

	e := newEcho(cfg, logger, metrics)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(rt.pool, db.PoolStatsOf(rt.pool)))
	if cfg.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e.Group(""))

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(identity.ProfileMiddleware(identitySvc))

	registerAPI(apiV1, identitySvc, schedulingSvc, dispatcher)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return scheduling.NewRefresher(schedulingSvc, cfg.SlotRefreshInterval, logger).Run(gctx)
	})
	if redisBus != nil {
		g.Go(func() error { return redisBus.Run(gctx) })
	}

	err = g.Wait()
	logger.Info().Err(err).Msg("server stopped")
	return err
}

func newEcho(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}
	e.Use(middleware.RequestTimeout(requestTimeout))

	if cfg.IsDev() {
		logger.Warn().Msg("development auth enabled: X-Dev-* headers are trusted")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.SigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.Audit(logger))
	return e
}

func registerAPI(api *echo.Group, identitySvc *identity.Service, schedulingSvc *scheduling.Service, dispatcher *notification.Dispatcher) {
	identity.NewHandler(identitySvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	notification.NewHandler(dispatcher).RegisterRoutes(api)
}

// httpErrorHandler renders errors as {"error": message}. Errors that are not
// *echo.HTTPError are logged with their cause and returned as a bare 500.
func httpErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var msg interface{} = http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = he.Message
		} else {
			logger.Error().Err(err).
				Str("request_id", c.Response().Header().Get(middleware.RequestIDHeader)).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{"error": msg})
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

