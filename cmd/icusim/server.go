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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/config"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/feedback"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/sessionlog"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/db"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/metrics"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/middleware"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/notification"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/report"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/websocket"
)

const version = "0.1.0"

// deps are the collaborators the HTTP server is assembled from.
type deps struct {
	sessions      sessionlog.Repository
	feedback      feedback.Repository
	notifications *notification.Manager
	metrics       *metrics.Metrics
	hub           *websocket.Hub
	db            db.Pinger
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	m := metrics.New(true)
	d := deps{
		feedback: feedback.NewCSVRepo(cfg.FeedbackLogPath),
		metrics:  m,
	}

	// Session log: Postgres when configured, CSV otherwise.
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		d.sessions = sessionlog.NewRepoPG(pool)
		d.db = pool
	} else {
		d.sessions = sessionlog.NewCSVRepo(cfg.SessionLogPath)
		logger.Info().Str("path", cfg.SessionLogPath).Msg("logging sessions to csv")
	}

	mgr, err := buildNotifications(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure notifications")
	}
	mgr.SetObserver(m.ObserveNotification)
	d.hub = websocket.NewHub()
	mgr.SetPublisher(notification.ChannelWebSocket, d.hub)
	d.notifications = mgr

	e := newServer(cfg, logger, d)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Strs("channels", channelNames(mgr)).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdown(shutdownCtx, e, mgr, logger)
	logger.Info().Msg("server stopped")
	return nil
}

// shutdown stops accepting requests, then closes the notification channels.
// The websocket hub is one of them, so live dashboard connections, which
// e.Shutdown does not track once hijacked, are closed here too.
func shutdown(ctx context.Context, e *echo.Echo, mgr *notification.Manager, logger zerolog.Logger) {
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := mgr.Close(); err != nil {
		logger.Error().Err(err).Msg("closing notification channels")
	}
}

// buildNotifications configures every channel that has settings. A broker
// that cannot be reached is logged and skipped so the dashboard still runs.
func buildNotifications(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*notification.Manager, error) {
	var email notification.EmailSender
	switch {
	case cfg.BrevoEnabled():
		email = notification.NewBrevoSender(cfg.BrevoAPIKey, notification.BrevoContact{
			Name:  cfg.BrevoSenderName,
			Email: cfg.BrevoSenderEmail,
		})
	case cfg.SMTPEnabled():
		email = notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	mgr := notification.NewManager(email, notification.NewTemplateEngine())
	mgr.SetLogger(logger)
	mgr.SetTimeout(cfg.NotifyTimeout)

	if cfg.MQTTEnabled() {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.NotifyTimeout)
		pub, err := notification.NewMQTTPublisher(connectCtx, notification.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         byte(cfg.MQTTQoS),
		}, logger)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("mqtt disabled")
		} else {
			mgr.SetPublisher(notification.ChannelMQTT, pub)
		}
	}

	if cfg.KafkaEnabled() {
		pub, err := notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		mgr.SetPublisher(notification.ChannelKafka, pub)
	}
	return mgr, nil
}

func channelNames(mgr *notification.Manager) []string {
	var out []string
	for _, ch := range mgr.Channels() {
		out = append(out, string(ch))
	}
	return out
}

func newServer(cfg *config.Config, logger zerolog.Logger, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(d.metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if d.db != nil {
		e.GET("/health/db", db.HealthHandler(d.db))
	}
	e.GET("/metrics", d.metrics.Handler())

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	// Session log
	logSvc := sessionlog.NewService(d.sessions)
	sessionlog.NewHandler(logSvc).RegisterRoutes(apiV1)

	// Notifications
	notifier := notification.NewSessionNotifier(d.notifications, cfg.AlertRecipient, logger)
	notification.NewHandler(d.notifications).RegisterRoutes(apiV1)
	if d.hub != nil {
		websocket.NewHandler(d.hub, cfg.CORSOrigins, logger).RegisterRoutes(apiV1)
	}

	// ICU core
	icuSvc := icu.NewService(icu.NewPatientRegistry(icu.DefaultPatients()), logSvc, notifier)
	icuSvc.SetLogger(logger)
	icuSvc.SetMetrics(d.metrics)
	icuHandler := icu.NewHandler(icuSvc)
	icuHandler.SetReportRenderer(report.NewPDFRenderer())
	icuHandler.RegisterRoutes(apiV1)

	// Feedback
	var mailer feedback.Mailer
	if d.notifications.HasEmail() {
		mailer = d.notifications
	}
	fbSvc := feedback.NewService(d.feedback, mailer, cfg.FeedbackRecipient)
	fbSvc.SetLogger(logger)
	feedback.NewHandler(fbSvc).RegisterRoutes(apiV1)

	return e
}
