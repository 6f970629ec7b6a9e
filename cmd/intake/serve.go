package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/config"
	"github.com/ehr/intake/internal/domain/registration"
	"github.com/ehr/intake/internal/platform/auth"
	"github.com/ehr/intake/internal/platform/cache"
	"github.com/ehr/intake/internal/platform/db"
	"github.com/ehr/intake/internal/platform/metrics"
	"github.com/ehr/intake/internal/platform/middleware"
	"github.com/ehr/intake/internal/registry"
)

const sessionSweepInterval = time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// server is the assembled intake service.
type server struct {
	echo       *echo.Echo
	sessions   *registration.SessionStore
	dispatcher *card.Dispatcher
	closers    []func() error
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	srv := &server{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := registry.NewClient(registry.ClientConfig{
		BaseURL:  cfg.RegistryBaseURL,
		Username: cfg.RegistryUsername,
		Password: cfg.RegistryPassword,
		Timeout:  cfg.RegistryTimeout,
	}, logger, m)
	health := map[string]db.Pinger{"registry": client}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, rc.Close)
		rs := cache.NewRedisStore(rc, "intake:")
		store = rs
		health["redis"] = rs
		logger.Info().Msg("attribute-type cache backed by redis")
	}
	schema := registry.NewSchemaCache(client, store, cfg.SchemaCacheTTL, logger)

	printer, closePrinter, err := newPrinter(cfg)
	if err != nil {
		srv.Close()
		return nil, err
	}
	srv.closers = append(srv.closers, closePrinter)

	srv.sessions = registration.NewSessionStore(cfg.SessionTTL, m)
	srv.dispatcher = card.NewDispatcher(card.NewRenderer(), printer, logger, m)

	svc := registration.NewService(registration.Config{
		PHNIdentifierType: cfg.PHNIdentifierType,
		TimeZone:          cfg.Location(),
		MaxPhotoBytes:     cfg.MaxPhotoBytes,
	}, schema, client, srv.sessions, logger)
	svc.SetMetrics(m)
	svc.SetCardDispatcher(srv.dispatcher)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit, "/input"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, func(c echo.Context) bool {
		return strings.HasSuffix(c.Request().URL.Path, "/submit")
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	// Auth middleware
	defaultLocation := auth.Location{UUID: cfg.DefaultLocationUUID, Name: cfg.DefaultLocationName}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth is active: every request runs as an admin operator")
		e.Use(auth.DevAuthMiddleware(defaultLocation))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.PathSkipper("/health", "/metrics"),
		}))
	}

	e.GET("/health", db.HealthHandler("intake", health))
	e.GET("/metrics", metrics.Handler(reg))

	apiV1 := e.Group("/api/v1")
	registration.NewHandler(svc).RegisterRoutes(apiV1)

	srv.echo = e
	return srv, nil
}

// newPrinter builds the configured print sink and a func releasing it.
func newPrinter(cfg *config.Config) (card.Printer, func() error, error) {
	noop := func() error { return nil }
	switch cfg.PrintSink {
	case config.PrintSinkFile:
		p, err := card.NewFilePrinter(cfg.PrintDir)
		if err != nil {
			return nil, nil, err
		}
		return p, noop, nil
	case config.PrintSinkMinio:
		p, err := card.NewObjectStorePrinter(card.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, noop, nil
	case config.PrintSinkAMQP:
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to amqp: %w", err)
		}
		p, err := card.NewQueuePrinter(conn, cfg.AMQPPrintQueue)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return p, conn.Close, nil
	default:
		return card.NopPrinter{}, noop, nil
	}
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

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build server")
		return err
	}
	defer srv.Close()

	go srv.sessions.Run(ctx, sessionSweepInterval)

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("print_sink", cfg.PrintSink).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = srv.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.echo.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	stop()
	srv.dispatcher.Wait()
	logger.Info().Msg("server stopped")
	return nil
}
