// Package main provides the entrypoint for the map client control server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prproute/mapclient/internal/api"
	"github.com/prproute/mapclient/internal/api/middleware"
	"github.com/prproute/mapclient/internal/config"
	"github.com/prproute/mapclient/internal/mapview"
	"github.com/prproute/mapclient/internal/provider/resilience"
	"github.com/prproute/mapclient/internal/routeservice"
	"github.com/prproute/mapclient/internal/session"
	"github.com/prproute/mapclient/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "mapclient"

	dotenv := config.LoadDotEnv()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Environment).
		Bool("dotenv", dotenv).
		Msg("starting map client")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return
	}
	sessionMetrics, err := telemetry.NewSessionMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize session metrics")
		return
	}

	registry := resilience.NewRegistry()
	service, err := routeservice.NewClient(routeservice.ClientConfig{
		BaseURL:    cfg.RoutingBaseURL,
		Timeout:    cfg.RoutingTimeout,
		MaxRetries: cfg.RoutingMaxRetries,
		Registry:   registry,
		Metrics:    sessionMetrics,
		Logger:     log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create routing client")
		return
	}
	log.Info().
		Str("base_url", cfg.RoutingBaseURL).
		Dur("timeout", cfg.RoutingTimeout).
		Msg("routing client initialized")

	loop := session.NewLoop(64)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()

	surface := mapview.New(log)
	orch, err := session.New(session.Config{
		Service:     service,
		Surface:     surface,
		Banners:     surface,
		Dispatcher:  loop,
		Metrics:     sessionMetrics,
		Logger:      log,
		BaseContext: ctx,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		return
	}
	if err := loop.Do(ctx, orch.LoadCatalog); err != nil {
		log.Error().Err(err).Msg("failed to start metric catalog load")
		return
	}
	log.Info().Str("session_id", orch.ID()).Msg("session initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            httpMetrics,
		Runner:             loop,
		Session:            orch,
		Registry:           registry,
		Bounds:             cfg.MapBounds,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequireTLS:         cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	<-loopDone

	log.Info().Msg("server stopped")
}
