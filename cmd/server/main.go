package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tracking/internal/app"
	"tracking/internal/config"
	"tracking/internal/event"
	"tracking/internal/handler"
	"tracking/internal/persist"
	"tracking/internal/progress"
	"tracking/internal/registry"
	"tracking/internal/repository"
	"tracking/internal/repository/postgres"
	"tracking/internal/route"
	"tracking/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stdout)

	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	// The in-memory registry is authoritative. Every external store is a
	// best-effort tier: a store that cannot be reached at boot is disabled
	// rather than fatal.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache and event fan-out disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
	}

	mongoClient, mongoColl, err := app.NewMongoCollection(ctx, cfg.Mongo)
	if err != nil {
		log.Warn().Err(err).Msg("mongo unavailable, durable snapshots disabled")
		mongoColl = nil
	} else {
		defer mongoClient.Disconnect(context.Background())
		log.Info().Str("collection", cfg.Mongo.Collection).Msg("connected to MongoDB")
	}

	var bookings repository.BookingRepository
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp != nil)
	if err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, booking lookups disabled")
	} else {
		defer db.Close()
		bookings = postgres.NewBookingRepository(db)
		log.Info().Str("database", cfg.Database.DBName).Msg("connected to PostgreSQL")
	}

	// Wire the engine.
	trips := registry.New()
	engine := progress.NewEngine(cfg.Tracking.CruisingSpeedKmh, cfg.Tracking.ETABufferPct, cfg.Tracking.ETADebounceMin)

	var remote route.Planner
	if cfg.Route.BaseURL != "" {
		remote = route.NewOSRMPlanner(cfg.Route.BaseURL, cfg.Route.Timeout)
	}
	planner := route.NewResolver(remote, route.NewFallbackPlanner(cfg.Tracking.CruisingSpeedKmh, cfg.Tracking.ETABufferPct))

	bridge := persist.NewBridge(redisClient, mongoColl, cfg.Tracking.CacheTTL, cfg.Tracking.PersistOpTimeout)

	var bus event.Bus = event.NewMemoryBus()
	if redisClient != nil {
		bus = event.NewRedisBus(redisClient)
	}

	tracking := service.NewTrackingService(cfg.Tracking, trips, engine, planner, bridge, bus, bookings)

	reaper := service.NewStalenessReaper(tracking, cfg.Tracking.ReaperInterval, cfg.Tracking.UpdateTimeout, cfg.Tracking.MaxTripAge)
	reaper.Start(context.Background())
	defer reaper.Stop()

	router := app.NewRouter(app.RouterDeps{
		TrackingHandler: handler.NewTrackingHandler(tracking),
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine.
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
