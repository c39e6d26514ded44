package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/api"
	"github.com/cronology/cronology/internal/bus"
	"github.com/cronology/cronology/internal/display"
	"github.com/cronology/cronology/internal/event"
	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/gateway"
	"github.com/cronology/cronology/internal/timer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}
	setupLogging()

	config, err := loadConfig(getEnv("CONFIG_FILE", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	// Storage and display namespaces.
	generator := display.NewGenerator(config.CodeCharset)
	codeRegistry := display.NewRegistry(generator)
	sessionCache := display.NewSessionCache(generator, clock, config.sessionTTL())
	eventRepo := event.NewRepository()
	eventApp := event.NewApp(eventRepo, event.NewTemplateRepository(), codeRegistry)
	displayApp := display.NewApp(codeRegistry, sessionCache, eventRepo)

	// Broadcast gateway, with an optional NATS mirror beside it.
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	broadcaster := events.Fanout{connectionManager}
	var mirror *bus.Publisher
	if config.NATSURL != "" {
		mirror, err = bus.Connect(config.NATSURL, config.SubjectPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect NATS event mirror")
		}
		defer mirror.Close()
		broadcaster = append(broadcaster, mirror)
	}

	// Timer engine and operator commands.
	timerRegistry := timer.NewRegistry()
	engine := timer.NewEngine(clock, config.tickInterval(), timerRegistry, eventRepo, broadcaster)
	timerApp := timer.NewApp(timerRegistry, eventRepo, broadcaster, clock)

	var auth api.Authenticator
	if config.JWTSecret != "" {
		auth = api.NewJWTAuthenticator(config.JWTSecret)
	} else {
		log.Warn().Msg("JWT_SECRET not set; operator endpoints are unauthenticated")
		auth = api.AllowAll{Principal: "dev"}
	}

	apiHandler := api.NewHandler(eventApp, timerApp, displayApp, broadcaster, auth)
	wsHandler := gateway.NewWebSocketHandler(connectionManager, displayApp)
	server := setupServer(config, apiHandler, wsHandler)

	go connectionManager.Start(ctx)
	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("timer engine stopped")
		}
	}()
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnv("LOG_FORMAT", "console") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
