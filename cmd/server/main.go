// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/hostdash/internal/activityapi"
	"github.com/codr1/hostdash/internal/api/hostdash"
	"github.com/codr1/hostdash/internal/config"
	"github.com/codr1/hostdash/internal/dashboard"
	"github.com/codr1/hostdash/internal/db"
	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/ratelimit"
	"github.com/codr1/hostdash/internal/scheduler"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)
	shutdownTimeout := time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dashboard timezone")
	}

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	client, err := activityapi.New(activityapi.Options{
		BaseURL:     cfg.Upstream.BaseURL,
		AccessToken: cfg.Upstream.AccessToken,
		Timeout:     cfg.Upstream.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create activity API client")
	}

	sessions := hostdash.NewSessions(hostdash.SessionsConfig{
		Dashboard: dashboard.NewLoader(client, &dashboard.Config{
			Location:          loc,
			DetailConcurrency: cfg.Dashboard.DetailConcurrency,
		}),
		Detail:      detail.NewLoader(client),
		Updater:     client,
		Recorder:    database.Decisions,
		IdleTimeout: cfg.Dashboard.SessionIdle,
	})
	hostdash.InitHandlers(database.Decisions, loc)

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if _, err := scheduler.RegisterDashboardRefreshJob(sessions, cfg.Dashboard.RefreshCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to register dashboard refresh job")
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Window:        time.Minute,
		MaxPerSession: cfg.Dashboard.DecisionsPerMinute,
	})
	defer limiter.Close()

	server := newServer(cfg, sessions, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("upstream", cfg.Upstream.BaseURL).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler start: %w", err)
		}
		<-ctx.Done()
		if err := scheduler.Stop(); err != nil {
			return fmt.Errorf("scheduler stop: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
