// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/hostdash/internal/api"
	"github.com/codr1/hostdash/internal/api/hostdash"
	"github.com/codr1/hostdash/internal/config"
	"github.com/codr1/hostdash/internal/ratelimit"
)

func newServer(cfg *config.Config, sessions *hostdash.Sessions, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithHostSession(sessions, strings.HasPrefix(cfg.App.BaseURL, "https://")),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	// Register routes
	registerRoutes(router, api.WithDecisionRateLimit(limiter, cfg.App.TrustProxy))

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, decisionLimit api.Middleware) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Host dashboard routes
	mux.HandleFunc("GET /api/v1/activities/{activityID}/dashboard", hostdash.HandleDashboard)
	mux.HandleFunc("GET /api/v1/activities/{activityID}/calendar", hostdash.HandleCalendar)
	mux.HandleFunc("GET /api/v1/activities/{activityID}/schedules/{scheduleID}/reservations", hostdash.HandleReservations)
	mux.Handle("PATCH /api/v1/activities/{activityID}/reservations/{reservationID}", decisionLimit(http.HandlerFunc(hostdash.HandleReservationStatus)))
	mux.HandleFunc("GET /api/v1/activities/{activityID}/decisions", hostdash.HandleDecisions)
}
