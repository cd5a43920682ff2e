package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/hostdash/internal/activityapi"
	"github.com/codr1/hostdash/internal/api"
	"github.com/codr1/hostdash/internal/api/hostdash"
	"github.com/codr1/hostdash/internal/config"
	"github.com/codr1/hostdash/internal/dashboard"
	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/ratelimit"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/activities/42/reservation-dashboard":
			io.WriteString(w, `[{"date":"2025-07-11","reservations":{"pending":2,"confirmed":1,"declined":1}}]`)
		case "/activities/42/reserved-schedule":
			io.WriteString(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	cfg, err := config.Parse([]byte("app:\n  name: hostdash\n  port: 8080\n  base_url: http://localhost:8080\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	client, err := activityapi.New(activityapi.Options{BaseURL: upstream.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sessions := hostdash.NewSessions(hostdash.SessionsConfig{
		Dashboard: dashboard.NewLoader(client, &dashboard.Config{Location: time.UTC}),
		Detail:    detail.NewLoader(client),
		Updater:   client,
	})

	limiter := ratelimit.New(nil)
	t.Cleanup(limiter.Close)

	srv := newServer(cfg, sessions, limiter)
	if srv.Addr != ":8080" {
		t.Fatalf("addr: got %q want :8080", srv.Addr)
	}
	server := httptest.NewServer(srv.Handler)
	t.Cleanup(server.Close)
	return server
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("health: got %d %q", res.StatusCode, body)
	}
	if len(res.Cookies()) != 0 {
		t.Fatalf("health checks should not start host sessions")
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestDashboardRoute(t *testing.T) {
	server := newTestServer(t)

	res, err := http.Get(server.URL + "/api/v1/activities/42/dashboard?year=2025&month=7")
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d body %s", res.StatusCode, body)
	}
	if !strings.Contains(string(body), `"2025-07-11"`) {
		t.Fatalf("dashboard body missing date: %s", body)
	}
	var session *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == api.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("expected %s cookie", api.SessionCookieName)
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/activities/42/dashboard", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete dashboard: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status: got %d want 405", res.StatusCode)
	}
}
