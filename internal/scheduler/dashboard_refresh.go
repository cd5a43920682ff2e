package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	DashboardRefreshJobName = "dashboard_refresh"
	dashboardRefreshTimeout = 2 * time.Minute
)

// RefreshStats summarizes one pass over the open host sessions.
type RefreshStats struct {
	Refreshed int
	Failed    int
	Skipped   int
	Evicted   int
}

// DashboardRefresher reloads every open dashboard and drops idle sessions.
type DashboardRefresher interface {
	EvictIdle(now time.Time) int
	RefreshAll(ctx context.Context) RefreshStats
}

// RegisterDashboardRefreshJob keeps time-based promotion current by
// periodically reloading each host's selected month.
func RegisterDashboardRefreshJob(refresher DashboardRefresher, cronExpr string) (gocron.Job, error) {
	if refresher == nil {
		return nil, fmt.Errorf("dashboard refresh job requires a refresher")
	}
	return AddJob(DashboardRefreshJobName, cronExpr, dashboardRefreshTask(refresher, time.Now))
}

func dashboardRefreshTask(refresher DashboardRefresher, now func() time.Time) func() error {
	jobLogger := log.With().
		Str("component", "dashboard_refresh_job").
		Str("job_name", DashboardRefreshJobName).
		Logger()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), dashboardRefreshTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		evicted := refresher.EvictIdle(now())
		stats := refresher.RefreshAll(ctx)
		stats.Evicted = evicted

		jobLogger.Info().
			Int("refreshed", stats.Refreshed).
			Int("failed", stats.Failed).
			Int("skipped", stats.Skipped).
			Int("evicted", stats.Evicted).
			Msg("Dashboard refresh completed")
		return nil
	}
}
