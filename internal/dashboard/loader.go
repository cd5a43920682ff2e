// Package dashboard builds the month calendar of reservation counts for one
// activity by reconciling the month summary with per-day schedule detail.
package dashboard

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/hostdash/internal/reservation"
)

const defaultDetailConcurrency = 8

// Source is the slice of the activity API the loader reads.
type Source interface {
	MonthSummary(ctx context.Context, activityID string, year int, month time.Month) ([]reservation.SummaryItem, error)
	ReservedSchedules(ctx context.Context, activityID string, date string) ([]reservation.DetailSchedule, error)
}

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	// Location the calendar dates and schedule times are interpreted in (default: time.Local)
	Location *time.Location
	// Max concurrent per-day detail fetches (default: 8)
	DetailConcurrency int
	// Clock for testing (nil uses real time)
	Clock Clock
}

// Entry is one calendar day of the dashboard.
type Entry struct {
	Date      string                 `json:"date"`
	Source    reservation.SourceKind `json:"source"`
	Count     reservation.Count      `json:"count"`
	Promoted  reservation.Count      `json:"promoted"`
	Schedules []reservation.Schedule `json:"-"`

	day time.Time
}

// PromotedAt recomputes the time-promoted count for now.
func (e Entry) PromotedAt(now time.Time) reservation.Count {
	return reservation.Promote(e.Count, e.Schedules, e.day, now)
}

// Badges projects the promoted count.
func (e Entry) Badges() []reservation.Badge {
	return reservation.Badges(e.Promoted)
}

// Slots returns the schedules that resolve to a real time slot, in upstream
// order. A summary-only day has none.
func (e Entry) Slots() []reservation.Schedule {
	out := make([]reservation.Schedule, 0, len(e.Schedules))
	for _, s := range e.Schedules {
		if !reservation.IsDateOnlyScheduleID(s.ID) {
			out = append(out, s)
		}
	}
	return out
}

// DateMap is keyed by YYYY-MM-DD.
type DateMap map[string]Entry

// Dates returns the keys in calendar order.
func (m DateMap) Dates() []string {
	return slices.Sorted(maps.Keys(m))
}

type Loader struct {
	source Source
	loc    *time.Location
	limit  int
	clock  Clock
}

func NewLoader(source Source, cfg *Config) *Loader {
	if cfg == nil {
		cfg = &Config{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	limit := cfg.DetailConcurrency
	if limit <= 0 {
		limit = defaultDetailConcurrency
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Loader{source: source, loc: loc, limit: limit, clock: clock}
}

func (l *Loader) Location() *time.Location {
	return l.loc
}

func (l *Loader) Now() time.Time {
	return l.clock.Now()
}

type detailOutcome struct {
	schedules []reservation.DetailSchedule
	err       error
}

// LoadDashboard returns the promoted date map for one activity month. Only a
// failure of the month summary is returned; per-day detail failures fall back
// to the summary value.
func (l *Loader) LoadDashboard(ctx context.Context, activityID string, year int, month time.Month) (DateMap, error) {
	key := Key{ActivityID: activityID, Year: year, Month: month}
	if err := key.Validate(); err != nil {
		return DateMap{}, err
	}
	logger := log.Ctx(ctx).With().Str("activity_id", activityID).Str("month", key.MonthString()).Logger()

	items, err := l.source.MonthSummary(ctx, activityID, year, month)
	if err != nil {
		return DateMap{}, &TotalLoadError{Key: key, Err: err}
	}

	summary := reservation.Aggregate(reservation.SummarySource(items), l.loc)
	dates := slices.Sorted(maps.Keys(summary))

	// Settle all: tasks never return an error so one failing day cannot cancel the rest.
	outcomes := make([]detailOutcome, len(dates))
	var g errgroup.Group
	g.SetLimit(l.limit)
	for i, date := range dates {
		g.Go(func() error {
			schedules, err := l.source.ReservedSchedules(ctx, activityID, date)
			outcomes[i] = detailOutcome{schedules: schedules, err: err}
			return nil
		})
	}
	_ = g.Wait()

	now := l.clock.Now()
	out := make(DateMap, len(dates))
	for i, date := range dates {
		day := summary[date]
		if outcome := outcomes[i]; outcome.err != nil {
			terr := &TransientFetchError{Date: date, Err: outcome.err}
			logger.Warn().Err(terr).Str("date", date).Msg("Day detail unavailable; using month summary")
		} else {
			day = resolveDay(day, outcome.schedules, l.loc)
		}

		entry := Entry{
			Date:      date,
			Source:    day.Kind,
			Count:     day.Count,
			Schedules: day.Schedules,
			day:       day.Date,
		}
		entry.Promoted = entry.PromotedAt(now)
		out[date] = entry
	}

	logger.Debug().Int("dates", len(out)).Msg("Dashboard loaded")
	return out, nil
}

// resolveDay prefers the day-level count when the detail reports any. Detail
// schedules without counts still replace the pseudo-schedule so promotion can
// use their real end times.
func resolveDay(summary reservation.DayCount, schedules []reservation.DetailSchedule, loc *time.Location) reservation.DayCount {
	if len(schedules) == 0 {
		return summary
	}
	detail, ok := reservation.Aggregate(reservation.DetailSource(reservation.DateKey(summary.Date), schedules), loc)[reservation.DateKey(summary.Date)]
	if !ok || len(detail.Schedules) == 0 {
		return summary
	}
	if detail.ReportsCounts() {
		return detail
	}
	summary.Schedules = detail.Schedules
	return summary
}

// Key identifies one dashboard selection.
type Key struct {
	ActivityID string
	Year       int
	Month      time.Month
}

func (k Key) Validate() error {
	if k.ActivityID == "" {
		return fmt.Errorf("%w: activity id is required", ErrInvalidKey)
	}
	if k.Year < 1970 || k.Year > 9999 {
		return fmt.Errorf("%w: year must be between 1970 and 9999", ErrInvalidKey)
	}
	if k.Month < time.January || k.Month > time.December {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidKey)
	}
	return nil
}

func (k Key) MonthString() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

func (k Key) String() string {
	return k.ActivityID + "@" + k.MonthString()
}
