// Package detail loads the reservation list behind one schedule of the
// dashboard and owns the filtered list the detail panel shows.
package detail

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/hostdash/internal/reservation"
)

type Source interface {
	Reservations(ctx context.Context, activityID string, scheduleID string, status reservation.Status) ([]reservation.Reservation, error)
}

type Loader struct {
	source Source
}

func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// LoadReservations issues one list fetch per status and concatenates the
// results in status order. A status whose fetch fails is logged and
// contributes nothing, so it looks the same as an empty status.
func (l *Loader) LoadReservations(ctx context.Context, activityID, scheduleID string, statuses []reservation.Status) []reservation.Reservation {
	if reservation.IsDateOnlyScheduleID(scheduleID) {
		return []reservation.Reservation{}
	}
	statuses = listable(statuses)
	logger := log.Ctx(ctx).With().Str("activity_id", activityID).Str("schedule_id", scheduleID).Logger()

	results := make([][]reservation.Reservation, len(statuses))
	var g errgroup.Group
	for i, status := range statuses {
		g.Go(func() error {
			list, err := l.source.Reservations(ctx, activityID, scheduleID, status)
			if err != nil {
				logger.Warn().Err(err).Str("status", string(status)).Msg("Reservation list unavailable")
				return nil
			}
			results[i] = list
			return nil
		})
	}
	_ = g.Wait()

	out := []reservation.Reservation{}
	for _, list := range results {
		out = append(out, list...)
	}
	return out
}

// listable keeps the statuses the list endpoint serves, deduplicated, in the
// caller's order. An empty selection means every listable status.
func listable(statuses []reservation.Status) []reservation.Status {
	if len(statuses) == 0 {
		return slices.Clone(reservation.ListableStatuses)
	}
	out := make([]reservation.Status, 0, len(statuses))
	for _, s := range statuses {
		if s.Listable() && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
