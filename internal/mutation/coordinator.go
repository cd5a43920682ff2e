// Package mutation runs the approve/decline workflow and keeps the detail
// panel and the dashboard consistent after each decision.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/reservation"
)

var ErrInvalidStatus = errors.New("status must be confirmed or declined")

// MutationError wraps a failed status update. Nothing was changed locally.
type MutationError struct {
	ActivityID    string
	ReservationID string
	Status        reservation.Status
	Err           error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("set reservation %s of activity %s to %s: %v", e.ReservationID, e.ActivityID, e.Status, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

type Updater interface {
	UpdateReservationStatus(ctx context.Context, activityID string, reservationID string, status reservation.Status) error
}

// Invalidator is told which activity's dashboard no longer matches upstream.
type Invalidator interface {
	Invalidate(activityID string) bool
}

type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d reservation.Decision) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	Panel       *detail.Panel
	Invalidator Invalidator
	// Recorder is optional.
	Recorder DecisionRecorder
	// Clock for testing (nil uses real time)
	Clock Clock
}

type Coordinator struct {
	updater     Updater
	panel       *detail.Panel
	invalidator Invalidator
	recorder    DecisionRecorder
	clock       Clock
}

func NewCoordinator(updater Updater, cfg Config) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Coordinator{
		updater:     updater,
		panel:       cfg.Panel,
		invalidator: cfg.Invalidator,
		recorder:    cfg.Recorder,
		clock:       clock,
	}
}

// SetReservationStatus approves or declines one reservation. On success the
// panel is reloaded if it still shows scheduleID and the activity's dashboard
// is invalidated. On failure the panel and dashboard are left untouched.
func (c *Coordinator) SetReservationStatus(ctx context.Context, activityID, reservationID, scheduleID string, status reservation.Status) error {
	if !status.IsDecision() {
		return fmt.Errorf("%w: got %q", ErrInvalidStatus, status)
	}
	logger := log.Ctx(ctx).With().
		Str("activity_id", activityID).
		Str("reservation_id", reservationID).
		Str("schedule_id", scheduleID).
		Str("status", string(status)).
		Logger()

	if err := c.updater.UpdateReservationStatus(ctx, activityID, reservationID, status); err != nil {
		logger.Error().Err(err).Msg("Failed to update reservation status")
		return &MutationError{ActivityID: activityID, ReservationID: reservationID, Status: status, Err: err}
	}

	if c.panel != nil {
		if _, _, err := c.panel.Refresh(ctx, activityID, scheduleID); err != nil && !errors.Is(err, detail.ErrStaleSelection) {
			logger.Warn().Err(err).Msg("Failed to refresh reservation list")
		}
	}
	if c.invalidator != nil {
		c.invalidator.Invalidate(activityID)
	}

	if c.recorder != nil {
		decision := reservation.Decision{
			ActivityID:    activityID,
			ReservationID: reservationID,
			ScheduleID:    scheduleID,
			Status:        status,
			DecidedAt:     c.clock.Now(),
		}
		if err := c.recorder.RecordDecision(ctx, decision); err != nil {
			logger.Warn().Err(err).Msg("Failed to record reservation decision")
		}
	}

	logger.Info().Msg("Reservation status updated")
	return nil
}
