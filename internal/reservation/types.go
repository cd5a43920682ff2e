// Package reservation holds the reservation status model shared by the host
// dashboard: counts, schedules, reservations and the pure functions that
// normalize, promote and project them.
package reservation

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

// ListableStatuses are the statuses the reservation list endpoint can be
// queried by. Completed reservations only exist as promoted counts.
var ListableStatuses = []Status{StatusPending, StatusConfirmed, StatusDeclined}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusDeclined, StatusCanceled, StatusCompleted:
		return s, nil
	default:
		return "", fmt.Errorf("unknown reservation status: %q", raw)
	}
}

// Listable reports whether reservations of this status can be fetched per schedule.
func (s Status) Listable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return true
	default:
		return false
	}
}

// IsDecision reports whether a host may set this status on a reservation.
func (s Status) IsDecision() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// DateOnlyScheduleID marks a schedule that only resolves to a calendar date.
const DateOnlyScheduleID = "dashboard"

// IsDateOnlyScheduleID reports whether id cannot be resolved to a time slot.
func IsDateOnlyScheduleID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || id == DateOnlyScheduleID
}

// Count is the normalized per-status reservation count.
type Count struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Declined  int `json:"declined"`
	Completed int `json:"completed"`
}

func (c Count) Total() int {
	return c.Pending + c.Confirmed + c.Declined + c.Completed
}

func (c Count) IsZero() bool {
	return c == Count{}
}

// Add sums two counts field by field.
func (c Count) Add(o Count) Count {
	return Count{
		Pending:   c.Pending + o.Pending,
		Confirmed: c.Confirmed + o.Confirmed,
		Declined:  c.Declined + o.Declined,
		Completed: c.Completed + o.Completed,
	}
}

// Normalize clamps negative fields to zero.
func (c Count) Normalize() Count {
	return Count{
		Pending:   max(c.Pending, 0),
		Confirmed: max(c.Confirmed, 0),
		Declined:  max(c.Declined, 0),
		Completed: max(c.Completed, 0),
	}
}

// Schedule is a bookable time window of an activity on one calendar date.
// Count is nil when the source did not report a per-schedule count.
type Schedule struct {
	ID        string
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Count     *Count
}

type Reservation struct {
	ID         string `json:"id"`
	Status     Status `json:"status"`
	HeadCount  int    `json:"headCount"`
	ScheduleID string `json:"scheduleId"`
	Nickname   string `json:"nickname"`
}

// Decision is a host approve/decline that was accepted upstream.
type Decision struct {
	ActivityID    string    `json:"activityId"`
	ReservationID string    `json:"reservationId"`
	ScheduleID    string    `json:"scheduleId"`
	Status        Status    `json:"status"`
	DecidedAt     time.Time `json:"decidedAt"`
}
