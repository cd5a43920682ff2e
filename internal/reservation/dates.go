package reservation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar key format used by the dashboard.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD key as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD format: %q", raw)
	}
	return d, nil
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// TimeOfDay is a local wall-clock time. The zero value means "not reported".
type TimeOfDay struct {
	hour, minute, second int
	valid                bool
}

// EndOfDay is the end time assumed for a schedule that reports none.
var EndOfDay = NewTimeOfDay(23, 59, 0)

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{hour: hour, minute: minute, second: second, valid: true}
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS. Empty input yields the zero value.
// 24:00 is accepted as the midnight that closes the day.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TimeOfDay{}, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("time must be HH:MM or HH:MM:SS: %q", raw)
	}
	limits := []int{24, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return TimeOfDay{}, fmt.Errorf("time must be HH:MM or HH:MM:SS: %q", raw)
		}
		values[i] = v
	}
	if values[0] == 24 && (values[1] != 0 || values[2] != 0) {
		return TimeOfDay{}, fmt.Errorf("time must be HH:MM or HH:MM:SS: %q", raw)
	}
	return NewTimeOfDay(values[0], values[1], values[2]), nil
}

func (t TimeOfDay) IsZero() bool {
	return !t.valid
}

// On combines the time of day with the calendar date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.hour, t.minute, t.second, 0, d.Location())
}

func (t TimeOfDay) String() string {
	if !t.valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.hour, t.minute)
}

// EndOn returns the schedule end on date, defaulting to EndOfDay when the
// schedule reports no end time.
func (s Schedule) EndOn(date time.Time) time.Time {
	if s.EndTime.IsZero() {
		return EndOfDay.On(date)
	}
	return s.EndTime.On(date)
}
