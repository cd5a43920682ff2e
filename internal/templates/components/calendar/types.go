package calendar

import (
	"fmt"
	"net/url"
	"time"

	"github.com/codr1/hostdash/internal/reservation"
)

var weekdayHeaders = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Slot is one reserved time slot of a day, linking to its reservation list.
type Slot struct {
	ScheduleID string
	Label      string
}

type Day struct {
	Date       string
	DayOfMonth int
	InMonth    bool
	Today      bool
	Badges     []reservation.Badge
	Slots      []Slot
}

func (d Day) Class() string {
	class := "calendar-day"
	if !d.InMonth {
		class += " calendar-day-outside"
	}
	if d.Today {
		class += " calendar-day-today"
	}
	return class
}

type CalendarData struct {
	ActivityID string
	Year       int
	Month      time.Month
	Weeks      [][]Day
	Stale      bool
	Error      string
}

func (d CalendarData) Title() string {
	return time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

func (d CalendarData) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// SlotLabel formats a schedule as "09:00-10:00", falling back to whatever
// part is known and finally to the schedule id.
func SlotLabel(s reservation.Schedule) string {
	start, end := s.StartTime.String(), s.EndTime.String()
	switch {
	case start != "" && end != "":
		return start + "-" + end
	case start != "":
		return start
	case end != "":
		return "until " + end
	default:
		return s.ID
	}
}

// SlotURL points at the reservation list of one schedule on date.
func SlotURL(activityID, date, scheduleID string) string {
	return "/api/v1/activities/" + url.PathEscape(activityID) +
		"/schedules/" + url.PathEscape(scheduleID) +
		"/reservations?date=" + url.QueryEscape(date)
}

// BuildWeeks lays a month out as Sunday-first weeks. Padding days from the
// neighbouring months carry no badges or slots.
func BuildWeeks(year int, month time.Month, badges map[string][]reservation.Badge, slots map[string][]Slot, today time.Time) [][]Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := today.Format(reservation.DateLayout)

	var weeks [][]Day
	for day := start; ; {
		week := make([]Day, 0, 7)
		for i := 0; i < 7; i++ {
			key := day.Format(reservation.DateLayout)
			d := Day{
				Date:       key,
				DayOfMonth: day.Day(),
				InMonth:    day.Month() == month,
				Today:      key == todayKey,
			}
			if d.InMonth {
				d.Badges = badges[key]
				d.Slots = slots[key]
			}
			week = append(week, d)
			day = day.AddDate(0, 0, 1)
		}
		weeks = append(weeks, week)
		if day.Month() != month {
			break
		}
	}
	return weeks
}
