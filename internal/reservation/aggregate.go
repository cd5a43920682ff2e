package reservation

import (
	"time"
)

// SourceKind tags which upstream view a count came from.
type SourceKind string

const (
	// SourceSummary is the per-month aggregate view. Schedule identity is lost.
	SourceSummary SourceKind = "summary"
	// SourceDetail is the per-day schedule view. It never reports completed.
	SourceDetail SourceKind = "detail"
)

// RawCount mirrors an upstream count payload. Absent fields are nil.
type RawCount struct {
	Pending   *int
	Confirmed *int
	Declined  *int
	Completed *int
}

// Count converts the payload to a fully populated, non-negative Count.
func (r *RawCount) Count() Count {
	if r == nil {
		return Count{}
	}
	return Count{
		Pending:   intOrZero(r.Pending),
		Confirmed: intOrZero(r.Confirmed),
		Declined:  intOrZero(r.Declined),
		Completed: intOrZero(r.Completed),
	}.Normalize()
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// SummaryItem is one date of the month-level view.
type SummaryItem struct {
	Date         string
	Reservations *RawCount
}

// DetailSchedule is one schedule of the day-level view.
type DetailSchedule struct {
	ID        string
	StartTime string
	EndTime   string
	Count     *RawCount
}

// CountSource is the tagged union of the two count shapes. Build it with
// SummarySource or DetailSource.
type CountSource struct {
	Kind SourceKind

	Items []SummaryItem

	Date      string
	Schedules []DetailSchedule
}

func SummarySource(items []SummaryItem) CountSource {
	return CountSource{Kind: SourceSummary, Items: items}
}

func DetailSource(date string, schedules []DetailSchedule) CountSource {
	return CountSource{Kind: SourceDetail, Date: date, Schedules: schedules}
}

// DayCount is the normalized count of one date together with the schedules
// that contributed to it.
type DayCount struct {
	Date      time.Time
	Kind      SourceKind
	Count     Count
	Schedules []Schedule
}

// ReportsCounts reports whether any contributing schedule carried its own count.
func (d DayCount) ReportsCounts() bool {
	for _, s := range d.Schedules {
		if s.Count != nil {
			return true
		}
	}
	return false
}

// Aggregate sums every contributing entry of src per date. Malformed entries
// are skipped; the result never holds negative or missing fields.
func Aggregate(src CountSource, loc *time.Location) map[string]DayCount {
	switch src.Kind {
	case SourceSummary:
		return aggregateSummary(src.Items, loc)
	case SourceDetail:
		return aggregateDetail(src.Date, src.Schedules, loc)
	default:
		return map[string]DayCount{}
	}
}

func aggregateSummary(items []SummaryItem, loc *time.Location) map[string]DayCount {
	out := make(map[string]DayCount, len(items))
	for _, item := range items {
		date, err := ParseDate(item.Date, loc)
		if err != nil {
			continue
		}
		key := DateKey(date)
		day, ok := out[key]
		if !ok {
			day = DayCount{Date: date, Kind: SourceSummary}
		}
		day.Count = day.Count.Add(item.Reservations.Count())
		out[key] = day
	}

	// One pseudo-schedule per date stands in for the schedules the month view hides.
	for key, day := range out {
		count := day.Count
		day.Schedules = []Schedule{{
			ID:    DateOnlyScheduleID,
			Date:  day.Date,
			Count: &count,
		}}
		out[key] = day
	}
	return out
}

func aggregateDetail(rawDate string, schedules []DetailSchedule, loc *time.Location) map[string]DayCount {
	out := make(map[string]DayCount, 1)
	date, err := ParseDate(rawDate, loc)
	if err != nil {
		return out
	}

	day := DayCount{Date: date, Kind: SourceDetail, Schedules: make([]Schedule, 0, len(schedules))}
	for _, raw := range schedules {
		start, err := ParseTimeOfDay(raw.StartTime)
		if err != nil {
			continue
		}
		// An unreadable end time counts as absent so the schedule keeps its count.
		end, err := ParseTimeOfDay(raw.EndTime)
		if err != nil {
			end = TimeOfDay{}
		}

		schedule := Schedule{
			ID:        raw.ID,
			Date:      date,
			StartTime: start,
			EndTime:   end,
		}
		if raw.Count != nil {
			c := raw.Count.Count()
			c.Completed = 0
			schedule.Count = &c
			day.Count = day.Count.Add(c)
		}
		day.Schedules = append(day.Schedules, schedule)
	}

	out[DateKey(date)] = day
	return out
}
