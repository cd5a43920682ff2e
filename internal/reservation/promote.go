package reservation

import "time"

// Promote moves confirmed reservations to completed for every contributing
// schedule whose end on date is before now. The input is never modified.
//
// When the schedules carry their own confirmed shares and those shares add up
// to c.Confirmed, each schedule is promoted independently. Otherwise schedule
// identity is lost (month-level source) and the whole confirmed count is
// promoted once the latest contributing end time has passed. That is an
// approximation: on a multi-slot day an early slot stays confirmed until the
// last slot ends.
func Promote(c Count, schedules []Schedule, date time.Time, now time.Time) Count {
	out := c.Normalize()
	if out.Confirmed == 0 {
		return out
	}

	if sharesCover(out, schedules) {
		for _, s := range schedules {
			if !now.After(s.EndOn(date)) {
				continue
			}
			share := min(s.Count.Normalize().Confirmed, out.Confirmed)
			out.Confirmed -= share
			out.Completed += share
		}
		return out
	}

	if now.After(latestEnd(schedules, date)) {
		out.Completed += out.Confirmed
		out.Confirmed = 0
	}
	return out
}

func sharesCover(c Count, schedules []Schedule) bool {
	if len(schedules) == 0 {
		return false
	}
	total := 0
	for _, s := range schedules {
		if s.Count == nil {
			return false
		}
		total += s.Count.Normalize().Confirmed
	}
	return total == c.Confirmed
}

// latestEnd falls back to the end of date when no schedule is known.
func latestEnd(schedules []Schedule, date time.Time) time.Time {
	if len(schedules) == 0 {
		return EndOfDay.On(date)
	}
	latest := schedules[0].EndOn(date)
	for _, s := range schedules[1:] {
		if end := s.EndOn(date); end.After(latest) {
			latest = end
		}
	}
	return latest
}
