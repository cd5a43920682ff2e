package reservation

// Badge is one status label shown on a calendar day.
type Badge struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

var badgeLabels = map[Status]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusDeclined:  "Declined",
	StatusCompleted: "Completed",
}

// Badges emits one badge per non-zero field in the order pending, confirmed,
// declined, completed.
func Badges(c Count) []Badge {
	fields := []struct {
		status Status
		count  int
	}{
		{StatusPending, c.Pending},
		{StatusConfirmed, c.Confirmed},
		{StatusDeclined, c.Declined},
		{StatusCompleted, c.Completed},
	}

	badges := make([]Badge, 0, len(fields))
	for _, f := range fields {
		if f.count <= 0 {
			continue
		}
		badges = append(badges, Badge{
			Status: f.status,
			Label:  badgeLabels[f.status],
			Count:  f.count,
		})
	}
	return badges
}
