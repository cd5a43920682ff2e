package activityapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/reservation"
)

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexInt reads a JSON number or a numeric string. Any other value decodes
// as absent instead of failing the surrounding entry.
type flexInt struct {
	n     int
	valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = flexInt{}
	raw := string(bytes.TrimSpace(b))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = flexInt{n: n, valid: true}
	}
	return nil
}

func (f flexInt) ptr() *int {
	if !f.valid {
		return nil
	}
	n := f.n
	return &n
}

type countJSON struct {
	Pending   flexInt `json:"pending"`
	Confirmed flexInt `json:"confirmed"`
	Declined  flexInt `json:"declined"`
	Completed flexInt `json:"completed"`
}

func (c *countJSON) raw() *reservation.RawCount {
	if c == nil {
		return nil
	}
	return &reservation.RawCount{
		Pending:   c.Pending.ptr(),
		Confirmed: c.Confirmed.ptr(),
		Declined:  c.Declined.ptr(),
		Completed: c.Completed.ptr(),
	}
}

type summaryItemJSON struct {
	Date         string     `json:"date"`
	Reservations *countJSON `json:"reservations"`
}

type scheduleJSON struct {
	ID        flexID     `json:"id"`
	StartTime string     `json:"startTime"`
	EndTime   string     `json:"endTime"`
	Count     *countJSON `json:"count"`
}

type reservationListJSON struct {
	Reservations []json.RawMessage `json:"reservations"`
}

type reservationJSON struct {
	ID         flexID  `json:"id"`
	Status     string  `json:"status"`
	HeadCount  flexInt `json:"headCount"`
	ScheduleID flexID  `json:"scheduleId"`
	Nickname   string  `json:"nickname"`
	User       *struct {
		Nickname string `json:"nickname"`
	} `json:"user"`
}

// toReservation falls back to the queried schedule and status when the
// payload omits them.
func (r reservationJSON) toReservation(scheduleID string, status reservation.Status) reservation.Reservation {
	out := reservation.Reservation{
		ID:         string(r.ID),
		Status:     status,
		HeadCount:  max(r.HeadCount.n, 0),
		ScheduleID: string(r.ScheduleID),
		Nickname:   r.Nickname,
	}
	if parsed, err := reservation.ParseStatus(r.Status); err == nil {
		out.Status = parsed
	}
	if out.ScheduleID == "" {
		out.ScheduleID = scheduleID
	}
	if out.Nickname == "" && r.User != nil {
		out.Nickname = r.User.Nickname
	}
	return out
}

// decodeEntries decodes each element on its own. Entries that do not decode
// are logged and skipped so one bad element cannot sink the whole response.
func decodeEntries[T any](ctx context.Context, op string, raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var entry T
		if err := json.Unmarshal(raw, &entry); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("op", op).Int("index", i).Msg("Skipping malformed activity API entry")
			continue
		}
		out = append(out, entry)
	}
	return out
}
