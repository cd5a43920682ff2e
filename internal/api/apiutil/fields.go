package apiutil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/hostdash/internal/reservation"
)

// ParseIntQuery returns fallback when the parameter is absent.
func ParseIntQuery(r *http.Request, field string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, FieldError{Field: field, Reason: "must be an integer"}
	}
	return value, nil
}

func ParsePositiveIntQuery(r *http.Request, field string, fallback int) (int, error) {
	value, err := ParseIntQuery(r, field, fallback)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

// ParseDateQuery requires a YYYY-MM-DD parameter.
func ParseDateQuery(r *http.Request, field string, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	date, err := reservation.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return date, nil
}

// ParseStatusesQuery accepts repeated or comma-separated status values.
func ParseStatusesQuery(r *http.Request, field string) ([]reservation.Status, error) {
	var statuses []reservation.Status
	for _, value := range r.URL.Query()[field] {
		for _, raw := range strings.Split(value, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			status, err := reservation.ParseStatus(raw)
			if err != nil {
				return nil, FieldError{Field: field, Reason: "has unknown value " + strconv.Quote(strings.TrimSpace(raw))}
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
