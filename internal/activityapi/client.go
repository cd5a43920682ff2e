// Package activityapi is the client for the external activity/reservation API
// the host dashboard reads counts and reservation lists from.
package activityapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/reservation"
)

const defaultTimeout = 10 * time.Second

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s (status=%d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s failed (status=%d)", e.Op, e.StatusCode)
}

// IsClientError reports whether err is a 4xx answer from the API.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}

type Options struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the activity API. It is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	accessToken string
	hc          *http.Client
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("activity API base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse activity API base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("activity API base URL must be absolute: %q", raw)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     base,
		accessToken: strings.TrimSpace(opts.AccessToken),
		hc:          hc,
	}, nil
}

// MonthSummary fetches GET /activities/{id}/reservation-dashboard?year&month.
func (c *Client) MonthSummary(ctx context.Context, activityID string, year int, month time.Month) ([]reservation.SummaryItem, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(year))
	query.Set("month", fmt.Sprintf("%02d", int(month)))

	var raws []json.RawMessage
	if err := c.getJSON(ctx, "month summary", activityPath(activityID, "reservation-dashboard"), query, &raws); err != nil {
		return nil, err
	}
	payload := decodeEntries[summaryItemJSON](ctx, "month summary", raws)

	items := make([]reservation.SummaryItem, 0, len(payload))
	for _, p := range payload {
		items = append(items, reservation.SummaryItem{
			Date:         p.Date,
			Reservations: p.Reservations.raw(),
		})
	}
	return items, nil
}

// ReservedSchedules fetches GET /activities/{id}/reserved-schedule?date.
func (c *Client) ReservedSchedules(ctx context.Context, activityID string, date string) ([]reservation.DetailSchedule, error) {
	query := url.Values{}
	query.Set("date", date)

	var raws []json.RawMessage
	if err := c.getJSON(ctx, "reserved schedules", activityPath(activityID, "reserved-schedule"), query, &raws); err != nil {
		return nil, err
	}
	payload := decodeEntries[scheduleJSON](ctx, "reserved schedules", raws)

	schedules := make([]reservation.DetailSchedule, 0, len(payload))
	for _, p := range payload {
		schedules = append(schedules, reservation.DetailSchedule{
			ID:        string(p.ID),
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Count:     p.Count.raw(),
		})
	}
	return schedules, nil
}

// Reservations fetches GET /activities/{id}/reservations?scheduleId&status.
func (c *Client) Reservations(ctx context.Context, activityID string, scheduleID string, status reservation.Status) ([]reservation.Reservation, error) {
	query := url.Values{}
	query.Set("scheduleId", scheduleID)
	query.Set("status", string(status))

	var payload reservationListJSON
	if err := c.getJSON(ctx, "reservation list", activityPath(activityID, "reservations"), query, &payload); err != nil {
		return nil, err
	}

	entries := decodeEntries[reservationJSON](ctx, "reservation list", payload.Reservations)
	out := make([]reservation.Reservation, 0, len(entries))
	for _, p := range entries {
		out = append(out, p.toReservation(scheduleID, status))
	}
	return out, nil
}

// UpdateReservationStatus issues PATCH /activities/{id}/reservations/{reservationId}.
func (c *Client) UpdateReservationStatus(ctx context.Context, activityID string, reservationID string, status reservation.Status) error {
	body, err := json.Marshal(struct {
		Status reservation.Status `json:"status"`
	}{Status: status})
	if err != nil {
		return err
	}

	path := activityPath(activityID, "reservations", reservationID)
	_, _, err = c.do(ctx, "update reservation status", http.MethodPatch, path, nil, body)
	return err
}

func (c *Client) getJSON(ctx context.Context, op string, path string, query url.Values, dst any) error {
	_, body, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) (int, []byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	log.Ctx(ctx).Debug().
		Str("op", op).
		Str("method", method).
		Str("path", u.Path).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Activity API call")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &msg)
		return res.StatusCode, b, &StatusError{Op: op, StatusCode: res.StatusCode, Message: msg.Message}
	}
	return res.StatusCode, b, nil
}

func activityPath(activityID string, segments ...string) string {
	parts := []string{"", "activities", url.PathEscape(activityID)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}
