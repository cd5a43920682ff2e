// internal/api/hostdash/handlers.go
package hostdash

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/activityapi"
	"github.com/codr1/hostdash/internal/api/apiutil"
	"github.com/codr1/hostdash/internal/api/htmx"
	"github.com/codr1/hostdash/internal/dashboard"
	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/mutation"
	"github.com/codr1/hostdash/internal/reservation"
	calendartempl "github.com/codr1/hostdash/internal/templates/components/calendar"
)

const (
	hostdashRequestTimeout = 20 * time.Second
	defaultDecisionLimit   = 50
	maxDecisionLimit       = 500
)

// DecisionLister reads the decision audit log.
type DecisionLister interface {
	ListDecisions(ctx context.Context, activityID string, limit int) ([]reservation.Decision, error)
}

var (
	decisionLog DecisionLister
	location    = time.Local
	nowFunc     = time.Now
	initOnce    sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(decisions DecisionLister, loc *time.Location) {
	initOnce.Do(func() {
		decisionLog = decisions
		if loc != nil {
			location = loc
		}
	})
	if decisions == nil {
		log.Warn().Msg("InitHandlers called without decision log; decision history will be unavailable")
	}
}

type scheduleResponse struct {
	ID        string             `json:"id"`
	StartTime string             `json:"startTime,omitempty"`
	EndTime   string             `json:"endTime,omitempty"`
	Count     *reservation.Count `json:"count,omitempty"`
}

type dayResponse struct {
	Count     reservation.Count      `json:"count"`
	Promoted  reservation.Count      `json:"promoted"`
	Badges    []reservation.Badge    `json:"badges"`
	Source    reservation.SourceKind `json:"source"`
	Schedules []scheduleResponse     `json:"schedules"`
}

type dashboardResponse struct {
	ActivityID string                 `json:"activityId"`
	Year       int                    `json:"year"`
	Month      int                    `json:"month"`
	Stale      bool                   `json:"stale"`
	LoadedAt   time.Time              `json:"loadedAt"`
	Dates      map[string]dayResponse `json:"dates"`
}

type reservationsResponse struct {
	Selection    detail.Selection          `json:"selection"`
	Reservations []reservation.Reservation `json:"reservations"`
}

type statusRequest struct {
	ScheduleID string `json:"scheduleId"`
	Status     string `json:"status"`
}

type decisionsResponse struct {
	ActivityID string                 `json:"activityId"`
	Decisions  []reservation.Decision `json:"decisions"`
}

// HandleDashboard handles GET /api/v1/activities/{activityID}/dashboard.
func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	key, err := dashboardKeyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hostdashRequestTimeout)
	defer cancel()

	entries, err := ws.Board.SelectAndLoad(ctx, key)
	if err != nil {
		writeDashboardError(w, r, key, err)
		return
	}

	resp := dashboardResponse{
		ActivityID: key.ActivityID,
		Year:       key.Year,
		Month:      int(key.Month),
		Dates:      make(map[string]dayResponse, len(entries)),
	}
	if snap := ws.Board.Snapshot(); snap.Key == key {
		resp.Stale = snap.Stale
		resp.LoadedAt = snap.LoadedAt
	}
	for date, entry := range entries {
		resp.Dates[date] = dayResponse{
			Count:     entry.Count,
			Promoted:  entry.Promoted,
			Badges:    entry.Badges(),
			Source:    entry.Source,
			Schedules: scheduleResponses(entry.Slots()),
		}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("dashboard", key.String()).Msg("Failed to write dashboard response")
	}
}

// HandleCalendar handles GET /api/v1/activities/{activityID}/calendar and
// renders the same data as an HTML badge grid.
func HandleCalendar(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	key, err := dashboardKeyFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hostdashRequestTimeout)
	defer cancel()

	data := calendartempl.CalendarData{
		ActivityID: key.ActivityID,
		Year:       key.Year,
		Month:      key.Month,
	}
	entries, err := ws.Board.SelectAndLoad(ctx, key)
	var total *dashboard.TotalLoadError
	switch {
	case err == nil:
	case errors.As(err, &total):
		log.Ctx(r.Context()).Error().Err(err).Str("dashboard", key.String()).Msg("Failed to load reservation dashboard")
		data.Error = "Reservation counts are unavailable right now."
	default:
		writeDashboardError(w, r, key, err)
		return
	}

	badges := make(map[string][]reservation.Badge, len(entries))
	slots := make(map[string][]calendartempl.Slot, len(entries))
	for date, entry := range entries {
		badges[date] = entry.Badges()
		for _, s := range entry.Slots() {
			slots[date] = append(slots[date], calendartempl.Slot{ScheduleID: s.ID, Label: calendartempl.SlotLabel(s)})
		}
	}
	data.Weeks = calendartempl.BuildWeeks(key.Year, key.Month, badges, slots, nowFunc().In(location))
	if snap := ws.Board.Snapshot(); snap.Key == key {
		data.Stale = snap.Stale
	}

	component := calendartempl.Calendar(data)
	apiutil.RenderHTMLComponent(r.Context(), w, component, htmx.TriggerHeaders(r, "calendar-loaded"), "Failed to render reservation calendar", "Failed to render calendar")
}

// HandleReservations handles
// GET /api/v1/activities/{activityID}/schedules/{scheduleID}/reservations.
func HandleReservations(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	activityID := strings.TrimSpace(r.PathValue("activityID"))
	if activityID == "" {
		http.Error(w, "activity ID is required", http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateQuery(r, "date", location)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	statuses, err := apiutil.ParseStatusesQuery(r, "status")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sel := detail.Selection{
		ActivityID: activityID,
		Date:       reservation.DateKey(date),
		ScheduleID: strings.TrimSpace(r.PathValue("scheduleID")),
		Statuses:   statuses,
	}

	ctx, cancel := context.WithTimeout(r.Context(), hostdashRequestTimeout)
	defer cancel()

	list, err := ws.Panel.SelectAndLoad(ctx, sel)
	if err != nil {
		if errors.Is(err, detail.ErrStaleSelection) {
			http.Error(w, "Schedule selection changed", http.StatusConflict)
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("activity_id", activityID).Msg("Failed to load reservations")
		http.Error(w, "Failed to load reservations", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, reservationsResponse{Selection: sel, Reservations: list}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("activity_id", activityID).Msg("Failed to write reservations response")
	}
}

// HandleReservationStatus handles
// PATCH /api/v1/activities/{activityID}/reservations/{reservationID}.
func HandleReservationStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	activityID := strings.TrimSpace(r.PathValue("activityID"))
	reservationID := strings.TrimSpace(r.PathValue("reservationID"))
	if activityID == "" || reservationID == "" {
		http.Error(w, "activity ID and reservation ID are required", http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status, err := reservation.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), hostdashRequestTimeout)
	defer cancel()

	err = ws.Coordinator.SetReservationStatus(ctx, activityID, reservationID, strings.TrimSpace(req.ScheduleID), status)
	if err != nil {
		herr := statusUpdateError(err)
		if herr.Status >= http.StatusInternalServerError {
			logger.Error().Err(herr.Err).Str("activity_id", activityID).Str("reservation_id", reservationID).Msg(herr.Message)
		}
		http.Error(w, herr.Message, herr.Status)
		return
	}

	sel, _ := ws.Panel.Selection()
	resp := reservationsResponse{Selection: sel, Reservations: ws.Panel.FilteredReservations()}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Str("reservation_id", reservationID).Msg("Failed to write reservation status response")
	}
}

// HandleDecisions handles GET /api/v1/activities/{activityID}/decisions.
func HandleDecisions(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if decisionLog == nil {
		logger.Error().Msg("Decision log not initialized")
		http.Error(w, "Decision history unavailable", http.StatusServiceUnavailable)
		return
	}
	activityID := strings.TrimSpace(r.PathValue("activityID"))
	if activityID == "" {
		http.Error(w, "activity ID is required", http.StatusBadRequest)
		return
	}
	limit, err := apiutil.ParsePositiveIntQuery(r, "limit", defaultDecisionLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(limit, maxDecisionLimit)

	ctx, cancel := context.WithTimeout(r.Context(), hostdashRequestTimeout)
	defer cancel()

	decisions, err := decisionLog.ListDecisions(ctx, activityID, limit)
	if err != nil {
		logger.Error().Err(err).Str("activity_id", activityID).Msg("Failed to list decisions")
		http.Error(w, "Failed to load decision history", http.StatusInternalServerError)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, decisionsResponse{ActivityID: activityID, Decisions: decisions}); err != nil {
		logger.Error().Err(err).Str("activity_id", activityID).Msg("Failed to write decisions response")
	}
}

func scheduleResponses(schedules []reservation.Schedule) []scheduleResponse {
	out := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, scheduleResponse{
			ID:        s.ID,
			StartTime: s.StartTime.String(),
			EndTime:   s.EndTime.String(),
			Count:     s.Count,
		})
	}
	return out
}

func requireWorkspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws := WorkspaceFromContext(r.Context())
	if ws == nil {
		log.Ctx(r.Context()).Error().Msg("Host session missing from request context")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return ws, true
}

// dashboardKeyFromRequest defaults year and month to the current month in the
// dashboard timezone.
func dashboardKeyFromRequest(r *http.Request) (dashboard.Key, error) {
	now := nowFunc().In(location)
	year, err := apiutil.ParseIntQuery(r, "year", now.Year())
	if err != nil {
		return dashboard.Key{}, err
	}
	month, err := apiutil.ParseIntQuery(r, "month", int(now.Month()))
	if err != nil {
		return dashboard.Key{}, err
	}
	key := dashboard.Key{
		ActivityID: strings.TrimSpace(r.PathValue("activityID")),
		Year:       year,
		Month:      time.Month(month),
	}
	if err := key.Validate(); err != nil {
		return dashboard.Key{}, err
	}
	return key, nil
}

func writeDashboardError(w http.ResponseWriter, r *http.Request, key dashboard.Key, err error) {
	logger := log.Ctx(r.Context())
	var total *dashboard.TotalLoadError
	switch {
	case errors.Is(err, dashboard.ErrInvalidKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dashboard.ErrStaleSelection):
		http.Error(w, "Dashboard selection changed", http.StatusConflict)
	case errors.As(err, &total):
		logger.Error().Err(err).Str("dashboard", key.String()).Msg("Failed to load reservation dashboard")
		http.Error(w, "Failed to load reservation dashboard", http.StatusBadGateway)
	default:
		logger.Error().Err(err).Str("dashboard", key.String()).Msg("Dashboard load failed")
		http.Error(w, "Failed to load reservation dashboard", http.StatusInternalServerError)
	}
}

func statusUpdateError(err error) apiutil.HandlerError {
	var merr *mutation.MutationError
	switch {
	case errors.Is(err, mutation.ErrInvalidStatus):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.As(err, &merr):
		// A 4xx upstream rejected this decision; anything else is an upstream outage.
		status := http.StatusBadGateway
		if activityapi.IsClientError(err) {
			status = http.StatusConflict
		}
		var se *activityapi.StatusError
		if errors.As(err, &se) && se.Message != "" {
			return apiutil.HandlerError{Status: status, Message: "Failed to update reservation: " + se.Message, Err: err}
		}
		return apiutil.HandlerError{Status: status, Message: "Failed to update reservation", Err: err}
	default:
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to update reservation", Err: err}
	}
}
