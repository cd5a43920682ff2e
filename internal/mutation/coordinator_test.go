package mutation

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/reservation"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time {
	return m.now
}

// fakeAPI serves reservation lists and applies status updates to them.
type fakeAPI struct {
	mu        sync.Mutex
	byID      map[string]reservation.Reservation
	order     []string
	updateErr error
	updates   int
}

func newFakeAPI(list ...reservation.Reservation) *fakeAPI {
	api := &fakeAPI{byID: make(map[string]reservation.Reservation)}
	for _, r := range list {
		api.byID[r.ID] = r
		api.order = append(api.order, r.ID)
	}
	return api
}

func (f *fakeAPI) Reservations(ctx context.Context, activityID string, scheduleID string, status reservation.Status) ([]reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reservation.Reservation
	for _, id := range f.order {
		if r := f.byID[id]; r.Status == status && r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateReservationStatus(ctx context.Context, activityID string, reservationID string, status reservation.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	r := f.byID[reservationID]
	r.Status = status
	f.byID[reservationID] = r
	return nil
}

type fakeInvalidator struct {
	activities []string
}

func (f *fakeInvalidator) Invalidate(activityID string) bool {
	f.activities = append(f.activities, activityID)
	return true
}

type fakeRecorder struct {
	decisions []reservation.Decision
	err       error
}

func (f *fakeRecorder) RecordDecision(ctx context.Context, d reservation.Decision) error {
	f.decisions = append(f.decisions, d)
	return f.err
}

type fixture struct {
	api         *fakeAPI
	panel       *detail.Panel
	invalidator *fakeInvalidator
	recorder    *fakeRecorder
	coordinator *Coordinator
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := newFakeAPI(
		reservation.Reservation{ID: "1", Status: reservation.StatusPending, HeadCount: 2, ScheduleID: "7", Nickname: "ana"},
		reservation.Reservation{ID: "2", Status: reservation.StatusConfirmed, HeadCount: 1, ScheduleID: "7", Nickname: "bo"},
	)
	panel := detail.NewPanel(detail.NewLoader(api))
	if _, err := panel.SelectAndLoad(context.Background(), detail.Selection{ActivityID: "42", Date: "2025-07-11", ScheduleID: "7"}); err != nil {
		t.Fatalf("load panel: %v", err)
	}

	f := &fixture{
		api:         api,
		panel:       panel,
		invalidator: &fakeInvalidator{},
		recorder:    &fakeRecorder{},
		now:         time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC),
	}
	f.coordinator = NewCoordinator(api, Config{
		Panel:       panel,
		Invalidator: f.invalidator,
		Recorder:    f.recorder,
		Clock:       &mockClock{now: f.now},
	})
	return f
}

func TestSetReservationStatus_Success(t *testing.T) {
	f := newFixture(t)

	if err := f.coordinator.SetReservationStatus(context.Background(), "42", "1", "7", reservation.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}

	list := f.panel.FilteredReservations()
	if len(list) != 2 || list[0].ID != "1" || list[0].Status != reservation.StatusConfirmed {
		t.Fatalf("panel not refreshed: %+v", list)
	}
	if !reflect.DeepEqual(f.invalidator.activities, []string{"42"}) {
		t.Fatalf("invalidated: got %v want [42]", f.invalidator.activities)
	}
	want := reservation.Decision{ActivityID: "42", ReservationID: "1", ScheduleID: "7", Status: reservation.StatusConfirmed, DecidedAt: f.now}
	if len(f.recorder.decisions) != 1 || f.recorder.decisions[0] != want {
		t.Fatalf("decisions: got %+v want %+v", f.recorder.decisions, want)
	}
}

func TestSetReservationStatus_FailureLeavesViewUnchanged(t *testing.T) {
	f := newFixture(t)
	before := f.panel.FilteredReservations()

	cause := errors.New("upstream 500")
	f.api.updateErr = cause
	err := f.coordinator.SetReservationStatus(context.Background(), "42", "1", "7", reservation.StatusDeclined)

	var merr *MutationError
	if !errors.As(err, &merr) {
		t.Fatalf("got %v want MutationError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if got := f.panel.FilteredReservations(); !reflect.DeepEqual(got, before) {
		t.Fatalf("panel changed after failed mutation: got %+v want %+v", got, before)
	}
	if len(f.invalidator.activities) != 0 || len(f.recorder.decisions) != 0 {
		t.Fatalf("failed mutation must not invalidate or record")
	}
}

func TestSetReservationStatus_RejectsNonDecisionStatus(t *testing.T) {
	f := newFixture(t)

	for _, status := range []reservation.Status{reservation.StatusPending, reservation.StatusCompleted, reservation.StatusCanceled} {
		if err := f.coordinator.SetReservationStatus(context.Background(), "42", "1", "7", status); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("%s: got %v want ErrInvalidStatus", status, err)
		}
	}
	if f.api.updates != 0 {
		t.Fatalf("got %d upstream calls want 0", f.api.updates)
	}
}

func TestSetReservationStatus_RecorderFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("disk full")

	if err := f.coordinator.SetReservationStatus(context.Background(), "42", "2", "7", reservation.StatusDeclined); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(f.invalidator.activities) != 1 {
		t.Fatalf("dashboard should still be invalidated")
	}
}

func TestSetReservationStatus_OtherScheduleNotReloaded(t *testing.T) {
	f := newFixture(t)
	before := f.panel.FilteredReservations()

	if err := f.coordinator.SetReservationStatus(context.Background(), "42", "9", "8", reservation.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := f.panel.FilteredReservations(); !reflect.DeepEqual(got, before) {
		t.Fatalf("panel for schedule 7 should not change: got %+v", got)
	}
}
