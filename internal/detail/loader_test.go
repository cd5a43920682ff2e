package detail

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/codr1/hostdash/internal/reservation"
)

type fakeSource struct {
	mu    sync.Mutex
	lists map[reservation.Status][]reservation.Reservation
	fail  map[reservation.Status]error
	calls []reservation.Status
}

func (f *fakeSource) Reservations(ctx context.Context, activityID string, scheduleID string, status reservation.Status) ([]reservation.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
	if err := f.fail[status]; err != nil {
		return nil, err
	}
	return f.lists[status], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleLists() map[reservation.Status][]reservation.Reservation {
	return map[reservation.Status][]reservation.Reservation{
		reservation.StatusPending: {
			{ID: "1", Status: reservation.StatusPending, HeadCount: 2, ScheduleID: "7", Nickname: "ana"},
			{ID: "2", Status: reservation.StatusPending, HeadCount: 1, ScheduleID: "7", Nickname: "bo"},
		},
		reservation.StatusConfirmed: {
			{ID: "3", Status: reservation.StatusConfirmed, HeadCount: 4, ScheduleID: "7", Nickname: "cy"},
		},
		reservation.StatusDeclined: {
			{ID: "4", Status: reservation.StatusDeclined, HeadCount: 1, ScheduleID: "7", Nickname: "di"},
		},
	}
}

func ids(list []reservation.Reservation) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestLoadReservations_SentinelScheduleMakesNoCalls(t *testing.T) {
	src := &fakeSource{lists: sampleLists()}
	loader := NewLoader(src)

	for _, id := range []string{reservation.DateOnlyScheduleID, ""} {
		got := loader.LoadReservations(context.Background(), "42", id, nil)
		if got == nil || len(got) != 0 {
			t.Fatalf("schedule %q: expected empty list, got %#v", id, got)
		}
	}
	if n := src.callCount(); n != 0 {
		t.Fatalf("got %d calls want 0", n)
	}
}

func TestLoadReservations_ConcatenatesInStatusOrder(t *testing.T) {
	src := &fakeSource{lists: sampleLists()}
	got := NewLoader(src).LoadReservations(context.Background(), "42", "7", nil)

	if want := []string{"1", "2", "3", "4"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v want %v", ids(got), want)
	}
}

func TestLoadReservations_FailedStatusKeepsOthers(t *testing.T) {
	src := &fakeSource{
		lists: sampleLists(),
		fail:  map[reservation.Status]error{reservation.StatusConfirmed: errors.New("upstream 500")},
	}
	got := NewLoader(src).LoadReservations(context.Background(), "42", "7", nil)

	if want := []string{"1", "2", "4"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v want %v", ids(got), want)
	}
}

func TestLoadReservations_FiltersUnlistableStatuses(t *testing.T) {
	src := &fakeSource{lists: sampleLists()}
	statuses := []reservation.Status{reservation.StatusDeclined, reservation.StatusCompleted, reservation.StatusCanceled, reservation.StatusDeclined}
	got := NewLoader(src).LoadReservations(context.Background(), "42", "7", statuses)

	if want := []string{"4"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("got %v want %v", ids(got), want)
	}
	if n := src.callCount(); n != 1 {
		t.Fatalf("got %d calls want 1", n)
	}
}
