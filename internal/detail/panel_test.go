package detail

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/hostdash/internal/reservation"
)

// blockingSource holds the first call of one schedule until release is closed.
type blockingSource struct {
	inner    *fakeSource
	schedule string
	started  chan struct{}
	release  chan struct{}
}

func (b *blockingSource) Reservations(ctx context.Context, activityID string, scheduleID string, status reservation.Status) ([]reservation.Reservation, error) {
	if scheduleID == b.schedule {
		select {
		case b.started <- struct{}{}:
		default:
		}
		<-b.release
	}
	return b.inner.Reservations(ctx, activityID, scheduleID, status)
}

func TestPanel_LoadAndFilteredCopy(t *testing.T) {
	panel := NewPanel(NewLoader(&fakeSource{lists: sampleLists()}))

	if _, err := panel.Load(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("got %v want ErrNoSelection", err)
	}

	sel := Selection{ActivityID: "42", Date: "2025-07-11", ScheduleID: "7"}
	if _, err := panel.SelectAndLoad(context.Background(), sel); err != nil {
		t.Fatalf("load: %v", err)
	}

	list := panel.FilteredReservations()
	if len(list) != 4 {
		t.Fatalf("got %d reservations want 4", len(list))
	}
	list[0].Nickname = "changed"
	if panel.FilteredReservations()[0].Nickname == "changed" {
		t.Fatalf("FilteredReservations must return a copy")
	}
}

func TestPanel_DiscardsStaleSchedule(t *testing.T) {
	src := &blockingSource{
		inner:    &fakeSource{lists: sampleLists()},
		schedule: "7",
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	panel := NewPanel(NewLoader(src))

	errCh := make(chan error, 1)
	go func() {
		_, err := panel.SelectAndLoad(context.Background(), Selection{ActivityID: "42", Date: "2025-07-11", ScheduleID: "7"})
		errCh <- err
	}()
	<-src.started

	if _, err := panel.SelectAndLoad(context.Background(), Selection{ActivityID: "42", Date: "2025-07-11", ScheduleID: "8"}); err != nil {
		t.Fatalf("load schedule 8: %v", err)
	}
	close(src.release)

	if err := <-errCh; !errors.Is(err, ErrStaleSelection) {
		t.Fatalf("got %v want ErrStaleSelection", err)
	}
	sel, _ := panel.Selection()
	if sel.ScheduleID != "8" {
		t.Fatalf("selection: got %q want 8", sel.ScheduleID)
	}
}

func TestPanel_RefreshOnlyForCurrentSchedule(t *testing.T) {
	src := &fakeSource{lists: sampleLists()}
	panel := NewPanel(NewLoader(src))
	panel.Select(Selection{ActivityID: "42", Date: "2025-07-11", ScheduleID: "7"})

	if _, refreshed, _ := panel.Refresh(context.Background(), "42", "9"); refreshed {
		t.Fatalf("refresh for another schedule should be skipped")
	}
	if src.callCount() != 0 {
		t.Fatalf("skipped refresh must not fetch")
	}
	if _, refreshed, err := panel.Refresh(context.Background(), "42", "7"); !refreshed || err != nil {
		t.Fatalf("refresh: refreshed=%v err=%v", refreshed, err)
	}
}
