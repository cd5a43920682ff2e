package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/hostdash/internal/reservation"
	"github.com/codr1/hostdash/internal/testutil"
)

func TestDecisionLog_RecordAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 11, 9, 0, 0, 0, time.UTC)

	decisions := []reservation.Decision{
		{ActivityID: "42", ReservationID: "1", ScheduleID: "7", Status: reservation.StatusConfirmed, DecidedAt: base},
		{ActivityID: "42", ReservationID: "2", ScheduleID: "7", Status: reservation.StatusDeclined, DecidedAt: base.Add(time.Minute)},
		{ActivityID: "43", ReservationID: "3", ScheduleID: "9", Status: reservation.StatusConfirmed, DecidedAt: base},
	}
	for _, d := range decisions {
		if err := database.Decisions.RecordDecision(ctx, d); err != nil {
			t.Fatalf("record decision: %v", err)
		}
	}

	got, err := database.Decisions.ListDecisions(ctx, "42", 0)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions want 2", len(got))
	}
	if got[0].ReservationID != "2" || got[1].ReservationID != "1" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if !got[1].DecidedAt.Equal(base) {
		t.Fatalf("decided_at: got %v want %v", got[1].DecidedAt, base)
	}

	limited, err := database.Decisions.ListDecisions(ctx, "42", 1)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit: got %d want 1", len(limited))
	}
}

func TestDecisionLog_RejectsNonDecisionStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	err := database.Decisions.RecordDecision(context.Background(), reservation.Decision{
		ActivityID:    "42",
		ReservationID: "1",
		Status:        reservation.StatusPending,
		DecidedAt:     time.Now(),
	})
	if err == nil {
		t.Fatalf("expected error for pending status")
	}
}
