package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codr1/hostdash/internal/reservation"
)

const defaultDecisionLimit = 50

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

// DecisionLog stores host approve/decline decisions.
type DecisionLog struct {
	db DBTX
}

func NewDecisionLog(db DBTX) *DecisionLog {
	return &DecisionLog{db: db}
}

const insertDecision = `
INSERT INTO reservation_decisions (activity_id, reservation_id, schedule_id, status, decided_at)
VALUES (?, ?, ?, ?, ?)
`

func (l *DecisionLog) RecordDecision(ctx context.Context, d reservation.Decision) error {
	if !d.Status.IsDecision() {
		return fmt.Errorf("record decision: unsupported status %q", d.Status)
	}
	_, err := l.db.ExecContext(ctx, insertDecision,
		d.ActivityID,
		d.ReservationID,
		d.ScheduleID,
		string(d.Status),
		d.DecidedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

const listDecisions = `
SELECT activity_id, reservation_id, schedule_id, status, decided_at
FROM reservation_decisions
WHERE activity_id = ?
ORDER BY decided_at DESC, id DESC
LIMIT ?
`

// ListDecisions returns the most recent decisions for an activity, newest first.
func (l *DecisionLog) ListDecisions(ctx context.Context, activityID string, limit int) ([]reservation.Decision, error) {
	if limit <= 0 {
		limit = defaultDecisionLimit
	}
	rows, err := l.db.QueryContext(ctx, listDecisions, activityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	out := []reservation.Decision{}
	for rows.Next() {
		var (
			d         reservation.Decision
			status    string
			decidedAt time.Time
		)
		if err := rows.Scan(&d.ActivityID, &d.ReservationID, &d.ScheduleID, &status, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Status = reservation.Status(status)
		d.DecidedAt = decidedAt
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return out, nil
}
