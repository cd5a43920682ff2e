package detail

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/codr1/hostdash/internal/reservation"
)

var (
	ErrNoSelection    = errors.New("no schedule selected")
	ErrStaleSelection = errors.New("schedule selection changed during load")
)

// Selection identifies what the detail panel shows.
type Selection struct {
	ActivityID string               `json:"activityId"`
	Date       string               `json:"date"`
	ScheduleID string               `json:"scheduleId"`
	Statuses   []reservation.Status `json:"statuses,omitempty"`
}

func (s Selection) same(o Selection) bool {
	return s.ActivityID == o.ActivityID && s.Date == o.Date && s.ScheduleID == o.ScheduleID && slices.Equal(s.Statuses, o.Statuses)
}

// Panel owns the filtered reservation list for one selection. Loads that
// complete after the selection changed are discarded.
type Panel struct {
	loader *Loader

	mu        sync.Mutex
	sel       Selection
	selected  bool
	issued    uint64
	committed uint64
	list      []reservation.Reservation
}

func NewPanel(loader *Loader) *Panel {
	return &Panel{loader: loader, list: []reservation.Reservation{}}
}

// Select switches the panel. A different selection clears the list.
func (p *Panel) Select(sel Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.selected && p.sel.same(sel) {
		return
	}
	p.sel = sel
	p.sel.Statuses = slices.Clone(sel.Statuses)
	p.selected = true
	p.list = []reservation.Reservation{}
}

func (p *Panel) Selection() (Selection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.sel
	sel.Statuses = slices.Clone(p.sel.Statuses)
	return sel, p.selected
}

// Load reloads the current selection and returns the committed list.
func (p *Panel) Load(ctx context.Context) ([]reservation.Reservation, error) {
	p.mu.Lock()
	if !p.selected {
		p.mu.Unlock()
		return []reservation.Reservation{}, ErrNoSelection
	}
	sel := p.sel
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	list := p.loader.LoadReservations(ctx, sel.ActivityID, sel.ScheduleID, sel.Statuses)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sel.same(sel) || gen < p.committed {
		return []reservation.Reservation{}, ErrStaleSelection
	}
	p.committed = gen
	p.list = list
	return slices.Clone(p.list), nil
}

func (p *Panel) SelectAndLoad(ctx context.Context, sel Selection) ([]reservation.Reservation, error) {
	p.Select(sel)
	return p.Load(ctx)
}

// Refresh reloads only if the panel still shows scheduleID of activityID.
func (p *Panel) Refresh(ctx context.Context, activityID, scheduleID string) ([]reservation.Reservation, bool, error) {
	sel, ok := p.Selection()
	if !ok || sel.ActivityID != activityID || sel.ScheduleID != scheduleID {
		return nil, false, nil
	}
	list, err := p.Load(ctx)
	return list, true, err
}

// FilteredReservations returns a copy of the committed list.
func (p *Panel) FilteredReservations() []reservation.Reservation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.list)
}
