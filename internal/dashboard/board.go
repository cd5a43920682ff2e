package dashboard

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

// Board holds the dashboard state for one host view. Every load is tagged with
// the selection it was issued for and is discarded if the selection changed
// (or a newer load for the same selection committed) before it completed.
type Board struct {
	loader *Loader

	mu        sync.Mutex
	key       Key
	selected  bool
	issued    uint64
	committed uint64
	entries   DateMap
	err       error
	stale     bool
	loadedAt  time.Time
}

// Snapshot is a copy of the board state safe to hand to renderers.
type Snapshot struct {
	Key      Key
	Selected bool
	Entries  DateMap
	Err      error
	Stale    bool
	LoadedAt time.Time
}

func NewBoard(loader *Loader) *Board {
	return &Board{loader: loader, entries: DateMap{}}
}

// Select switches the board to key. Changing the selection drops the current
// map entirely; results are never merged across months or activities.
func (b *Board) Select(key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.selected && b.key == key {
		return nil
	}
	b.key = key
	b.selected = true
	b.entries = DateMap{}
	b.err = nil
	b.stale = true
	b.loadedAt = time.Time{}
	return nil
}

func (b *Board) Current() (Key, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key, b.selected
}

// Load fetches the current selection and commits the result if it is still
// relevant. A TotalLoadError is committed as an empty map and also returned.
// ErrStaleSelection means the result was thrown away.
func (b *Board) Load(ctx context.Context) (DateMap, error) {
	b.mu.Lock()
	if !b.selected {
		b.mu.Unlock()
		return DateMap{}, ErrNoSelection
	}
	key := b.key
	b.issued++
	gen := b.issued
	b.mu.Unlock()

	entries, err := b.loader.LoadDashboard(ctx, key.ActivityID, key.Year, key.Month)
	var total *TotalLoadError
	if err != nil && !errors.As(err, &total) {
		return DateMap{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.key != key || gen < b.committed {
		return DateMap{}, ErrStaleSelection
	}
	b.committed = gen
	b.entries = entries
	b.err = err
	b.stale = false
	b.loadedAt = b.loader.Now()
	return maps.Clone(b.entries), err
}

func (b *Board) SelectAndLoad(ctx context.Context, key Key) (DateMap, error) {
	if err := b.Select(key); err != nil {
		return DateMap{}, err
	}
	return b.Load(ctx)
}

// Invalidate marks the board stale when it shows activityID.
func (b *Board) Invalidate(activityID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.selected || b.key.ActivityID != activityID {
		return false
	}
	b.stale = true
	return true
}

func (b *Board) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Key:      b.key,
		Selected: b.selected,
		Entries:  maps.Clone(b.entries),
		Err:      b.err,
		Stale:    b.stale,
		LoadedAt: b.loadedAt,
	}
}
