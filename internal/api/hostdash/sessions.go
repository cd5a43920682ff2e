package hostdash

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/dashboard"
	"github.com/codr1/hostdash/internal/detail"
	"github.com/codr1/hostdash/internal/mutation"
	"github.com/codr1/hostdash/internal/scheduler"
)

// Workspace is the view state of one host session: the calendar board, the
// detail panel and the coordinator that keeps them consistent.
type Workspace struct {
	ID          string
	Board       *dashboard.Board
	Panel       *detail.Panel
	Coordinator *mutation.Coordinator

	lastSeen time.Time
}

type SessionsConfig struct {
	Dashboard *dashboard.Loader
	Detail    *detail.Loader
	Updater   mutation.Updater
	// Recorder is optional.
	Recorder mutation.DecisionRecorder
	// Idle sessions older than this are evicted (default: 2h)
	IdleTimeout time.Duration
	// Clock for testing (nil uses real time)
	Clock mutation.Clock
}

// Sessions is the in-memory registry of host workspaces.
type Sessions struct {
	cfg SessionsConfig

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewSessions(cfg SessionsConfig) *Sessions {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Sessions{cfg: cfg, workspaces: make(map[string]*Workspace)}
}

// Open returns the workspace for id, creating it on first use.
func (s *Sessions) Open(id string) *Workspace {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.workspaces[id]; ok {
		ws.lastSeen = now
		return ws
	}

	panel := detail.NewPanel(s.cfg.Detail)
	ws := &Workspace{
		ID:    id,
		Board: dashboard.NewBoard(s.cfg.Dashboard),
		Panel: panel,
		Coordinator: mutation.NewCoordinator(s.cfg.Updater, mutation.Config{
			Panel:       panel,
			Invalidator: s,
			Recorder:    s.cfg.Recorder,
			Clock:       s.cfg.Clock,
		}),
		lastSeen: now,
	}
	s.workspaces[id] = ws
	return ws
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

// Invalidate marks every board showing activityID as stale, so hosts sharing
// an activity see each other's decisions on the next refresh.
func (s *Sessions) Invalidate(activityID string) bool {
	invalidated := false
	for _, ws := range s.snapshot() {
		if ws.Board.Invalidate(activityID) {
			invalidated = true
		}
	}
	return invalidated
}

// EvictIdle drops workspaces not seen within the idle timeout.
func (s *Sessions) EvictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, ws := range s.workspaces {
		if now.Sub(ws.lastSeen) > s.cfg.IdleTimeout {
			delete(s.workspaces, id)
			evicted++
		}
	}
	return evicted
}

// RefreshAll reloads the selected month of every board, stale boards first.
// Failures are logged and counted; they never stop the pass.
func (s *Sessions) RefreshAll(ctx context.Context) scheduler.RefreshStats {
	logger := log.Ctx(ctx)

	workspaces := s.snapshot()
	slices.SortStableFunc(workspaces, func(a, b *Workspace) int {
		as, bs := a.Board.Stale(), b.Board.Stale()
		switch {
		case as && !bs:
			return -1
		case !as && bs:
			return 1
		default:
			return 0
		}
	})

	var stats scheduler.RefreshStats
	for _, ws := range workspaces {
		if ctx.Err() != nil {
			stats.Skipped++
			continue
		}
		key, selected := ws.Board.Current()
		if !selected {
			stats.Skipped++
			continue
		}
		_, err := ws.Board.Load(ctx)
		switch {
		case err == nil:
			stats.Refreshed++
		case errors.Is(err, dashboard.ErrStaleSelection):
			stats.Skipped++
		default:
			stats.Failed++
			logger.Warn().Err(err).Str("session_id", ws.ID).Str("dashboard", key.String()).Msg("Dashboard refresh failed")
		}
	}
	return stats
}

func (s *Sessions) snapshot() []*Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		out = append(out, ws)
	}
	slices.SortFunc(out, func(a, b *Workspace) int {
		return a.lastSeen.Compare(b.lastSeen)
	})
	return out
}
