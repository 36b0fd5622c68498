package game

import (
	"context"
	"sync"
	"time"

	"github.com/itsu-games/itsu/internal/logging"
)

const (
	sweepPeriod = 5 * time.Minute
	idleTimeout = 180 * time.Second
)

// Registry is the keyed collection of live matches. Mutations to a single
// match are serialized through WithMatch, different matches mutate in
// parallel.
type Registry struct {
	mtx     sync.RWMutex
	matches map[string]*entry

	now         func() time.Time
	removeHooks []func(matchID string)
}

type entry struct {
	mtx   sync.Mutex
	match *Match
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		matches: map[string]*entry{},
		now:     now,
	}
}

// OnRemove registers a hook invoked whenever a match leaves the registry.
// Hooks must be registered during wiring, before Run.
func (r *Registry) OnRemove(fn func(matchID string)) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.removeHooks = append(r.removeHooks, fn)
}

func (r *Registry) Create(id string, m *Match) {
	m.LastActivity = r.now()
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.matches[id] = &entry{match: m}
}

// WithMatch runs fn with exclusive access to the match. It reports whether
// the match was found.
func (r *Registry) WithMatch(id string, fn func(m *Match)) bool {
	r.mtx.RLock()
	e, ok := r.matches[id]
	r.mtx.RUnlock()
	if !ok {
		return false
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	fn(e.match)
	return true
}

// Snapshot returns a deep copy of the match state.
func (r *Registry) Snapshot(id string) (Match, bool) {
	var snap Match
	ok := r.WithMatch(id, func(m *Match) {
		snap = m.Snapshot()
	})
	return snap, ok
}

func (r *Registry) Delete(id string) {
	r.mtx.Lock()
	_, ok := r.matches[id]
	delete(r.matches, id)
	hooks := r.removeHooks
	r.mtx.Unlock()

	if ok {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

func (r *Registry) IDs() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	ids := make([]string, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.matches)
}

// Run owns the housekeeping timer that evicts abandoned and finished
// matches from memory. Removal never touches durable records.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) Sweep(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("game.Registry.sweep")
	now := r.now()

	var stale []string
	for _, id := range r.IDs() {
		r.WithMatch(id, func(m *Match) {
			if now.Sub(m.LastActivity) > idleTimeout || m.Status.Terminal() {
				stale = append(stale, id)
			}
		})
	}

	for _, id := range stale {
		r.Delete(id)
		logger.Debugf("cleaned up match %s from memory", id)
	}
}
