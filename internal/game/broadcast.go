package game

import "sync"

// Broadcaster receives a read-only snapshot after every mutating engine
// operation. Implementations must not block the caller.
type Broadcaster interface {
	OnMatchStateChanged(matchID string, snapshot Match)
}

type BroadcasterFunc func(matchID string, snapshot Match)

func (f BroadcasterFunc) OnMatchStateChanged(matchID string, snapshot Match) {
	f(matchID, snapshot)
}

// Fanout relays every state change to all registered subscribers.
// Subscribers are added during wiring, before the engine starts ticking.
type Fanout struct {
	mtx  sync.RWMutex
	subs []Broadcaster
}

func (f *Fanout) Add(b Broadcaster) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.subs = append(f.subs, b)
}

func (f *Fanout) OnMatchStateChanged(matchID string, snapshot Match) {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	for _, b := range f.subs {
		b.OnMatchStateChanged(matchID, snapshot)
	}
}
