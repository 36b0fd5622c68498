package game

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistryWithMatchMissing(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	if r.WithMatch("nope", func(m *Match) { t.Fatal("fn must not run") }) {
		t.Fatal("expected false for a missing match")
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	r.Create("m1", testMatch("m1"))

	snap, ok := r.Snapshot("m1")
	if !ok {
		t.Fatal("match not found")
	}
	snap.Players[0].IsDead = true
	snap.Votes["c1"] = "c2"

	fresh, _ := r.Snapshot("m1")
	if fresh.Players[0].IsDead {
		t.Fatal("mutating a snapshot leaked into the registry")
	}
	if len(fresh.Votes) != 0 {
		t.Fatal("mutating a snapshot vote map leaked into the registry")
	}
}

func TestRegistrySweepEvictsIdleMatches(t *testing.T) {
	t.Parallel()
	clock := newTestClock()
	r := NewRegistry(clock.Now)

	r.Create("idle", testMatch("idle"))
	clock.Advance(idleTimeout + time.Second)
	r.Create("fresh", testMatch("fresh"))

	r.Sweep(context.Background())

	if _, ok := r.Snapshot("idle"); ok {
		t.Fatal("idle match survived the sweep")
	}
	if _, ok := r.Snapshot("fresh"); !ok {
		t.Fatal("fresh match was evicted")
	}
}

func TestRegistrySweepEvictsTerminalMatches(t *testing.T) {
	t.Parallel()
	clock := newTestClock()
	r := NewRegistry(clock.Now)

	finished := testMatch("finished")
	finished.Status = StatusFinished
	r.Create("finished", finished)

	failed := testMatch("failed")
	failed.Status = StatusFailed
	r.Create("failed", failed)

	live := testMatch("live")
	live.Status = StatusChatPhase
	r.Create("live", live)

	r.Sweep(context.Background())

	if r.Len() != 1 {
		t.Fatalf("expected 1 surviving match got %d", r.Len())
	}
	if _, ok := r.Snapshot("live"); !ok {
		t.Fatal("live match was evicted")
	}
}

func TestRegistryRemoveHooks(t *testing.T) {
	t.Parallel()
	clock := newTestClock()
	r := NewRegistry(clock.Now)

	var mtx sync.Mutex
	var removed []string
	r.OnRemove(func(matchID string) {
		mtx.Lock()
		defer mtx.Unlock()
		removed = append(removed, matchID)
	})

	r.Create("m1", testMatch("m1"))
	r.Delete("m1")
	r.Delete("m1") // second delete must not refire

	r.Create("m2", testMatch("m2"))
	clock.Advance(idleTimeout + time.Second)
	r.Sweep(context.Background())

	mtx.Lock()
	defer mtx.Unlock()
	if len(removed) != 2 || removed[0] != "m1" || removed[1] != "m2" {
		t.Fatalf("unexpected hook invocations %v", removed)
	}
}
