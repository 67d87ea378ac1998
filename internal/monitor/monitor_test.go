package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/ws"
)

const aliceID lobby.SteamID = 76561197960265839 // [U:1:111]

var t0 = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	name   string
	events []lobby.Event
	err    error
	panics bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Poll() ([]lobby.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	out := f.events
	f.events = nil
	return out, f.err
}

func (f *fakeSource) set(events []lobby.Event, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events, f.err = events, err
}

func newTestDriver(sources ...Source) (*Driver, *lobby.Store) {
	store := lobby.NewStore()
	reducer := lobby.NewReducer(0, discardLogger())
	reducer.Now = func() time.Time { return t0 }
	d := NewDriver(Options{
		Store:        store,
		Reducer:      reducer,
		Sources:      sources,
		PollInterval: 10 * time.Millisecond,
		Logger:       discardLogger(),
	})
	return d, store
}

func joinEvents() []lobby.Event {
	return []lobby.Event{
		lobby.LobbyCreated{When: t0},
		lobby.StatusForPlayer{When: t0, UserID: 1, Name: "alice", SteamID: "[U:1:111]"},
		lobby.StatusForPlayer{When: t0, UserID: 2, Name: "bob", SteamID: "76561197960265950"},
		lobby.KillEvent{When: t0, Killer: "alice", Victim: "bob", Weapon: "rocketlauncher", Crit: true},
	}
}

func TestDriver_ApplyPendingInOrder(t *testing.T) {
	d, store := newTestDriver()

	d.Submit(joinEvents()...)
	if got := d.Health().QueueDepth; got != 4 {
		t.Errorf("queue depth = %d, want 4", got)
	}
	if n := d.ApplyPending(); n != 4 {
		t.Fatalf("applied %d, want 4", n)
	}

	snap := store.Snapshot()
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
	alice, ok := snap.Player(aliceID)
	if !ok {
		t.Fatal("alice missing")
	}
	if alice.Kills != 1 || alice.CritKills != 1 {
		t.Errorf("alice kills=%d crit=%d", alice.Kills, alice.CritKills)
	}
	if d.Applied() != 4 {
		t.Errorf("Applied = %d", d.Applied())
	}
	if d.ApplyPending() != 0 {
		t.Error("queue should be empty")
	}
}

func TestDriver_RunAppliesSubmittedEvents(t *testing.T) {
	d, store := newTestDriver()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	d.Submit(joinEvents()...)

	deadline := time.Now().Add(2 * time.Second)
	for store.PlayerCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.PlayerCount() != 2 {
		t.Fatalf("players = %d, want 2", store.PlayerCount())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDriver_RunPublishesWithGameState(t *testing.T) {
	store := lobby.NewStore()
	pub := ws.NewPublisher(store, 10*time.Millisecond, 8, aliceID, discardLogger())
	watcher := NewProcessWatcher([]string{"hl2"}, time.Hour, discardLogger())
	watcher.list = func(context.Context) ([]string, error) { return []string{"hl2.exe"}, nil }

	d := NewDriver(Options{
		Store:     store,
		Reducer:   lobby.NewReducer(0, discardLogger()),
		Publisher: pub,
		Watcher:   watcher,
		Logger:    discardLogger(),
	})
	sub := pub.Subscribe()
	defer pub.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-sub.C:
			if snap.GameRunning {
				if snap.Self != aliceID {
					t.Errorf("self = %d", snap.Self)
				}
				return
			}
		case <-deadline:
			t.Fatal("never saw a snapshot with the game running")
		}
	}
}

func TestDriver_PollSources(t *testing.T) {
	src := &fakeSource{name: "fake"}
	d, store := newTestDriver(src)

	src.set(joinEvents()[:2], nil)
	if n := d.PollSources(); n != 2 {
		t.Fatalf("polled %d, want 2", n)
	}
	d.ApplyPending()
	if store.PlayerCount() != 1 {
		t.Errorf("players = %d, want 1", store.PlayerCount())
	}
}

func TestDriver_SourceHealth(t *testing.T) {
	src := &fakeSource{name: "fake"}
	d, _ := newTestDriver(src)

	if got := d.Health(); got.Status != "ok" || got.Sources["fake"].Status != "healthy" {
		t.Fatalf("initial health = %+v", got)
	}

	src.set(nil, errors.New("disk on fire"))
	d.PollSources()
	h := d.Health()
	if h.Status != "degraded" {
		t.Errorf("status = %q, want degraded", h.Status)
	}
	if s := h.Sources["fake"]; s.Status != "degraded" || s.LastError != "disk on fire" || s.Failures != 1 {
		t.Errorf("source = %+v", s)
	}

	d.PollSources()
	d.PollSources()
	if s := d.Health().Sources["fake"]; s.Status != "failed" {
		t.Errorf("after %d failures status = %q, want failed", failureThreshold, s.Status)
	}

	src.set(nil, nil)
	d.PollSources()
	if got := d.Health(); got.Status != "ok" || got.Sources["fake"].Failures != 0 {
		t.Errorf("after recovery = %+v", got)
	}
}

func TestDriver_SourcePanicRecorded(t *testing.T) {
	src := &fakeSource{name: "fake", panics: true}
	d, _ := newTestDriver(src)

	d.PollSources()
	s := d.Health().Sources["fake"]
	if s.Status != "degraded" || s.LastError == "" {
		t.Errorf("source = %+v", s)
	}
}
