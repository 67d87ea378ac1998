package lobby

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestReducer() *Reducer {
	return &Reducer{
		StaleAfter: DefaultStaleAfter,
		Now:        func() time.Time { return t0 },
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func seen(at time.Duration, userID int, name, sid string) StatusForPlayer {
	return StatusForPlayer{When: t0.Add(at), UserID: userID, Name: name, SteamID: sid}
}

func TestReducerScenarioKill(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		LobbyCreated{When: t0},
		seen(0, 1, "Alice", "[U:1:111]"),
		seen(0, 2, "Bob", "[U:1:222]"),
		KillEvent{When: t0, Killer: "Alice", Victim: "Bob", Weapon: "scattergun", Crit: false},
	})

	if len(l.Players) != 2 {
		t.Fatalf("roster size = %d, want 2", len(l.Players))
	}
	a, b := l.FindByName("Alice"), l.FindByName("Bob")
	if a.Kills != 1 || b.Deaths != 1 {
		t.Errorf("Alice.Kills=%d Bob.Deaths=%d, want 1 and 1", a.Kills, b.Deaths)
	}
	if a.CritKills != 0 || a.CritDeaths != 0 || b.CritKills != 0 || b.CritDeaths != 0 {
		t.Error("crit counters must stay zero")
	}
}

func TestReducerChatBeforeSeenIsDropped(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		Chat{When: t0, Name: "Alice", Message: "gg"},
	})
	if len(l.Chat) != 0 {
		t.Errorf("chat length = %d, want 0", len(l.Chat))
	}
}

func TestReducerDuplicateStatusIsIdempotent(t *testing.T) {
	r := newTestReducer()
	ev := seen(0, 1, "Alice", "[U:1:111]")
	once := r.Replay([]Event{ev})
	twice := r.Replay([]Event{ev, ev})

	if len(once.Players) != len(twice.Players) {
		t.Fatalf("roster sizes differ: %d vs %d", len(once.Players), len(twice.Players))
	}
	a, b := once.Players[0], twice.Players[0]
	if a.UserID != b.UserID || a.Name != b.Name || a.Team != b.Team || a.Kills != b.Kills || a.Deaths != b.Deaths || !a.LastSeen.Equal(b.LastSeen) {
		t.Errorf("players differ: %+v vs %+v", *a, *b)
	}
}

func TestReducerIdentityAcrossForms(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		seen(0, 1, "Alice", "[U:1:111]"),
		seen(time.Second, 7, "Alice", "76561197960265839"),
	})
	if len(l.Players) != 1 {
		t.Fatalf("roster size = %d, want 1", len(l.Players))
	}
	if l.Players[0].UserID != 7 {
		t.Errorf("UserID = %d, want 7", l.Players[0].UserID)
	}
}

func TestReducerStatusHeaderEvicts(t *testing.T) {
	tests := []struct {
		name    string
		at      time.Duration
		wantLen int
	}{
		{"29s keeps", 29 * time.Second, 1},
		{"31s evicts", 31 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReducer()
			l := r.Replay([]Event{
				seen(0, 1, "Alice", "[U:1:111]"),
				StatusHeader{When: t0.Add(tt.at)},
			})
			if len(l.Players) != tt.wantLen {
				t.Errorf("roster size = %d, want %d", len(l.Players), tt.wantLen)
			}
		})
	}
}

func TestReducerLobbyCreatedResets(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		seen(0, 1, "Alice", "[U:1:111]"),
		seen(0, 2, "Bob", "[U:1:222]"),
		Chat{When: t0, Name: "Alice", Message: "hi"},
		KillEvent{Killer: "Alice", Victim: "Bob", Weapon: "knife"},
		PlayerTeam{SteamID: "[U:1:111]", Team: "INVADERS"},
		LobbyCreated{When: t0},
	})
	if len(l.Players) != 0 || len(l.Chat) != 0 {
		t.Errorf("after LobbyCreated: %d players, %d chat lines", len(l.Players), len(l.Chat))
	}
}

func TestReducerPlayerTeam(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		seen(0, 1, "Alice", "[U:1:111]"),
		PlayerTeam{SteamID: "[U:1:111]", Team: "SPEC"},
		PlayerTeam{SteamID: "[U:1:333]", Team: "INVADERS"},
	})
	if got := l.FindByName("Alice").Team; got != TeamSpectator {
		t.Errorf("Alice.Team = %v, want spectator", got)
	}
	standIn := l.FindByName("[U:1:333]")
	if standIn == nil {
		t.Fatal("stand-in for early team assignment missing")
	}
	if standIn.Team != TeamUnknown || !standIn.LastSeen.Equal(t0) {
		t.Errorf("stand-in = %+v", *standIn)
	}
}

func TestReducerIgnoresNoise(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		seen(0, 1, "Alice", "[U:1:111]"),
		Unrecognized{Line: "Map: pl_upward"},
		LobbyDestroyed{When: t0},
		seen(0, 2, "Broken", "not-an-id"),
		PlayerTeam{SteamID: "???", Team: "INVADERS"},
		Suicide{Name: "Nobody"},
		KillEvent{Killer: "Nobody", Victim: "Nobody2"},
	})
	if len(l.Players) != 1 || l.Players[0].Deaths != 0 {
		t.Errorf("noise mutated state: %d players", len(l.Players))
	}
}

func TestReducerSuicide(t *testing.T) {
	r := newTestReducer()
	l := r.Replay([]Event{
		seen(0, 1, "Alice", "[U:1:111]"),
		Suicide{When: t0, Name: "Alice"},
	})
	if got := l.FindByName("Alice").Deaths; got != 1 {
		t.Errorf("Deaths = %d, want 1", got)
	}
}
