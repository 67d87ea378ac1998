package lobby

import (
	"testing"
	"time"
)

func TestDecodeEventKinds(t *testing.T) {
	tests := []struct {
		line string
		want Event
	}{
		{`{"type":"status_header","when":"2024-03-01T20:00:00Z"}`, StatusHeader{When: t0}},
		{`{"type":"status_player","when":"2024-03-01T20:00:00Z","userid":3,"name":"Alice","steamid":"[U:1:111]"}`,
			StatusForPlayer{When: t0, UserID: 3, Name: "Alice", SteamID: "[U:1:111]"}},
		{`{"type":"kill","killer":"Alice","victim":"Bob","weapon":"rocket","crit":true}`,
			KillEvent{Killer: "Alice", Victim: "Bob", Weapon: "rocket", Crit: true}},
		{`{"type":"suicide","name":"Bob"}`, Suicide{Name: "Bob"}},
		{`{"type":"chat","name":"Bob","message":"gg","dead":true,"team_only":true}`,
			Chat{Name: "Bob", Message: "gg", Dead: true, TeamOnly: true}},
		{`{"type":"lobby_created"}`, LobbyCreated{}},
		{`{"type":"lobby_destroyed"}`, LobbyDestroyed{}},
		{`{"type":"player_team","steamid":"[U:1:111]","team":"INVADERS"}`, PlayerTeam{SteamID: "[U:1:111]", Team: "INVADERS"}},
		{`{"type":"something_new","line":"raw"}`, Unrecognized{Line: "raw"}},
	}
	for _, tt := range tests {
		got, err := DecodeEvent([]byte(tt.line))
		if err != nil {
			t.Fatalf("DecodeEvent(%s): %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("DecodeEvent(%s) = %#v, want %#v", tt.line, got, tt.want)
		}
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestDecodeEventsArrayAndSingle(t *testing.T) {
	evs, err := DecodeEvents([]byte(`[{"type":"lobby_created"},{"type":"suicide","name":"x"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0].Kind() != "lobby_created" || evs[1].Kind() != "suicide" {
		t.Errorf("unexpected events: %#v", evs)
	}

	evs, err = DecodeEvents([]byte(` {"type":"status_header"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Kind() != "status_header" {
		t.Errorf("unexpected events: %#v", evs)
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	events := []Event{
		StatusForPlayer{When: t0.Add(time.Second), UserID: 2, Name: "Bob", SteamID: "[U:1:222]"},
		KillEvent{When: t0, Killer: "A", Victim: "B", Weapon: "w", Crit: true},
		PlayerTeam{SteamID: "[U:1:222]", Team: "DEFENDERS"},
	}
	for _, ev := range events {
		data, err := EncodeEvent(ev)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeEvent(data)
		if err != nil {
			t.Fatal(err)
		}
		if got != ev {
			t.Errorf("round trip of %s: got %#v, want %#v", ev.Kind(), got, ev)
		}
	}
}
