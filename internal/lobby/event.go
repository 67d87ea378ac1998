package lobby

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one typed line from the game log, already parsed upstream.
type Event interface {
	// Kind is the event's wire name, e.g. "kill".
	Kind() string
}

// StatusHeader marks the start of a status listing.
type StatusHeader struct {
	When time.Time
}

// StatusForPlayer is one player row of a status listing. SteamID holds the
// id as printed, in either textual form.
type StatusForPlayer struct {
	When    time.Time
	UserID  int
	Name    string
	SteamID string
}

type KillEvent struct {
	When   time.Time
	Killer string
	Victim string
	Weapon string
	Crit   bool
}

type Suicide struct {
	When time.Time
	Name string
}

type Chat struct {
	When     time.Time
	Name     string
	Message  string
	Dead     bool
	TeamOnly bool
}

type LobbyCreated struct {
	When time.Time
}

type LobbyDestroyed struct {
	When time.Time
}

// PlayerTeam assigns a team code (INVADERS, DEFENDERS, SPEC) to a SteamID.
type PlayerTeam struct {
	SteamID string
	Team    string
}

// Unrecognized is a line the parser could not classify.
type Unrecognized struct {
	Line string
}

func (StatusHeader) Kind() string    { return "status_header" }
func (StatusForPlayer) Kind() string { return "status_player" }
func (KillEvent) Kind() string       { return "kill" }
func (Suicide) Kind() string         { return "suicide" }
func (Chat) Kind() string            { return "chat" }
func (LobbyCreated) Kind() string    { return "lobby_created" }
func (LobbyDestroyed) Kind() string  { return "lobby_destroyed" }
func (PlayerTeam) Kind() string      { return "player_team" }
func (Unrecognized) Kind() string    { return "unrecognized" }

// envelope is the JSON form of every event. Fields not used by a kind are
// left empty.
type envelope struct {
	Type     string    `json:"type"`
	When     time.Time `json:"when,omitempty"`
	UserID   int       `json:"userid,omitempty"`
	Name     string    `json:"name,omitempty"`
	SteamID  string    `json:"steamid,omitempty"`
	Killer   string    `json:"killer,omitempty"`
	Victim   string    `json:"victim,omitempty"`
	Weapon   string    `json:"weapon,omitempty"`
	Crit     bool      `json:"crit,omitempty"`
	Message  string    `json:"message,omitempty"`
	Dead     bool      `json:"dead,omitempty"`
	TeamOnly bool      `json:"team_only,omitempty"`
	Team     string    `json:"team,omitempty"`
	Line     string    `json:"line,omitempty"`
}

// DecodeEvent decodes one JSON event. Unknown types decode to Unrecognized;
// only malformed JSON is an error.
func DecodeEvent(data []byte) (Event, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return e.event(), nil
}

// DecodeEvents decodes either a single JSON event object or an array of
// them.
func DecodeEvents(data []byte) ([]Event, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if len(raw) > 0 && raw[0] == '[' {
		var envs []envelope
		if err := json.Unmarshal(raw, &envs); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		events := make([]Event, len(envs))
		for i, e := range envs {
			events[i] = e.event()
		}
		return events, nil
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}
	return []Event{ev}, nil
}

// EncodeEvent is the inverse of DecodeEvent.
func EncodeEvent(ev Event) ([]byte, error) {
	e := envelope{Type: ev.Kind()}
	switch v := ev.(type) {
	case StatusHeader:
		e.When = v.When
	case StatusForPlayer:
		e.When, e.UserID, e.Name, e.SteamID = v.When, v.UserID, v.Name, v.SteamID
	case KillEvent:
		e.When, e.Killer, e.Victim, e.Weapon, e.Crit = v.When, v.Killer, v.Victim, v.Weapon, v.Crit
	case Suicide:
		e.When, e.Name = v.When, v.Name
	case Chat:
		e.When, e.Name, e.Message, e.Dead, e.TeamOnly = v.When, v.Name, v.Message, v.Dead, v.TeamOnly
	case LobbyCreated:
		e.When = v.When
	case LobbyDestroyed:
		e.When = v.When
	case PlayerTeam:
		e.SteamID, e.Team = v.SteamID, v.Team
	case Unrecognized:
		e.Line = v.Line
	}
	return json.Marshal(e)
}

func (e envelope) event() Event {
	switch e.Type {
	case "status_header":
		return StatusHeader{When: e.When}
	case "status_player":
		return StatusForPlayer{When: e.When, UserID: e.UserID, Name: e.Name, SteamID: e.SteamID}
	case "kill":
		return KillEvent{When: e.When, Killer: e.Killer, Victim: e.Victim, Weapon: e.Weapon, Crit: e.Crit}
	case "suicide":
		return Suicide{When: e.When, Name: e.Name}
	case "chat":
		return Chat{When: e.When, Name: e.Name, Message: e.Message, Dead: e.Dead, TeamOnly: e.TeamOnly}
	case "lobby_created":
		return LobbyCreated{When: e.When}
	case "lobby_destroyed":
		return LobbyDestroyed{When: e.When}
	case "player_team":
		return PlayerTeam{SteamID: e.SteamID, Team: e.Team}
	default:
		return Unrecognized{Line: e.Line}
	}
}
