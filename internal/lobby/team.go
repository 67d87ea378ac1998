package lobby

import "encoding/json"

// Team is ordered so that sorting by Team is deterministic:
// Unknown < Invaders < Defenders < Spectator.
type Team int

const (
	TeamUnknown Team = iota
	TeamInvaders
	TeamDefenders
	TeamSpectator
)

var teamNames = map[Team]string{
	TeamUnknown:   "unknown",
	TeamInvaders:  "invaders",
	TeamDefenders: "defenders",
	TeamSpectator: "spectator",
}

var teamFromName = map[string]Team{
	"unknown":   TeamUnknown,
	"invaders":  TeamInvaders,
	"defenders": TeamDefenders,
	"spectator": TeamSpectator,
}

// TeamFromCode maps a team code from the game log. Unrecognised codes are
// TeamUnknown, never an error.
func TeamFromCode(code string) Team {
	switch code {
	case "INVADERS":
		return TeamInvaders
	case "DEFENDERS":
		return TeamDefenders
	case "SPEC":
		return TeamSpectator
	default:
		return TeamUnknown
	}
}

func (t Team) String() string {
	if s, ok := teamNames[t]; ok {
		return s
	}
	return "unknown"
}

// Opponent swaps Invaders and Defenders and leaves other teams alone.
func (t Team) Opponent() Team {
	switch t {
	case TeamInvaders:
		return TeamDefenders
	case TeamDefenders:
		return TeamInvaders
	default:
		return t
	}
}

// MarshalJSON encodes the team by name, e.g. "invaders".
func (t Team) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a team name. Unknown names yield TeamUnknown.
func (t *Team) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = teamFromName[s]
	return nil
}
