package lobby

import (
	"sort"
	"time"
)

// Snapshot is an immutable copy of the lobby as published to subscribers.
// Seq increases with every publish; Generation changes only when a new
// lobby replaces the old one, so subscribers can tell a reset from an
// ordinary shrink of the roster.
type Snapshot struct {
	Seq         uint64     `json:"seq"`
	Generation  uint64     `json:"generation"`
	TakenAt     time.Time  `json:"takenAt"`
	Self        SteamID    `json:"self"`
	GameRunning bool       `json:"gameRunning"`
	Players     []Player   `json:"players"`
	Chat        []ChatLine `json:"chat"`
}

// Player returns the player with the given SteamID, if present.
func (s *Snapshot) Player(id SteamID) (Player, bool) {
	for _, p := range s.Players {
		if p.SteamID == id {
			return p, true
		}
	}
	return Player{}, false
}

// SwapTeams returns a copy with Invaders and Defenders exchanged. It is a
// display aid; the live state is never touched.
func (s *Snapshot) SwapTeams() *Snapshot {
	c := *s
	c.Players = make([]Player, len(s.Players))
	for i := range s.Players {
		c.Players[i] = s.Players[i].Clone()
		c.Players[i].Team = c.Players[i].Team.Opponent()
	}
	c.Chat = append([]ChatLine(nil), s.Chat...)
	return &c
}

// Teams groups the players for a scoreboard, each group in scoreboard order.
type Teams struct {
	Invaders   []Player `json:"invaders"`
	Defenders  []Player `json:"defenders"`
	Spectators []Player `json:"spectators"`
	Joined     []Player `json:"joined"`
}

// Teams splits the roster by team.
func (s *Snapshot) Teams() Teams {
	sorted := append([]Player(nil), s.Players...)
	SortForScoreboard(sorted)

	var t Teams
	for _, p := range sorted {
		switch p.Team {
		case TeamInvaders:
			t.Invaders = append(t.Invaders, p)
		case TeamDefenders:
			t.Defenders = append(t.Defenders, p)
		case TeamSpectator:
			t.Spectators = append(t.Spectators, p)
		default:
			t.Joined = append(t.Joined, p)
		}
	}
	return t
}

// AttributedLine is a chat line with its author resolved.
type AttributedLine struct {
	ChatLine
	Name string `json:"name"`
	Team Team   `json:"team"`
}

// AttributeChat resolves chat authors against the roster. Lines whose
// author is no longer present are skipped.
func (s *Snapshot) AttributeChat() []AttributedLine {
	byID := make(map[SteamID]*Player, len(s.Players))
	for i := range s.Players {
		byID[s.Players[i].SteamID] = &s.Players[i]
	}
	lines := make([]AttributedLine, 0, len(s.Chat))
	for _, c := range s.Chat {
		p, ok := byID[c.SteamID]
		if !ok {
			continue
		}
		lines = append(lines, AttributedLine{ChatLine: c, Name: p.Name, Team: p.Team})
	}
	return lines
}

// SortForScoreboard orders players by team, kills descending, deaths
// ascending and finally name.
func SortForScoreboard(players []Player) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		return a.Name < b.Name
	})
}
