package lobby

import (
	"time"
)

// Kill is one recorded kill. Kills are append-only.
type Kill struct {
	Weapon string `json:"weapon"`
	Crit   bool   `json:"crit"`
}

// ProfileInfo is the profile data fetched from the Steam Web API. It is
// replaced wholesale on every fetch, never merged field by field.
type ProfileInfo struct {
	SteamID        SteamID    `json:"steamId"`
	Name           string     `json:"name"`
	Avatar         string     `json:"avatar"`
	AvatarMedium   string     `json:"avatarMedium"`
	AvatarFull     string     `json:"avatarFull"`
	AccountCreated *time.Time `json:"accountCreated,omitempty"`
}

// newAccountAge is the age under which an account is considered new.
const newAccountAge = 365 * 24 * time.Hour

// AccountCreatedString renders the creation date as YYYY-MM-DD, or
// "Unknown" when the profile does not expose it.
func (p *ProfileInfo) AccountCreatedString() string {
	if p == nil || p.AccountCreated == nil {
		return "Unknown"
	}
	return p.AccountCreated.Format("2006-01-02")
}

// IsNewAccount reports whether the account is younger than a year at now.
// Unknown creation dates are never new.
func (p *ProfileInfo) IsNewAccount(now time.Time) bool {
	if p == nil || p.AccountCreated == nil {
		return false
	}
	return now.Sub(*p.AccountCreated) < newAccountAge
}

func (p *ProfileInfo) clone() *ProfileInfo {
	if p == nil {
		return nil
	}
	c := *p
	if p.AccountCreated != nil {
		t := *p.AccountCreated
		c.AccountCreated = &t
	}
	return &c
}

// Player is one roster entry. SteamID is the primary key; UserID is the
// transient id the server assigned and may change on reconnect.
type Player struct {
	UserID     int          `json:"userId"`
	SteamID    SteamID      `json:"steamId"`
	Name       string       `json:"name"`
	Team       Team         `json:"team"`
	Kills      int          `json:"kills"`
	Deaths     int          `json:"deaths"`
	CritKills  int          `json:"critKills"`
	CritDeaths int          `json:"critDeaths"`
	KillsWith  []Kill       `json:"killsWith"`
	LastSeen   time.Time    `json:"lastSeen"`
	Profile    *ProfileInfo `json:"profile,omitempty"`
}

// Clone returns a deep copy of the Player, duplicating slice and pointer
// fields so the copy can be mutated independently of the original.
func (p *Player) Clone() Player {
	c := *p
	if p.KillsWith != nil {
		c.KillsWith = make([]Kill, len(p.KillsWith))
		copy(c.KillsWith, p.KillsWith)
	}
	c.Profile = p.Profile.clone()
	return c
}

// ChatLine references its author by SteamID; the name is resolved at render
// time, so a line whose author has been evicted becomes unattributable.
type ChatLine struct {
	When     time.Time `json:"when"`
	SteamID  SteamID   `json:"steamId"`
	Message  string    `json:"message"`
	Dead     bool      `json:"dead"`
	TeamOnly bool      `json:"teamOnly"`
}

// Prefix is the marker shown in front of the author's name.
func (c ChatLine) Prefix() string {
	switch {
	case c.Dead && c.TeamOnly:
		return "*DEAD*(TEAM) "
	case c.Dead:
		return "*DEAD* "
	case c.TeamOnly:
		return "(TEAM) "
	default:
		return ""
	}
}

// Query selects a player by name or SteamID. When both are set the SteamID
// wins; callers normally set exactly one.
type Query struct {
	Name    string
	SteamID SteamID
}

// Lobby is the live session aggregate. It is not safe for concurrent use;
// Store serialises access to it.
type Lobby struct {
	Generation uint64
	Players    []*Player
	Chat       []ChatLine
}

// NewLobby returns an empty lobby.
func NewLobby() *Lobby {
	return &Lobby{}
}

// Reset empties the roster and the chat transcript. Nothing carries over
// from the previous lobby.
func (l *Lobby) Reset() {
	l.Players = nil
	l.Chat = nil
	l.Generation++
}

// Find returns the matching player or nil.
func (l *Lobby) Find(q Query) *Player {
	if !q.SteamID.IsZero() {
		for _, p := range l.Players {
			if p.SteamID == q.SteamID {
				return p
			}
		}
	}
	if q.Name != "" {
		for _, p := range l.Players {
			if p.Name == q.Name {
				return p
			}
		}
	}
	return nil
}

// FindByName returns the first player with the given display name.
func (l *Lobby) FindByName(name string) *Player {
	return l.Find(Query{Name: name})
}

// FindBySteamID returns the player with the given SteamID.
func (l *Lobby) FindBySteamID(id SteamID) *Player {
	return l.Find(Query{SteamID: id})
}

// UpsertSeen records that a player appeared in a status listing. An existing
// entry has its transient id, name and last-seen time refreshed; otherwise a
// new entry with zeroed stats is created. Reports whether one was created.
func (l *Lobby) UpsertSeen(userID int, id SteamID, name string, when time.Time) bool {
	if p := l.FindBySteamID(id); p != nil {
		p.UserID = userID
		p.Name = name
		p.LastSeen = when
		return false
	}
	l.Players = append(l.Players, &Player{
		UserID:   userID,
		SteamID:  id,
		Name:     name,
		Team:     TeamUnknown,
		LastSeen: when,
	})
	return true
}

// AssignTeam sets a player's team. Team assignments can arrive before the
// player's first status line; in that case a stand-in entry named after the
// SteamID is created with TeamUnknown and converges once status arrives.
// Reports whether a stand-in was created.
func (l *Lobby) AssignTeam(id SteamID, code string, now time.Time) bool {
	if p := l.FindBySteamID(id); p != nil {
		p.Team = TeamFromCode(code)
		return false
	}
	l.Players = append(l.Players, &Player{
		SteamID:  id,
		Name:     id.Steam3(),
		Team:     TeamUnknown,
		LastSeen: now,
	})
	return true
}

// RecordKill credits the killer and debits the victim. Either side may be
// missing; the side that is found is still updated.
func (l *Lobby) RecordKill(killer, victim, weapon string, crit bool) (killerFound, victimFound bool) {
	if p := l.FindByName(killer); p != nil {
		killerFound = true
		p.Kills++
		if crit {
			p.CritKills++
		}
		p.KillsWith = append(p.KillsWith, Kill{Weapon: weapon, Crit: crit})
	}
	if p := l.FindByName(victim); p != nil {
		victimFound = true
		p.Deaths++
		if crit {
			p.CritDeaths++
		}
	}
	return killerFound, victimFound
}

// RecordSuicide counts a death with no killer.
func (l *Lobby) RecordSuicide(name string) bool {
	p := l.FindByName(name)
	if p == nil {
		return false
	}
	p.Deaths++
	return true
}

// RecordChat appends a chat line attributed to the named player. Lines from
// names that are not on the roster are dropped.
func (l *Lobby) RecordChat(name, message string, dead, teamOnly bool, when time.Time) bool {
	p := l.FindByName(name)
	if p == nil {
		return false
	}
	l.Chat = append(l.Chat, ChatLine{
		When:     when,
		SteamID:  p.SteamID,
		Message:  message,
		Dead:     dead,
		TeamOnly: teamOnly,
	})
	return true
}

// EvictStale drops every player whose last sighting is more than maxAge
// before now. The roster is rebuilt by filtering. Returns the evicted ids.
func (l *Lobby) EvictStale(now time.Time, maxAge time.Duration) []SteamID {
	var evicted []SteamID
	kept := make([]*Player, 0, len(l.Players))
	for _, p := range l.Players {
		if now.Sub(p.LastSeen) > maxAge {
			evicted = append(evicted, p.SteamID)
			continue
		}
		kept = append(kept, p)
	}
	l.Players = kept
	return evicted
}

// MergeProfile replaces the profile of the matching player. Returns false
// when the player is no longer on the roster.
func (l *Lobby) MergeProfile(info ProfileInfo) bool {
	p := l.FindBySteamID(info.SteamID)
	if p == nil {
		return false
	}
	p.Profile = info.clone()
	return true
}

// MissingProfiles lists the players that have no profile yet, in roster
// order.
func (l *Lobby) MissingProfiles() []SteamID {
	var ids []SteamID
	for _, p := range l.Players {
		if p.Profile == nil {
			ids = append(ids, p.SteamID)
		}
	}
	return ids
}

// Snapshot returns an independent deep copy of the lobby.
func (l *Lobby) Snapshot() *Snapshot {
	s := &Snapshot{
		Generation: l.Generation,
		Players:    make([]Player, len(l.Players)),
		Chat:       make([]ChatLine, len(l.Chat)),
	}
	for i, p := range l.Players {
		s.Players[i] = p.Clone()
	}
	copy(s.Chat, l.Chat)
	return s
}
