package lobby

import (
	"log/slog"
	"time"
)

// DefaultStaleAfter is how long a player may go unseen in status listings
// before being evicted.
const DefaultStaleAfter = 30 * time.Second

// Reducer maps each event onto a Lobby mutation. Events are applied one at
// a time in arrival order with no lookahead; every rule is local, so a
// duplicated log line is harmless.
type Reducer struct {
	StaleAfter time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewReducer returns a reducer using the wall clock.
func NewReducer(staleAfter time.Duration, logger *slog.Logger) *Reducer {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{StaleAfter: staleAfter, Now: time.Now, Logger: logger}
}

// Apply mutates l according to ev. It never fails: lookup misses and
// malformed ids are logged and skipped.
func (r *Reducer) Apply(l *Lobby, ev Event) {
	switch e := ev.(type) {
	case StatusHeader:
		if evicted := l.EvictStale(e.When, r.StaleAfter); len(evicted) > 0 {
			r.log().Debug("evicted stale players", slog.Int("count", len(evicted)))
		}

	case StatusForPlayer:
		id, err := ParseSteamID(e.SteamID)
		if err != nil {
			r.log().Warn("ignoring status line", slog.String("name", e.Name), slog.Any("error", err))
			return
		}
		if l.UpsertSeen(e.UserID, id, e.Name, e.When) {
			r.log().Debug("player joined", slog.String("name", e.Name), slog.String("steamid", id.String()))
		}

	case KillEvent:
		killerFound, victimFound := l.RecordKill(e.Killer, e.Victim, e.Weapon, e.Crit)
		if !killerFound {
			r.log().Warn("killer not found", slog.String("name", e.Killer))
		}
		if !victimFound {
			r.log().Warn("victim not found", slog.String("name", e.Victim))
		}

	case Suicide:
		if !l.RecordSuicide(e.Name) {
			r.log().Warn("player not found", slog.String("name", e.Name), slog.String("event", e.Kind()))
		}

	case Chat:
		if !l.RecordChat(e.Name, e.Message, e.Dead, e.TeamOnly, e.When) {
			r.log().Warn("dropping chat from unknown player", slog.String("name", e.Name))
		}

	case LobbyCreated:
		r.log().Info("creating new lobby")
		l.Reset()

	case LobbyDestroyed:
		// Reserved.

	case PlayerTeam:
		id, err := ParseSteamID(e.SteamID)
		if err != nil {
			r.log().Warn("ignoring team assignment", slog.String("steamid", e.SteamID), slog.Any("error", err))
			return
		}
		if l.AssignTeam(id, e.Team, r.now()) {
			r.log().Debug("team assigned before status, added stand-in", slog.String("steamid", id.String()))
		}

	default:
		// Unrecognized and unknown event kinds are ignored.
	}
}

func (r *Reducer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Replay applies events in order to a fresh lobby.
func (r *Reducer) Replay(events []Event) *Lobby {
	l := NewLobby()
	for _, ev := range events {
		r.Apply(l, ev)
	}
	return l
}

func (r *Reducer) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
