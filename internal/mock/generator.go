// Package mock produces a synthetic match as a stream of log events, for
// running the server without a game.
package mock

import (
	"math/rand"
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
)

type mockPlayer struct {
	userID    int
	name      string
	steamID   string
	team      string
	joinTick  int
	leaveTick int // 0 = stays for the whole match
}

func (p mockPlayer) presentAt(tick int) bool {
	return tick >= p.joinTick && (p.leaveTick == 0 || tick < p.leaveTick)
}

var weapons = []string{"scattergun", "rocketlauncher", "sniperrifle", "minigun", "flamethrower", "knife", "tf_projectile_pipe"}

var chatter = []string{"gg", "nice shot", "medic!", "push cart", "who is on our sentry", "lol", "ez"}

// statusEvery is how many ticks pass between status listings.
const statusEvery = 5

// Generator replays a scripted lobby with randomized combat. It implements
// monitor.Source; every Poll advances one tick.
type Generator struct {
	rng    *rand.Rand
	roster []mockPlayer
	tick   int
	Now    func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		Now: time.Now,
		roster: []mockPlayer{
			{userID: 2, name: "Soldier of Fortune", steamID: "[U:1:111]", team: "INVADERS", joinTick: 1},
			{userID: 3, name: "scout main", steamID: "[U:1:222]", team: "DEFENDERS", joinTick: 1},
			{userID: 4, name: "HeavyWeaponsGuy", steamID: "76561197960266728", team: "INVADERS", joinTick: 1},
			{userID: 5, name: "pyro.exe", steamID: "[U:1:4321]", team: "DEFENDERS", joinTick: 1},
			{userID: 6, name: "Spy Who Loved Me", steamID: "[U:1:98765]", team: "DEFENDERS", joinTick: 1, leaveTick: 40},
			{userID: 7, name: "late medic", steamID: "76561198000000000", team: "INVADERS", joinTick: 15},
			{userID: 8, name: "just watching", steamID: "[U:1:55555]", team: "SPEC", joinTick: 3},
		},
	}
}

func (g *Generator) Name() string { return "mock" }

// Poll advances the match by one tick and returns that tick's events.
func (g *Generator) Poll() ([]lobby.Event, error) {
	g.tick++
	now := g.Now()
	var events []lobby.Event

	if g.tick == 1 {
		events = append(events, lobby.LobbyCreated{When: now})
	}

	// Team assignments sometimes arrive before the status row.
	for _, p := range g.roster {
		if p.joinTick == g.tick {
			events = append(events, lobby.PlayerTeam{SteamID: p.steamID, Team: p.team})
		}
	}

	if g.tick%statusEvery == 1 {
		events = append(events, lobby.StatusHeader{When: now})
		for _, p := range g.present() {
			events = append(events, lobby.StatusForPlayer{
				When:    now,
				UserID:  p.userID,
				Name:    p.name,
				SteamID: p.steamID,
			})
		}
		// Teams are reported again after every listing so early stand-ins
		// pick up their team.
		for _, p := range g.present() {
			events = append(events, lobby.PlayerTeam{SteamID: p.steamID, Team: p.team})
		}
	}

	events = append(events, g.combat(now)...)
	return events, nil
}

func (g *Generator) present() []mockPlayer {
	var out []mockPlayer
	for _, p := range g.roster {
		if p.presentAt(g.tick) {
			out = append(out, p)
		}
	}
	return out
}

func (g *Generator) fighters() []mockPlayer {
	var out []mockPlayer
	for _, p := range g.present() {
		if p.team == "INVADERS" || p.team == "DEFENDERS" {
			out = append(out, p)
		}
	}
	return out
}

func (g *Generator) combat(now time.Time) []lobby.Event {
	fighters := g.fighters()
	if len(fighters) < 2 {
		return nil
	}
	var events []lobby.Event

	if g.rng.Float64() < 0.6 {
		killer := fighters[g.rng.Intn(len(fighters))]
		var targets []mockPlayer
		for _, p := range fighters {
			if p.team != killer.team {
				targets = append(targets, p)
			}
		}
		if len(targets) > 0 {
			victim := targets[g.rng.Intn(len(targets))]
			events = append(events, lobby.KillEvent{
				When:   now,
				Killer: killer.name,
				Victim: victim.name,
				Weapon: weapons[g.rng.Intn(len(weapons))],
				Crit:   g.rng.Float64() < 0.1,
			})
		}
	}

	if g.rng.Float64() < 0.05 {
		p := fighters[g.rng.Intn(len(fighters))]
		events = append(events, lobby.Suicide{When: now, Name: p.name})
	}

	if g.rng.Float64() < 0.2 {
		p := fighters[g.rng.Intn(len(fighters))]
		events = append(events, lobby.Chat{
			When:     now,
			Name:     p.name,
			Message:  chatter[g.rng.Intn(len(chatter))],
			Dead:     g.rng.Float64() < 0.3,
			TeamOnly: g.rng.Float64() < 0.3,
		})
	}

	return events
}
