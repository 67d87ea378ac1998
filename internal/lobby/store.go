package lobby

import (
	"sync"
)

// Store is the single exclusion boundary around the live Lobby. The reducer,
// the enrichment poller and the publisher all go through it.
//
// Callbacks passed to Update run with the lock held. They must only touch
// the Lobby: no network, disk or channel operations.
type Store struct {
	mu    sync.RWMutex
	lobby *Lobby
}

func NewStore() *Store {
	return &Store{lobby: NewLobby()}
}

// Update runs fn with exclusive access to the lobby.
func (s *Store) Update(fn func(l *Lobby)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.lobby)
}

// Snapshot returns a deep copy of the current lobby.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobby.Snapshot()
}

// MissingProfiles lists players that still need enrichment.
func (s *Store) MissingProfiles() []SteamID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobby.MissingProfiles()
}

// MergeProfiles attaches each profile to its player and returns how many
// matched. Profiles for players who have left are discarded.
func (s *Store) MergeProfiles(infos []ProfileInfo) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := 0
	for _, info := range infos {
		if s.lobby.MergeProfile(info) {
			merged++
		}
	}
	return merged
}

// PlayerCount returns the current roster size.
func (s *Store) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobby.Players)
}
