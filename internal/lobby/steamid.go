package lobby

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// ErrInvalidSteamID is returned when text cannot be decoded into a SteamID.
var ErrInvalidSteamID = errors.New("invalid steam id")

// SteamID is the stable identity of a player: the 64-bit Steam account
// number. Both textual encodings decode to the same value, so two SteamIDs
// are equal iff they name the same account.
type SteamID uint64

// ParseSteam3 decodes the bracketed legacy form printed by the game's
// status command, e.g. "[U:1:111]".
func ParseSteam3(s string) (SteamID, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return 0, fmt.Errorf("%w: %q is not a steam3 id", ErrInvalidSteamID, s)
	}
	sid := steamid.New(s)
	if !sid.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSteamID, s)
	}
	return SteamID(sid.Int64()), nil
}

// ParseSteam64 decodes the full decimal form, e.g. "76561197960265839".
func ParseSteam64(s string) (SteamID, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSteamID, s, err)
	}
	if sid := steamid.New(int64(v)); !sid.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSteamID, s)
	}
	return SteamID(v), nil
}

// ParseSteamID accepts either textual form.
func ParseSteamID(s string) (SteamID, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		return ParseSteam3(s)
	}
	return ParseSteam64(s)
}

// IsZero reports whether the id is unset.
func (id SteamID) IsZero() bool {
	return id == 0
}

// String returns the 64-bit decimal form.
func (id SteamID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Steam3 returns the bracketed legacy form.
func (id SteamID) Steam3() string {
	if id == 0 {
		return ""
	}
	sid := steamid.New(int64(id))
	return string(sid.Steam3())
}

// MarshalText writes the 64-bit decimal form. The zero id encodes as empty
// text.
func (id SteamID) MarshalText() ([]byte, error) {
	if id == 0 {
		return []byte{}, nil
	}
	return []byte(id.String()), nil
}

// UnmarshalText accepts either textual form. Empty text and "0" yield the
// zero id.
func (id *SteamID) UnmarshalText(text []byte) error {
	if t := strings.TrimSpace(string(text)); t == "" || t == "0" {
		*id = 0
		return nil
	}
	v, err := ParseSteamID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
