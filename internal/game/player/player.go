// Package player defines the persistent player record and pure creation logic.
package player

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

const (
	// MaxEnergy caps the regenerating energy resource.
	MaxEnergy = 5
	// StartingGold is the currency granted at registration.
	StartingGold = 50
	// DefaultName is used when a player registers without a display name.
	DefaultName = "Mysterious Warrior"
	// DateLayout is the UTC calendar-date format of LastDaily.
	DateLayout = "2006-01-02"
)

// Player represents one user's persistent game state.
//
// ID is the transport-supplied user identity and the store's primary key.
type Player struct {
	ID        int64
	Name      string
	Handle    string
	Archetype string

	// Level is derived from Experience through the catalog level table.
	Level      int
	Experience int
	Gold       int

	HP     int
	MaxHP  int
	Attack int

	Energy int
	// LastEnergyTick is nil until the first regeneration; nil means one
	// interval ago.
	LastEnergyTick *time.Time
	// LastDaily is the UTC date (DateLayout) of the last daily claim, or "".
	LastDaily string

	// Inventory is a multiset of item ids; order carries no meaning.
	Inventory []string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version counts committed saves. Stores reject a save whose Version is
	// not the stored one and bump it on success.
	Version int64
}

// New constructs a fresh level-1 player seeded from the archetype's base stats.
//
// Precondition: archetype must be non-nil; handle may be empty.
// Postcondition: Returns a Player with full health, full energy, StartingGold,
// zero experience, and an empty inventory. An empty name becomes DefaultName.
func New(id int64, handle, name string, archetype *ruleset.Archetype, now time.Time) (*Player, error) {
	if archetype == nil {
		return nil, errors.New("archetype must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return &Player{
		ID:        id,
		Name:      name,
		Handle:    NormalizeHandle(handle),
		Archetype: archetype.ID,
		Level:     1,
		Gold:      StartingGold,
		HP:        archetype.BaseHP,
		MaxHP:     archetype.BaseHP,
		Attack:    archetype.BaseAttack,
		Energy:    MaxEnergy,
		Inventory: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeHandle strips a leading "@" and surrounding whitespace so that
// "@usagi" and "usagi" address the same player.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// Validate checks every record invariant against the level table.
//
// Precondition: levels must be non-empty and start at 0.
// Postcondition: Returns nil if the record may be persisted, or an error
// listing every violation.
func (p *Player) Validate(levels ruleset.LevelTable) error {
	var errs []string
	if p.Archetype == "" {
		errs = append(errs, "archetype must not be empty")
	}
	if p.Experience < 0 {
		errs = append(errs, fmt.Sprintf("experience must be >= 0, got %d", p.Experience))
	}
	if p.Gold < 0 {
		errs = append(errs, fmt.Sprintf("gold must be >= 0, got %d", p.Gold))
	}
	if p.MaxHP < 1 {
		errs = append(errs, fmt.Sprintf("max_hp must be >= 1, got %d", p.MaxHP))
	}
	if p.HP < 0 || p.HP > p.MaxHP {
		errs = append(errs, fmt.Sprintf("hp must be within [0, %d], got %d", p.MaxHP, p.HP))
	}
	if p.Energy < 0 || p.Energy > MaxEnergy {
		errs = append(errs, fmt.Sprintf("energy must be within [0, %d], got %d", MaxEnergy, p.Energy))
	}
	if len(levels) > 0 && p.Experience >= 0 {
		if want, _ := levels.LevelFor(p.Experience); p.Level != want {
			errs = append(errs, fmt.Sprintf("level %d does not match experience %d (want %d)", p.Level, p.Experience, want))
		}
	}
	if p.LastDaily != "" {
		if _, err := time.Parse(DateLayout, p.LastDaily); err != nil {
			errs = append(errs, fmt.Sprintf("last_daily %q is not a %s date", p.LastDaily, DateLayout))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid player %d: %s", p.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without touching the
// original.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Inventory = append([]string{}, p.Inventory...)
	if p.LastEnergyTick != nil {
		t := *p.LastEnergyTick
		cp.LastEnergyTick = &t
	}
	return &cp
}

// DisplayName returns the name, falling back to the handle and then DefaultName.
func (p *Player) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Handle != "":
		return "@" + p.Handle
	default:
		return DefaultName
	}
}

// Standing is one leaderboard row.
type Standing struct {
	PlayerID   int64
	Name       string
	Level      int
	Experience int
}

// Standing returns p's leaderboard row.
func (p *Player) Standing() Standing {
	return Standing{PlayerID: p.ID, Name: p.DisplayName(), Level: p.Level, Experience: p.Experience}
}

// RankLess orders standings by level descending, then experience descending,
// then id ascending for a stable result.
func RankLess(a, b Standing) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	if a.Experience != b.Experience {
		return a.Experience > b.Experience
	}
	return a.PlayerID < b.PlayerID
}
