package reward

import (
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

// Event is one of the exploration outcomes.
type Event int

const (
	EventCrystal Event = iota
	EventPurse
	EventDarkEnergy
	EventMonster
	eventCount
)

// String returns a stable identifier for the event.
func (e Event) String() string {
	switch e {
	case EventCrystal:
		return "crystal"
	case EventPurse:
		return "purse"
	case EventDarkEnergy:
		return "dark_energy"
	case EventMonster:
		return "monster"
	default:
		return "unknown"
	}
}

const (
	ExploreXP     = 20
	ExploreGold   = 30
	ExploreDamage = 10
)

// Picker is the subset of *dice.Roller exploration draws from.
type Picker interface {
	Pick(label string, n int) int
}

// ExploreOutcome reports one exploration.
type ExploreOutcome struct {
	Event    Event
	XP       int
	Gold     int
	Damage   int
	Progress progression.Result
}

// Explore draws one event uniformly and applies it. Exploring costs no energy.
// A monster sighting changes nothing; the caller may suggest a fight.
//
// Precondition: p and r must be non-nil.
// Postcondition: p.HP >= 0.
func Explore(p *player.Player, r Picker, levels ruleset.LevelTable) ExploreOutcome {
	out := ExploreOutcome{Event: Event(r.Pick("explore event", int(eventCount)))}
	switch out.Event {
	case EventCrystal:
		out.XP = ExploreXP
		out.Progress = progression.GrantExperience(p, ExploreXP, levels)
	case EventPurse:
		out.Gold = ExploreGold
		p.Gold += ExploreGold
	case EventDarkEnergy:
		out.Damage = min(ExploreDamage, p.HP)
		p.HP -= out.Damage
	}
	return out
}
