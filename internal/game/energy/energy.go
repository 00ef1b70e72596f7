// Package energy implements the real-time energy regeneration clock.
package energy

import (
	"time"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
)

// DefaultInterval is the time needed to regenerate one energy point.
const DefaultInterval = time.Hour

// Status reports the result of a regeneration pass.
type Status struct {
	// Restored is the number of points added, possibly 0.
	Restored int
	// Changed is true when at least one whole interval elapsed and the record
	// must be persisted.
	Changed bool
	// Until is the time remaining to the next tick boundary, never negative.
	Until time.Duration
}

// Minutes returns the whole minutes of Until.
func (s Status) Minutes() int {
	return int(s.Until / time.Minute)
}

// Seconds returns the seconds remainder of Until after Minutes.
func (s Status) Seconds() int {
	return int((s.Until % time.Minute) / time.Second)
}

// Restore applies every whole interval elapsed since the player's last tick.
// The tick advances by exactly the number of elapsed intervals, never snapped
// to now, so partial progress toward the next point is kept. When energy is
// already capped the elapsed intervals are still consumed.
//
// Precondition: p must be non-nil; interval must be > 0.
// Postcondition: 0 <= p.Energy <= player.MaxEnergy; Status.Changed is true iff
// p.LastEnergyTick moved.
func Restore(p *player.Player, now time.Time, interval time.Duration) Status {
	if interval <= 0 {
		panic("energy.Restore: precondition violated: interval must be > 0")
	}
	last := now.Add(-interval)
	if p.LastEnergyTick != nil {
		last = *p.LastEnergyTick
	}

	var st Status
	if elapsed := now.Sub(last); elapsed >= interval {
		ticks := int(elapsed / interval)
		before := p.Energy
		p.Energy = min(player.MaxEnergy, p.Energy+ticks)
		st.Restored = p.Energy - before
		next := last.Add(time.Duration(ticks) * interval)
		p.LastEnergyTick = &next
		last = next
		st.Changed = true
	}

	st.Until = max(0, last.Add(interval).Sub(now))
	return st
}

// Debit spends one energy point.
//
// Precondition: p must be non-nil.
// Postcondition: on success p.Energy decreased by exactly 1; on failure p is
// unchanged and the error matches gameerr.ErrInsufficientResource.
func Debit(p *player.Player) error {
	if p.Energy <= 0 {
		return gameerr.InsufficientEnergy(p.Energy)
	}
	p.Energy--
	return nil
}

// Add credits n energy points, capped at player.MaxEnergy, and returns the
// number actually added.
//
// Precondition: n >= 0.
func Add(p *player.Player, n int) int {
	if n < 0 {
		panic("energy.Add: precondition violated: n must be >= 0")
	}
	before := p.Energy
	p.Energy = min(player.MaxEnergy, p.Energy+n)
	return p.Energy - before
}
