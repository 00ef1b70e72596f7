// Package reward implements the daily bonus and exploration events.
package reward

import (
	"time"

	"github.com/cory-johannsen/sailor/internal/game/energy"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

const (
	DailyGold   = 20
	DailyEnergy = 2
	DailyXP     = 5
)

// DailyOutcome reports what a daily claim granted.
type DailyOutcome struct {
	Gold     int
	Energy   int
	XP       int
	Progress progression.Result
	Date     string
}

// ClaimDaily grants the daily bonus once per UTC calendar date.
//
// Precondition: p must be non-nil.
// Postcondition: a repeat claim on the same UTC date returns an error
// matching gameerr.ErrAlreadyClaimed and leaves p unchanged. Otherwise gold
// +DailyGold, energy +DailyEnergy capped, experience +DailyXP.
func ClaimDaily(p *player.Player, now time.Time, levels ruleset.LevelTable) (DailyOutcome, error) {
	date := now.UTC().Format(player.DateLayout)
	if p.LastDaily == date {
		return DailyOutcome{Date: date}, gameerr.New(gameerr.CodeAlreadyClaimed, "daily reward already claimed today").
			WithMeta("date", date)
	}
	p.LastDaily = date
	p.Gold += DailyGold
	out := DailyOutcome{
		Gold:   DailyGold,
		Energy: energy.Add(p, DailyEnergy),
		XP:     DailyXP,
		Date:   date,
	}
	out.Progress = progression.GrantExperience(p, DailyXP, levels)
	return out, nil
}
