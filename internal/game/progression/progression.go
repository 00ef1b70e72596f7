// Package progression derives level from experience and applies level-up
// stat growth.
package progression

import (
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

const (
	// HPPerLevel is the max-health gained for each level.
	HPPerLevel = 5
	// AttackPerLevel is the attack gained for each level.
	AttackPerLevel = 1
)

// Result describes the effect of one experience grant.
type Result struct {
	LeveledUp bool
	// Gained is the number of levels gained, possibly more than one.
	Gained int
	Level  int
	Title  string
}

// GrantExperience adds amount to p's experience and re-derives level from
// the table. Each level gained adds HPPerLevel max health and AttackPerLevel
// attack, then health is fully restored.
//
// Precondition: p must be non-nil; amount >= 0; levels must be valid.
// Postcondition: p.Level == levels.LevelFor(p.Experience).
func GrantExperience(p *player.Player, amount int, levels ruleset.LevelTable) Result {
	if amount < 0 {
		panic("progression.GrantExperience: precondition violated: amount must be >= 0")
	}
	p.Experience += amount
	return Sync(p, levels)
}

// Sync re-derives p.Level from p.Experience, applying growth for any levels
// gained. A derived level below the stored one only corrects the stored value.
//
// Precondition: p must be non-nil; levels must be valid.
// Postcondition: p.Level == levels.LevelFor(p.Experience).
func Sync(p *player.Player, levels ruleset.LevelTable) Result {
	level, title := levels.LevelFor(p.Experience)
	res := Result{Level: level, Title: title}
	if gained := level - p.Level; gained > 0 {
		p.MaxHP += HPPerLevel * gained
		p.Attack += AttackPerLevel * gained
		p.HP = p.MaxHP
		res.LeveledUp = true
		res.Gained = gained
	}
	p.Level = level
	return res
}
