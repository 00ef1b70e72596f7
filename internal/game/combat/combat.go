// Package combat resolves solo and team encounters as pure functions of
// (players, catalog, dice).
package combat

import (
	"github.com/cory-johannsen/sailor/internal/game/dice"
)

const (
	// AttackDie is the number of sides on the attack die.
	AttackDie = 10
	// RareDropPercent is the per-player chance of a rare drop on victory.
	RareDropPercent = 8
	// SuperBossPercent is the chance a team fight draws a super-boss.
	SuperBossPercent = 10
	// LossDamageBonusMax is the upper bound of the uniform bonus added to a
	// monster's attack when it wins.
	LossDamageBonusMax = 3
)

// Roller is the subset of *dice.Roller the resolver draws from.
type Roller interface {
	Roll(label string, sides, modifier int) dice.RollResult
	Between(label string, lo, hi int) int
	Chance(label string, percent int) bool
	Pick(label string, n int) int
}
