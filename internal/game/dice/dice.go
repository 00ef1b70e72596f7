// Package dice provides the randomness abstraction and roll-result types
// used by every game engine. Engines never touch a global generator; they
// receive a Roller built over an injectable Source.
package dice

import "fmt"

// RollResult holds the full audit trail for a single roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // e.g. "1d10+5"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
//
// Postcondition: return value == sum(r.Dice) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"1d10+5 → [7] +5 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Expression formats a single-die expression such as "1d10+3" or "1d4-1".
func Expression(sides, modifier int) string {
	if modifier == 0 {
		return fmt.Sprintf("1d%d", sides)
	}
	return fmt.Sprintf("1d%d%+d", sides, modifier)
}
