package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/sailor/internal/game/dice"
)

// FixedDice returns a Roller replaying values as raw Intn results, plus the
// underlying source so tests can assert every value was consumed.
//
// A die face f on a d10 is queued as f-1.
func FixedDice(t *testing.T, values ...int) (*dice.Roller, *dice.SequenceSource) {
	t.Helper()
	src := dice.NewSequenceSource(values...)
	return dice.NewLoggedRoller(src, zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))), src
}
