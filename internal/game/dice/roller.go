package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger. Every draw is logged at debug level with
// a label naming what the draw decided.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll throws one die with the given number of sides and adds modifier.
//
// Precondition: sides >= 2.
// Postcondition: result.Dice has one value in [1, sides].
func (r *Roller) Roll(label string, sides, modifier int) RollResult {
	if sides < 2 {
		panic("dice: Roll requires sides >= 2")
	}
	result := RollResult{
		Expression: Expression(sides, modifier),
		Dice:       []int{r.src.Intn(sides) + 1},
		Modifier:   modifier,
	}
	r.logger.Debug("dice roll",
		zap.String("label", label),
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Between returns a uniform int in [lo, hi].
//
// Precondition: lo <= hi.
func (r *Roller) Between(label string, lo, hi int) int {
	if lo > hi {
		panic("dice: Between requires lo <= hi")
	}
	v := lo + r.src.Intn(hi-lo+1)
	r.logger.Debug("dice between",
		zap.String("label", label),
		zap.Int("lo", lo),
		zap.Int("hi", hi),
		zap.Int("value", v),
	)
	return v
}

// Chance reports whether a percent-in-100 check succeeds.
//
// Precondition: 0 <= percent <= 100.
func (r *Roller) Chance(label string, percent int) bool {
	draw := r.src.Intn(100)
	ok := draw < percent
	r.logger.Debug("dice chance",
		zap.String("label", label),
		zap.Int("percent", percent),
		zap.Int("draw", draw),
		zap.Bool("success", ok),
	)
	return ok
}

// Pick returns a uniform index in [0, n).
//
// Precondition: n > 0.
func (r *Roller) Pick(label string, n int) int {
	idx := r.src.Intn(n)
	r.logger.Debug("dice pick",
		zap.String("label", label),
		zap.Int("n", n),
		zap.Int("index", idx),
	)
	return idx
}
