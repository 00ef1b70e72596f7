package ruleset

// Level is one row of the experience table.
type Level struct {
	Threshold int    `yaml:"threshold"`
	Title     string `yaml:"title"`
}

// LevelTable is ascending by Threshold and starts at 0.
type LevelTable []Level

// LevelFor returns the 1-based level and title for a total experience value:
// the index of the highest threshold not exceeding xp.
//
// Precondition: t is non-empty and t[0].Threshold == 0.
// Postcondition: result is monotonic non-decreasing in xp; 1 <= level <= len(t).
func (t LevelTable) LevelFor(xp int) (int, string) {
	level := 1
	for i, row := range t {
		if xp >= row.Threshold {
			level = i + 1
		}
	}
	return level, t[level-1].Title
}

// MaxLevel returns the highest reachable level.
func (t LevelTable) MaxLevel() int {
	return len(t)
}

// NextThreshold returns the experience needed for the level after level, and
// false when level is already the maximum.
func (t LevelTable) NextThreshold(level int) (int, bool) {
	if level < 1 || level >= len(t) {
		return 0, false
	}
	return t[level].Threshold, true
}
