package ruleset

import "strings"

// Tier distinguishes regular monsters from team-fight bosses.
type Tier int

const (
	TierRegular Tier = iota
	TierBoss
	TierSuperBoss
)

// String returns a display label for the tier.
func (t Tier) String() string {
	switch t {
	case TierBoss:
		return "boss"
	case TierSuperBoss:
		return "superboss"
	default:
		return "regular"
	}
}

// TierOf derives the tier from the identifier convention: ids starting with
// "superboss" are super-bosses, ids starting with "boss" are bosses.
func TierOf(id string) Tier {
	switch {
	case strings.HasPrefix(id, "superboss"):
		return TierSuperBoss
	case strings.HasPrefix(id, "boss"):
		return TierBoss
	default:
		return TierRegular
	}
}

// Monster is an immutable catalog entry.
type Monster struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	MinLevel   int    `yaml:"min_level"`
	HP         int    `yaml:"hp"`
	Attack     int    `yaml:"attack"`
	RewardXP   int    `yaml:"reward_xp"`
	RewardGold int    `yaml:"reward_gold"`
}

// Tier returns the monster's tier.
func (m *Monster) Tier() Tier {
	return TierOf(m.ID)
}
