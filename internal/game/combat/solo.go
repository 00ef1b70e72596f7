package combat

import (
	"github.com/cory-johannsen/sailor/internal/game/dice"
	"github.com/cory-johannsen/sailor/internal/game/energy"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

// FightOutcome describes a resolved solo encounter.
type FightOutcome struct {
	Monster     *ruleset.Monster
	PlayerRoll  dice.RollResult
	MonsterRoll dice.RollResult
	Won         bool

	// Set on a win.
	XP       int
	Gold     int
	Progress progression.Result
	RareDrop bool

	// Set on a loss.
	Damage     int
	KnockedOut bool
}

// ResolveFight spends one energy point and fights a random monster whose
// minimum level does not exceed max(1, p.Level+1). Ties go to the player.
// A loss that would drop health to 0 or below revives the player at half of
// max health, never below 1.
//
// Precondition: p, cat, and r must be non-nil.
// Postcondition: with zero energy, returns an error matching
// gameerr.ErrInsufficientResource and p is unchanged with no dice drawn.
// Otherwise p.Energy decreased by exactly 1 and 0 < p.HP <= p.MaxHP after a loss.
func ResolveFight(p *player.Player, cat *ruleset.Catalog, r Roller) (FightOutcome, error) {
	if err := energy.Debit(p); err != nil {
		return FightOutcome{}, err
	}

	pool := cat.MonstersUpToLevel(max(1, p.Level+1))
	if len(pool) == 0 {
		// unreachable with a validated catalog
		return FightOutcome{}, gameerr.New(gameerr.CodeInternal, "no monster available")
	}
	m := pool[r.Pick("monster", len(pool))]

	out := FightOutcome{
		Monster:     m,
		PlayerRoll:  r.Roll("player attack", AttackDie, p.Attack),
		MonsterRoll: r.Roll("monster attack", AttackDie, m.Attack),
	}
	out.Won = out.PlayerRoll.Total() >= out.MonsterRoll.Total()

	if out.Won {
		out.XP, out.Gold = m.RewardXP, m.RewardGold
		out.Progress = progression.GrantExperience(p, m.RewardXP, cat.Levels())
		p.Gold += m.RewardGold
		if r.Chance("rare drop", RareDropPercent) {
			inventory.AddItem(p, cat.RareDropItemID())
			out.RareDrop = true
		}
		return out, nil
	}

	out.Damage = max(1, m.Attack+r.Between("damage bonus", 0, LossDamageBonusMax))
	if p.HP-out.Damage <= 0 {
		p.HP = max(1, p.MaxHP/2)
		out.KnockedOut = true
	} else {
		p.HP -= out.Damage
	}
	return out, nil
}
