package combat

import (
	"github.com/cory-johannsen/sailor/internal/game/dice"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

// MemberReward is one member's share of a team victory.
type MemberReward struct {
	PlayerID int64
	Progress progression.Result
	RareDrop bool
}

// TeamFightOutcome describes a resolved team encounter.
type TeamFightOutcome struct {
	Boss      *ruleset.Monster
	SuperBoss bool
	TeamRoll  dice.RollResult
	BossRoll  dice.RollResult
	Won       bool

	// XPEach and GoldEach are the floor-divided shares; the remainder is lost.
	XPEach   int
	GoldEach int
	Rewards  []MemberReward

	// Exhausted names every member with no energy when the fight was refused.
	Exhausted []string
}

// ResolveTeamFight fights a boss with every member. Validation is
// all-or-nothing: if any member has no energy nobody is debited. Otherwise
// every member pays one energy, win or lose.
//
// Precondition: members must be non-empty and non-nil; cat and r non-nil.
// Postcondition: either every member's energy decreased by exactly 1, or none
// changed and the error matches gameerr.ErrInsufficientResource with
// TeamFightOutcome.Exhausted populated.
func ResolveTeamFight(members []*player.Player, cat *ruleset.Catalog, r Roller) (TeamFightOutcome, error) {
	if len(members) == 0 {
		return TeamFightOutcome{}, gameerr.New(gameerr.CodeInvalidArgument, "team has no members")
	}

	var out TeamFightOutcome
	for _, m := range members {
		if m.Energy <= 0 {
			out.Exhausted = append(out.Exhausted, m.DisplayName())
		}
	}
	if len(out.Exhausted) > 0 {
		return out, gameerr.New(gameerr.CodeInsufficientResource, "team members are out of energy").
			WithMeta("resource", "energy").
			WithMeta("exhausted", out.Exhausted)
	}
	for _, m := range members {
		m.Energy--
	}

	boss, super := pickBoss(cat, r)
	if boss == nil {
		return out, gameerr.New(gameerr.CodeInternal, "no boss available")
	}
	out.Boss, out.SuperBoss = boss, super

	total := 0
	for _, m := range members {
		total += m.Attack
	}
	out.TeamRoll = r.Roll("team attack", AttackDie, total/len(members))
	out.BossRoll = r.Roll("boss attack", AttackDie, boss.Attack)
	out.Won = out.TeamRoll.Total() >= out.BossRoll.Total()
	if !out.Won {
		return out, nil
	}

	out.XPEach = boss.RewardXP / len(members)
	out.GoldEach = boss.RewardGold / len(members)
	for _, m := range members {
		reward := MemberReward{PlayerID: m.ID}
		reward.Progress = progression.GrantExperience(m, out.XPEach, cat.Levels())
		m.Gold += out.GoldEach
		if r.Chance("rare drop", RareDropPercent) {
			inventory.AddItem(m, cat.RareDropItemID())
			reward.RareDrop = true
		}
		out.Rewards = append(out.Rewards, reward)
	}
	return out, nil
}

func pickBoss(cat *ruleset.Catalog, r Roller) (*ruleset.Monster, bool) {
	if supers := cat.SuperBosses(); len(supers) > 0 && r.Chance("superboss", SuperBossPercent) {
		return supers[r.Pick("superboss", len(supers))], true
	}
	bosses := cat.Bosses()
	if len(bosses) == 0 {
		return nil, false
	}
	return bosses[r.Pick("boss", len(bosses))], false
}
