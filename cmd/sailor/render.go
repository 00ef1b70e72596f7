package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/reward"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/cory-johannsen/sailor/internal/game/team"
	"github.com/cory-johannsen/sailor/internal/gameserver"
)

func formatGold(n int) string {
	return inventory.FormatGold(n)
}

func renderArchetypes(w io.Writer, archetypes []*ruleset.Archetype) {
	for _, a := range archetypes {
		fmt.Fprintf(w, "%-8s %-16s HP %d, attack %d\n", a.ID, a.Name, a.BaseHP, a.BaseAttack)
	}
}

func renderProfile(w io.Writer, prof gameserver.Profile) {
	p := prof.Player
	path := p.Archetype
	if prof.Archetype != nil {
		path = prof.Archetype.Name
	}
	fmt.Fprintf(w, "Profile of %s\n", p.DisplayName())
	fmt.Fprintf(w, "Path: %s\n", path)
	fmt.Fprintf(w, "Level: %d (%s)\n", p.Level, prof.Title)
	if prof.MaxLevel {
		fmt.Fprintf(w, "XP: %d (max level)\n", p.Experience)
	} else {
		fmt.Fprintf(w, "XP: %d/%d\n", p.Experience, prof.NextLevelXP)
	}
	fmt.Fprintf(w, "Gold: %s\n", formatGold(p.Gold))
	fmt.Fprintf(w, "HP: %d/%d\n", p.HP, p.MaxHP)
	fmt.Fprintf(w, "Attack: %d\n", p.Attack)
	fmt.Fprintf(w, "Energy: %d/%d\n", p.Energy, player.MaxEnergy)
	fmt.Fprintf(w, "Inventory: %s\n", inventorySummary(prof.Inventory))
}

func inventorySummary(lines []gameserver.InventoryLine) string {
	if len(lines) == 0 {
		return "empty"
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		name := l.ItemID
		if l.Item != nil {
			name = l.Item.Title
		}
		if l.Quantity > 1 {
			name = fmt.Sprintf("%s x%d", name, l.Quantity)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func renderInventory(w io.Writer, lines []gameserver.InventoryLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Your inventory is empty.")
		return
	}
	fmt.Fprintln(w, "Your inventory:")
	for _, l := range lines {
		if l.Item == nil {
			fmt.Fprintf(w, "  %s x%d (unknown)\n", l.ItemID, l.Quantity)
			continue
		}
		fmt.Fprintf(w, "  %s x%d [%s]: %s\n", l.Item.Title, l.Quantity, l.ItemID, l.Item.Description)
	}
}

func renderShop(w io.Writer, items []*ruleset.Item) {
	fmt.Fprintln(w, "Shop:")
	for _, it := range items {
		fmt.Fprintf(w, "  %-12s %-14s %s  %s\n", it.ID, it.Title, formatGold(it.Price), it.Description)
	}
}

func renderUse(w io.Writer, res gameserver.UseResult) {
	switch res.Effect.Kind {
	case ruleset.EffectHeal:
		fmt.Fprintf(w, "You used %s and recovered %d HP (%d/%d).\n", res.Item.Title, res.Effect.Healed, res.Player.HP, res.Player.MaxHP)
	case ruleset.EffectAttack:
		fmt.Fprintf(w, "You used %s. Attack +%d (now %d).\n", res.Item.Title, res.Effect.AttackGained, res.Player.Attack)
	default:
		fmt.Fprintf(w, "You used %s. Nothing obvious happens.\n", res.Item.Title)
	}
}

func renderLevelUp(w io.Writer, r progression.Result) {
	if r.LeveledUp {
		fmt.Fprintf(w, "Level up! You are now level %d: %s\n", r.Level, r.Title)
	}
}

func renderFight(w io.Writer, res gameserver.FightResult, cat *ruleset.Catalog) {
	fmt.Fprintf(w, "You face %s!\n", res.Monster.Name)
	fmt.Fprintf(w, "Your roll: %s | Monster: %s\n", res.PlayerRoll, res.MonsterRoll)
	if !res.Won {
		if res.KnockedOut {
			fmt.Fprintf(w, "You were knocked out and came to with %d HP.\n", res.Player.HP)
		} else {
			fmt.Fprintf(w, "You lost and took %d damage (%d/%d HP).\n", res.Damage, res.Player.HP, res.Player.MaxHP)
		}
		return
	}
	fmt.Fprintf(w, "Victory! +%d XP, +%s\n", res.XP, formatGold(res.Gold))
	if res.RareDrop {
		fmt.Fprintf(w, "Rare find: %s!\n", cat.RareDrop().Title)
	}
	renderLevelUp(w, res.Progress)
}

func renderExplore(w io.Writer, res gameserver.ExploreResult) {
	switch res.Event {
	case reward.EventCrystal:
		fmt.Fprintf(w, "You found a moon crystal shard! +%d XP\n", res.XP)
		renderLevelUp(w, res.Progress)
	case reward.EventPurse:
		fmt.Fprintf(w, "You found a lost purse. +%s\n", formatGold(res.Gold))
	case reward.EventDarkEnergy:
		fmt.Fprintf(w, "Dark energy drained you. -%d HP (%d/%d)\n", res.Damage, res.Player.HP, res.Player.MaxHP)
	case reward.EventMonster:
		fmt.Fprintln(w, "A monster lurks nearby. Try \"fight\"!")
	}
}

func renderLeaderboard(w io.Writer, top []player.Standing) {
	if len(top) == 0 {
		fmt.Fprintln(w, "Nobody has registered yet.")
		return
	}
	fmt.Fprintln(w, "Leaderboard:")
	for i, st := range top {
		fmt.Fprintf(w, "%2d. %s: level %d, %d XP\n", i+1, st.Name, st.Level, st.Experience)
	}
}

func renderInvitations(w io.Writer, invs []*team.Invitation) {
	if len(invs) == 0 {
		fmt.Fprintln(w, "No pending invitations.")
		return
	}
	for _, inv := range invs {
		fmt.Fprintf(w, "%s from player %d (expires %s)\n", inv.ID, inv.InviterID, inv.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
}

func renderTeams(w io.Writer, views []gameserver.TeamView) {
	for _, v := range views {
		names := make([]string, 0, len(v.Members))
		for _, m := range v.Members {
			if m.Name == "" {
				names = append(names, fmt.Sprintf("#%d", m.PlayerID))
				continue
			}
			names = append(names, m.Name)
		}
		fmt.Fprintf(w, "Team %d: leader %d, members: %s\n", v.Team.ID, v.Team.LeaderID, strings.Join(names, ", "))
	}
}

func renderExhausted(w io.Writer, names []string) {
	fmt.Fprintf(w, "Too tired for a team fight: %s\n", strings.Join(names, ", "))
}

func renderTeamFight(w io.Writer, res gameserver.TeamFightResult, cat *ruleset.Catalog) {
	kind := "BOSS"
	if res.SuperBoss {
		kind = "SUPERBOSS"
	}
	fmt.Fprintf(w, "Team battle against %s (%s)\n", res.Boss.Name, kind)
	fmt.Fprintf(w, "Team roll: %d | Boss: %d\n", res.TeamRoll.Total(), res.BossRoll.Total())
	if !res.Won {
		fmt.Fprintln(w, "The boss was stronger. Try again once your energy returns.")
		return
	}
	fmt.Fprintf(w, "The team won! Each member: +%d XP, +%s\n", res.XPEach, formatGold(res.GoldEach))
	names := make(map[int64]string, len(res.Members))
	for _, m := range res.Members {
		names[m.ID] = m.DisplayName()
	}
	for _, r := range res.Rewards {
		if r.RareDrop {
			fmt.Fprintf(w, "%s found a %s!\n", names[r.PlayerID], cat.RareDrop().Title)
		}
		if r.Progress.LeveledUp {
			fmt.Fprintf(w, "%s reached level %d: %s\n", names[r.PlayerID], r.Progress.Level, r.Progress.Title)
		}
	}
}
