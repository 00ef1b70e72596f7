package progression_test

import (
	"testing"

	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/progression"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var levels = ruleset.Default().Levels()

func fresh() *player.Player {
	return &player.Player{Level: 1, HP: 12, MaxHP: 30, Attack: 3}
}

func TestGrantExperience_LevelTwoAt60(t *testing.T) {
	p := fresh()
	res := progression.GrantExperience(p, 60, levels)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.Gained)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, "Sailor Guardian", res.Title)
	assert.Equal(t, 35, p.MaxHP)
	assert.Equal(t, 4, p.Attack)
	assert.Equal(t, 35, p.HP, "health fully restored")
}

func TestGrantExperience_MultiLevelJump(t *testing.T) {
	p := fresh()
	res := progression.GrantExperience(p, 400, levels)
	assert.Equal(t, 3, res.Gained)
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, 45, p.MaxHP)
	assert.Equal(t, 6, p.Attack)
	assert.Equal(t, 45, p.HP)
}

func TestGrantExperience_NoLevelUp(t *testing.T) {
	p := fresh()
	res := progression.GrantExperience(p, 10, levels)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 12, p.HP, "health untouched without a level-up")
}

func TestGrantExperience_PanicsOnNegative(t *testing.T) {
	assert.Panics(t, func() { progression.GrantExperience(fresh(), -1, levels) })
}

func TestSync_CorrectsStaleLevelWithoutGrowth(t *testing.T) {
	p := fresh()
	p.Level = 3
	res := progression.Sync(p, levels)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 30, p.MaxHP)
}

func TestProperty_LevelAlwaysDerived(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := fresh()
		grants := rapid.SliceOfN(rapid.IntRange(0, 200), 1, 20).Draw(t, "grants")
		prevLevel := p.Level
		for _, g := range grants {
			progression.GrantExperience(p, g, levels)
			want, _ := levels.LevelFor(p.Experience)
			if p.Level != want {
				t.Fatalf("level %d, derived %d at xp %d", p.Level, want, p.Experience)
			}
			if p.Level < prevLevel {
				t.Fatalf("level decreased from %d to %d", prevLevel, p.Level)
			}
			prevLevel = p.Level
		}
		gained := p.Level - 1
		if p.MaxHP != 30+progression.HPPerLevel*gained || p.Attack != 3+gained {
			t.Fatalf("growth mismatch: level %d max_hp %d attack %d", p.Level, p.MaxHP, p.Attack)
		}
	})
}
