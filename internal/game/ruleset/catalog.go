// Package ruleset holds the immutable game catalog: archetypes, items,
// monsters, and the level table.
package ruleset

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// File is the on-disk shape of a catalog.
type File struct {
	Archetypes []*Archetype `yaml:"archetypes"`
	Items      []*Item      `yaml:"items"`
	Monsters   []*Monster   `yaml:"monsters"`
	Levels     LevelTable   `yaml:"levels"`
	RareDrop   string       `yaml:"rare_drop"`
}

// Catalog is the validated, read-only set of static game definitions.
// It is safe for concurrent use because nothing mutates it after New.
type Catalog struct {
	archetypes  []*Archetype
	archetypeBy map[string]*Archetype
	items       []*Item
	itemBy      map[string]*Item
	monsters    []*Monster
	monsterBy   map[string]*Monster
	levels      LevelTable
	rareDrop    string
}

// New validates f and builds a Catalog from it.
//
// Precondition: none; every violation is reported in the returned error.
// Postcondition: Returns a non-nil *Catalog or an error listing all violations.
func New(f File) (*Catalog, error) {
	c := &Catalog{
		archetypeBy: make(map[string]*Archetype, len(f.Archetypes)),
		itemBy:      make(map[string]*Item, len(f.Items)),
		monsterBy:   make(map[string]*Monster, len(f.Monsters)),
		levels:      append(LevelTable(nil), f.Levels...),
		rareDrop:    f.RareDrop,
	}
	var errs []string

	if len(f.Archetypes) == 0 {
		errs = append(errs, "at least one archetype is required")
	}
	for _, a := range f.Archetypes {
		if a == nil || a.ID == "" {
			errs = append(errs, "archetype id must not be empty")
			continue
		}
		if _, dup := c.archetypeBy[a.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate archetype %q", a.ID))
			continue
		}
		if a.BaseHP < 1 || a.BaseAttack < 0 {
			errs = append(errs, fmt.Sprintf("archetype %q: base_hp must be >= 1 and base_attack >= 0", a.ID))
		}
		cp := *a
		c.archetypes = append(c.archetypes, &cp)
		c.archetypeBy[a.ID] = &cp
	}

	for _, it := range f.Items {
		if it == nil || it.ID == "" {
			errs = append(errs, "item id must not be empty")
			continue
		}
		if _, dup := c.itemBy[it.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate item %q", it.ID))
			continue
		}
		if it.Price < 0 || it.Heal < 0 || it.AttackBonus < 0 {
			errs = append(errs, fmt.Sprintf("item %q: price, heal, and attack_bonus must be >= 0", it.ID))
		}
		if it.Heal > 0 && it.AttackBonus > 0 {
			errs = append(errs, fmt.Sprintf("item %q: an item has at most one effect", it.ID))
		}
		cp := *it
		c.items = append(c.items, &cp)
		c.itemBy[it.ID] = &cp
	}

	entry, bosses := false, false
	for _, m := range f.Monsters {
		if m == nil || m.ID == "" {
			errs = append(errs, "monster id must not be empty")
			continue
		}
		if _, dup := c.monsterBy[m.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate monster %q", m.ID))
			continue
		}
		if m.HP < 1 || m.Attack < 0 || m.RewardXP < 0 || m.RewardGold < 0 {
			errs = append(errs, fmt.Sprintf("monster %q: hp must be >= 1 and attack and rewards >= 0", m.ID))
		}
		switch m.Tier() {
		case TierRegular:
			if m.MinLevel <= 1 {
				entry = true
			}
		case TierBoss:
			bosses = true
		}
		cp := *m
		c.monsters = append(c.monsters, &cp)
		c.monsterBy[m.ID] = &cp
	}
	if !entry {
		errs = append(errs, "at least one regular monster with min_level <= 1 is required")
	}
	if !bosses {
		errs = append(errs, "at least one boss is required")
	}

	if len(f.Levels) == 0 {
		errs = append(errs, "level table must not be empty")
	} else {
		if f.Levels[0].Threshold != 0 {
			errs = append(errs, "level table must start at threshold 0")
		}
		for i := 1; i < len(f.Levels); i++ {
			if f.Levels[i].Threshold <= f.Levels[i-1].Threshold {
				errs = append(errs, fmt.Sprintf("level table must be strictly ascending at row %d", i+1))
			}
		}
	}

	if f.RareDrop == "" {
		errs = append(errs, "rare_drop must name an item")
	} else if _, ok := c.itemBy[f.RareDrop]; !ok {
		errs = append(errs, fmt.Sprintf("rare_drop %q is not a known item", f.RareDrop))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Parse decodes a YAML catalog and validates it.
//
// Postcondition: Returns a non-nil *Catalog or a non-nil error.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f)
}

// LoadFile reads and validates the YAML catalog at path.
//
// Precondition: path must be a readable file.
// Postcondition: Returns a non-nil *Catalog or a non-nil error.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Default returns the built-in catalog.
//
// Postcondition: Returns a non-nil, valid *Catalog. Panics if the embedded
// catalog is malformed, which is a build defect.
func Default() *Catalog {
	c, err := Parse(builtinCatalog)
	if err != nil {
		panic(fmt.Sprintf("ruleset.Default: embedded catalog invalid: %v", err))
	}
	return c
}

// Archetype returns the archetype with the given id.
func (c *Catalog) Archetype(id string) (*Archetype, bool) {
	a, ok := c.archetypeBy[id]
	return a, ok
}

// Archetypes returns all archetypes in catalog order.
func (c *Catalog) Archetypes() []*Archetype {
	return append([]*Archetype(nil), c.archetypes...)
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.itemBy[id]
	return it, ok
}

// Items returns every item in catalog order.
func (c *Catalog) Items() []*Item {
	return append([]*Item(nil), c.items...)
}

// ShopItems returns the purchasable items in catalog order.
//
// Postcondition: every returned item has Price > 0.
func (c *Catalog) ShopItems() []*Item {
	var out []*Item
	for _, it := range c.items {
		if it.Purchasable() {
			out = append(out, it)
		}
	}
	return out
}

// Monster returns the monster with the given id.
func (c *Catalog) Monster(id string) (*Monster, bool) {
	m, ok := c.monsterBy[id]
	return m, ok
}

// MonstersUpToLevel returns every monster, of any tier, whose MinLevel does
// not exceed maxLevel, in catalog order.
func (c *Catalog) MonstersUpToLevel(maxLevel int) []*Monster {
	var out []*Monster
	for _, m := range c.monsters {
		if m.MinLevel <= maxLevel {
			out = append(out, m)
		}
	}
	return out
}

// Bosses returns the boss-tier monsters in catalog order.
func (c *Catalog) Bosses() []*Monster {
	return c.byTier(TierBoss)
}

// SuperBosses returns the super-boss-tier monsters in catalog order.
func (c *Catalog) SuperBosses() []*Monster {
	return c.byTier(TierSuperBoss)
}

func (c *Catalog) byTier(t Tier) []*Monster {
	var out []*Monster
	for _, m := range c.monsters {
		if m.Tier() == t {
			out = append(out, m)
		}
	}
	return out
}

// Levels returns the level table.
func (c *Catalog) Levels() LevelTable {
	return c.levels
}

// LevelFor derives (level, title) from total experience.
func (c *Catalog) LevelFor(xp int) (int, string) {
	return c.levels.LevelFor(xp)
}

// RareDrop returns the item granted by rare drops.
//
// Postcondition: Returns a non-nil item; New guarantees it exists.
func (c *Catalog) RareDrop() *Item {
	return c.itemBy[c.rareDrop]
}

// RareDropItemID returns the id of the rare drop item.
func (c *Catalog) RareDropItemID() string {
	return c.rareDrop
}
