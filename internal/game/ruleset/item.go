package ruleset

// EffectKind is the programmatic effect of consuming an item.
type EffectKind int

const (
	// EffectNone marks collectibles: consuming them changes nothing.
	EffectNone EffectKind = iota
	// EffectHeal restores current health up to max.
	EffectHeal
	// EffectAttack permanently raises attack.
	EffectAttack
)

// String returns a lower-case name for the effect kind.
func (k EffectKind) String() string {
	switch k {
	case EffectHeal:
		return "heal"
	case EffectAttack:
		return "attack"
	default:
		return "none"
	}
}

// Item is an immutable catalog entry.
type Item struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	// Price of 0 means the item cannot be bought directly.
	Price       int  `yaml:"price"`
	Heal        int  `yaml:"heal"`
	AttackBonus int  `yaml:"attack_bonus"`
	Rare        bool `yaml:"rare"`
}

// Effect returns the item's effect kind.
func (i *Item) Effect() EffectKind {
	switch {
	case i.Heal > 0:
		return EffectHeal
	case i.AttackBonus > 0:
		return EffectAttack
	default:
		return EffectNone
	}
}

// Purchasable reports whether the shop sells the item.
func (i *Item) Purchasable() bool {
	return i.Price > 0
}
