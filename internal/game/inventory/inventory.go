// Package inventory implements item acquisition, consumption, and purchases
// over a player's inventory multiset.
package inventory

import (
	"sort"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

// AddItem appends one occurrence of itemID. It always succeeds.
//
// Precondition: p must be non-nil.
func AddItem(p *player.Player, itemID string) {
	p.Inventory = append(p.Inventory, itemID)
}

// ConsumeItem removes at most one occurrence of itemID.
//
// Precondition: p must be non-nil.
// Postcondition: Returns false and leaves the inventory unchanged if itemID
// is absent.
func ConsumeItem(p *player.Player, itemID string) bool {
	for i, id := range p.Inventory {
		if id == itemID {
			p.Inventory = append(p.Inventory[:i:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of occurrences of itemID.
func Count(p *player.Player, itemID string) int {
	n := 0
	for _, id := range p.Inventory {
		if id == itemID {
			n++
		}
	}
	return n
}

// Stack is one distinct item id with its multiplicity.
type Stack struct {
	ItemID   string
	Quantity int
}

// Stacks groups the inventory by item id, sorted by id.
//
// Postcondition: the sum of quantities equals len(p.Inventory).
func Stacks(p *player.Player) []Stack {
	counts := make(map[string]int)
	for _, id := range p.Inventory {
		counts[id]++
	}
	out := make([]Stack, 0, len(counts))
	for id, n := range counts {
		out = append(out, Stack{ItemID: id, Quantity: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Effect describes what consuming an item did.
type Effect struct {
	Kind         ruleset.EffectKind
	Healed       int
	AttackGained int
}

// ApplyEffect applies item to p. Heals stop at max health, attack bonuses are
// permanent, collectibles do nothing.
//
// Precondition: p and item must be non-nil.
// Postcondition: 0 <= p.HP <= p.MaxHP when it held before the call.
func ApplyEffect(p *player.Player, item *ruleset.Item) Effect {
	eff := Effect{Kind: item.Effect()}
	switch eff.Kind {
	case ruleset.EffectHeal:
		before := p.HP
		p.HP = min(p.MaxHP, p.HP+item.Heal)
		eff.Healed = p.HP - before
	case ruleset.EffectAttack:
		p.Attack += item.AttackBonus
		eff.AttackGained = item.AttackBonus
	}
	return eff
}

// Purchase debits item.Price and adds the item.
//
// Precondition: p and item must be non-nil.
// Postcondition: on error p is unchanged. Items with price 0 are not sold and
// yield gameerr.ErrItemNotFound; short funds yield
// gameerr.ErrInsufficientResource.
func Purchase(p *player.Player, item *ruleset.Item) error {
	if !item.Purchasable() {
		return gameerr.Newf(gameerr.CodeItemNotFound, "item %q is not sold in the shop", item.ID).
			WithMeta("item_id", item.ID)
	}
	if p.Gold < item.Price {
		return gameerr.InsufficientGold(p.Gold, item.Price).WithMeta("item_id", item.ID)
	}
	p.Gold -= item.Price
	AddItem(p, item.ID)
	return nil
}

// Buy looks itemID up in the catalog and purchases it.
//
// Postcondition: on error p is unchanged.
func Buy(p *player.Player, cat *ruleset.Catalog, itemID string) (*ruleset.Item, error) {
	item, ok := cat.Item(itemID)
	if !ok {
		return nil, gameerr.Newf(gameerr.CodeItemNotFound, "unknown item %q", itemID).WithMeta("item_id", itemID)
	}
	if err := Purchase(p, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Use consumes one held occurrence of itemID and applies its effect.
//
// Postcondition: on error p is unchanged. Unknown ids yield
// gameerr.ErrItemNotFound; ids not held yield gameerr.ErrItemNotHeld.
func Use(p *player.Player, cat *ruleset.Catalog, itemID string) (*ruleset.Item, Effect, error) {
	item, ok := cat.Item(itemID)
	if !ok {
		return nil, Effect{}, gameerr.Newf(gameerr.CodeItemNotFound, "unknown item %q", itemID).WithMeta("item_id", itemID)
	}
	if !ConsumeItem(p, itemID) {
		return nil, Effect{}, gameerr.Newf(gameerr.CodeItemNotHeld, "item %q is not in the inventory", itemID).WithMeta("item_id", itemID)
	}
	return item, ApplyEffect(p, item), nil
}
