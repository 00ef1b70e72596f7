package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/game/energy"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/reward"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
)

// RegisterRequest carries the transport identity of a new player.
type RegisterRequest struct {
	UserID    int64
	Handle    string
	Name      string
	Archetype string
}

// InventoryLine is one stack of identical items. Item is nil when the id is
// no longer in the catalog.
type InventoryLine struct {
	ItemID   string
	Item     *ruleset.Item
	Quantity int
}

// Profile is the read-only view of a player.
type Profile struct {
	Player    *player.Player
	Archetype *ruleset.Archetype
	Title     string
	// NextLevelXP is the experience needed for the next level; zero at MaxLevel.
	NextLevelXP int
	MaxLevel    bool
	Inventory   []InventoryLine
}

// PurchaseResult reports a completed purchase.
type PurchaseResult struct {
	Item   *ruleset.Item
	Player *player.Player
}

// UseResult reports a consumed item.
type UseResult struct {
	Item   *ruleset.Item
	Effect inventory.Effect
	Player *player.Player
}

// DailyResult reports a daily claim.
type DailyResult struct {
	reward.DailyOutcome
	Player *player.Player
}

// ExploreResult reports an exploration.
type ExploreResult struct {
	reward.ExploreOutcome
	Player *player.Player
}

// EnergyResult reports the energy clock after regeneration.
type EnergyResult struct {
	Energy int
	Max    int
	Status energy.Status
}

// Register creates a player seeded from the chosen archetype.
//
// Postcondition: an already registered id yields gameerr.ErrPlayerExists and
// the stored record is untouched; an unknown archetype yields
// gameerr.ErrInvalidArgument.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (_ *player.Player, err error) {
	log := s.commandLogger("register", req.UserID)
	defer func() { err = finish(log, err) }()

	a, ok := s.catalog.Archetype(req.Archetype)
	if !ok {
		return nil, gameerr.Newf(gameerr.CodeInvalidArgument, "unknown archetype %q", req.Archetype).
			WithMeta("archetype", req.Archetype)
	}

	unlock := s.locker.Lock(req.UserID)
	defer unlock()

	existing, err := s.players.Load(ctx, req.UserID)
	switch {
	case err == nil:
		return nil, gameerr.Newf(gameerr.CodePlayerExists, "player %d is already registered", req.UserID).
			WithMeta("name", existing.DisplayName()).
			WithMeta("archetype", existing.Archetype)
	case !errors.Is(err, gameerr.ErrPlayerNotFound):
		return nil, gameerr.Storage(err, "loading player")
	}

	p, err := player.New(req.UserID, req.Handle, req.Name, a, s.clock.Now())
	if err != nil {
		return nil, gameerr.Wrap(err, gameerr.CodeInternal, "creating player")
	}
	if err := p.Validate(s.catalog.Levels()); err != nil {
		return nil, gameerr.Wrap(err, gameerr.CodeInternal, "player record violates invariants")
	}
	if err := s.players.Create(ctx, p); err != nil {
		return nil, gameerr.Storage(err, "creating player")
	}
	s.recordStanding(ctx, log, p)
	log.Info("player registered", zap.String("archetype", a.ID))
	return p, nil
}

// Profile returns the player's current record with derived presentation data.
func (s *Service) Profile(ctx context.Context, userID int64) (_ Profile, err error) {
	log := s.commandLogger("profile", userID)
	defer func() { err = finish(log, err) }()

	p, err := s.load(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	out := Profile{Player: p, Inventory: s.inventoryLines(p)}
	out.Archetype, _ = s.catalog.Archetype(p.Archetype)
	_, out.Title = s.catalog.LevelFor(p.Experience)
	next, ok := s.catalog.Levels().NextThreshold(p.Level)
	out.NextLevelXP, out.MaxLevel = next, !ok
	return out, nil
}

// Inventory returns the player's items grouped into stacks.
func (s *Service) Inventory(ctx context.Context, userID int64) (_ []InventoryLine, err error) {
	log := s.commandLogger("inventory", userID)
	defer func() { err = finish(log, err) }()

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.inventoryLines(p), nil
}

func (s *Service) inventoryLines(p *player.Player) []InventoryLine {
	stacks := inventory.Stacks(p)
	out := make([]InventoryLine, 0, len(stacks))
	for _, st := range stacks {
		item, _ := s.catalog.Item(st.ItemID)
		out = append(out, InventoryLine{ItemID: st.ItemID, Item: item, Quantity: st.Quantity})
	}
	return out
}

// Shop lists the purchasable items in catalog order.
func (s *Service) Shop() []*ruleset.Item {
	return s.catalog.ShopItems()
}

// Purchase buys one unit of itemID.
//
// Postcondition: on error neither gold nor inventory changed.
func (s *Service) Purchase(ctx context.Context, userID int64, itemID string) (_ PurchaseResult, err error) {
	log := s.commandLogger("purchase", userID)
	defer func() { err = finish(log, err) }()

	var item *ruleset.Item
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		var err error
		item, err = inventory.Buy(p, s.catalog, itemID)
		return err == nil, err
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	log.Debug("item purchased", zap.String("item_id", item.ID), zap.Int("gold", p.Gold))
	return PurchaseResult{Item: item, Player: p}, nil
}

// UseItem consumes one held occurrence of itemID and applies its effect.
func (s *Service) UseItem(ctx context.Context, userID int64, itemID string) (_ UseResult, err error) {
	log := s.commandLogger("use", userID)
	defer func() { err = finish(log, err) }()

	var out UseResult
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		var err error
		out.Item, out.Effect, err = inventory.Use(p, s.catalog, itemID)
		return err == nil, err
	})
	if err != nil {
		return UseResult{}, err
	}
	out.Player = p
	return out, nil
}

// ClaimDaily grants the daily bonus once per UTC date.
//
// Postcondition: a repeat claim yields gameerr.ErrAlreadyClaimed and nothing
// is written.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (_ DailyResult, err error) {
	log := s.commandLogger("daily", userID)
	defer func() { err = finish(log, err) }()

	var out DailyResult
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		var err error
		out.DailyOutcome, err = reward.ClaimDaily(p, s.clock.Now(), s.catalog.Levels())
		return err == nil, err
	})
	if err != nil {
		return DailyResult{}, err
	}
	out.Player = p
	return out, nil
}

// Explore draws a random exploration event. Exploring costs no energy.
func (s *Service) Explore(ctx context.Context, userID int64) (_ ExploreResult, err error) {
	log := s.commandLogger("explore", userID)
	defer func() { err = finish(log, err) }()

	var out ExploreResult
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		out.ExploreOutcome = reward.Explore(p, s.dice, s.catalog.Levels())
		return out.XP > 0 || out.Gold > 0 || out.Damage > 0, nil
	})
	if err != nil {
		return ExploreResult{}, err
	}
	out.Player = p
	log.Debug("explored", zap.Stringer("event", out.Event))
	return out, nil
}

// Energy regenerates the player's energy and reports time to the next point.
//
// Postcondition: the record is written only when at least one interval elapsed.
func (s *Service) Energy(ctx context.Context, userID int64) (_ EnergyResult, err error) {
	log := s.commandLogger("energy", userID)
	defer func() { err = finish(log, err) }()

	var status energy.Status
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		status = energy.Restore(p, s.clock.Now(), s.energyInterval)
		return status.Changed, nil
	})
	if err != nil {
		return EnergyResult{}, err
	}
	return EnergyResult{Energy: p.Energy, Max: player.MaxEnergy, Status: status}, nil
}

// Leaderboard returns the top players by level then experience. The cache
// answers only when it holds a complete ranking; otherwise the store answers
// and its result warms the cache.
func (s *Service) Leaderboard(ctx context.Context) (_ []player.Standing, err error) {
	log := s.commandLogger("leaderboard", 0)
	defer func() { err = finish(log, err) }()

	if s.leaderboard != nil {
		top, complete, err := s.leaderboard.Top(ctx, s.leaderboardSize)
		switch {
		case err != nil:
			log.Warn("reading leaderboard cache", zap.Error(err))
		case complete:
			return top, nil
		}
	}

	top, err := s.players.Top(ctx, s.leaderboardSize)
	if err != nil {
		return nil, gameerr.Storage(err, "querying leaderboard")
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.Warm(ctx, top, s.leaderboardSize); err != nil {
			log.Warn("warming leaderboard cache", zap.Error(err))
		}
	}
	return top, nil
}
