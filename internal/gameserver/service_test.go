package gameserver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/game/dice"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/reward"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/cory-johannsen/sailor/internal/game/team"
	"github.com/cory-johannsen/sailor/internal/storage/memory"
	"github.com/cory-johannsen/sailor/internal/storage/redis"
	"github.com/cory-johannsen/sailor/internal/testutil"
)

var t0 = time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC)

// flakyStore fails every Save and SaveAll while failSave is set.
type flakyStore struct {
	*memory.Store
	failSave atomic.Bool
}

func (f *flakyStore) Save(ctx context.Context, p *player.Player) error {
	if f.failSave.Load() {
		return errors.New("disk unavailable")
	}
	return f.Store.Save(ctx, p)
}

func (f *flakyStore) SaveAll(ctx context.Context, ps []*player.Player) error {
	if f.failSave.Load() {
		return errors.New("disk unavailable")
	}
	return f.Store.SaveAll(ctx, ps)
}

// rendezvousStore holds the first n Loads until all n have arrived, so every
// caller reads the same version of a record before anyone writes.
type rendezvousStore struct {
	*memory.Store
	n       int32
	arrived atomic.Int32
	all     sync.WaitGroup
}

func newRendezvousStore(s *memory.Store, n int) *rendezvousStore {
	r := &rendezvousStore{Store: s, n: int32(n)}
	r.all.Add(n)
	return r
}

func (r *rendezvousStore) Load(ctx context.Context, id int64) (*player.Player, error) {
	p, err := r.Store.Load(ctx, id)
	if r.arrived.Add(1) <= r.n {
		r.all.Done()
		r.all.Wait()
	}
	return p, err
}

// countingStore counts leaderboard queries that reach the store.
type countingStore struct {
	*memory.Store
	tops atomic.Int32
}

func (c *countingStore) Top(ctx context.Context, limit int) ([]player.Standing, error) {
	c.tops.Add(1)
	return c.Store.Top(ctx, limit)
}

// lossyCache drops every Record.
type lossyCache struct {
	*redis.LeaderboardCache
}

func (lossyCache) Record(context.Context, player.Standing) error {
	return errors.New("connection reset")
}

// serviceOver wires a Service with its own Locker, as a separate process
// would have.
func serviceOver(t *testing.T, players PlayerStore, store *memory.Store, cache LeaderboardCache, values ...int) *Service {
	t.Helper()
	roller, _ := testutil.FixedDice(t, values...)
	return NewService(Deps{
		Players: players, Teams: store, Invitations: store, Leaderboard: cache,
		Catalog: ruleset.Default(), Dice: roller, Clock: clock.NewFixed(t0),
		Logger: zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)),
	}, Options{})
}

type fixture struct {
	svc   *Service
	store *flakyStore
	clk   *clock.Fixed
	src   *dice.SequenceSource
}

// newFixture wires a Service over the memory store. values are replayed as
// raw dice draws.
func newFixture(t *testing.T, values ...int) *fixture {
	t.Helper()
	roller, src := testutil.FixedDice(t, values...)
	f := &fixture{store: &flakyStore{Store: memory.New()}, clk: clock.NewFixed(t0), src: src}
	f.svc = NewService(Deps{
		Players:     f.store,
		Teams:       f.store,
		Invitations: f.store,
		Catalog:     ruleset.Default(),
		Dice:        roller,
		Clock:       f.clk,
		Logger:      zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)),
	}, Options{})
	return f
}

func (f *fixture) register(t *testing.T, id int64, handle string) *player.Player {
	t.Helper()
	p, err := f.svc.Register(context.Background(), RegisterRequest{UserID: id, Handle: handle, Name: handle, Archetype: "luna"})
	require.NoError(t, err)
	return p
}

func (f *fixture) stored(t *testing.T, id int64) *player.Player {
	t.Helper()
	p, err := f.store.Load(context.Background(), id)
	require.NoError(t, err)
	return p
}

// edit rewrites a stored player directly, bypassing the service.
func (f *fixture) edit(t *testing.T, id int64, fn func(p *player.Player)) {
	t.Helper()
	p := f.stored(t, id)
	fn(p)
	require.NoError(t, f.store.Store.Save(context.Background(), p))
}

func TestNewService_PanicsOnMissingDependency(t *testing.T) {
	assert.Panics(t, func() { NewService(Deps{}, Options{}) })
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.svc.Register(ctx, RegisterRequest{UserID: 7, Handle: "@Usagi", Name: "Usagi", Archetype: "fire"})
	require.NoError(t, err)
	assert.Equal(t, "Usagi", p.Handle)
	assert.Equal(t, 26, p.HP)
	assert.Equal(t, 5, p.Attack)
	assert.Equal(t, player.StartingGold, p.Gold)
	assert.Equal(t, player.MaxEnergy, p.Energy)
	assert.Equal(t, p, f.stored(t, 7))

	_, err = f.svc.Register(ctx, RegisterRequest{UserID: 7, Archetype: "luna"})
	assert.True(t, errors.Is(err, gameerr.ErrPlayerExists))
	assert.Equal(t, "fire", f.stored(t, 7).Archetype, "archetype never changes")

	_, err = f.svc.Register(ctx, RegisterRequest{UserID: 8, Archetype: "saturn"})
	assert.True(t, errors.Is(err, gameerr.ErrInvalidArgument))
	_, err = f.store.Load(ctx, 8)
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
}

func TestUnregisteredPlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Profile(ctx, 99)
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	_, err = f.svc.Fight(ctx, 99)
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	_, err = f.svc.TeamFight(ctx, 99)
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	_, err = f.svc.Invite(ctx, 99, "anyone")
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	_, err = f.svc.ViewTeam(ctx, 99)
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound), "got %v", err)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) {
		p.Inventory = []string{"healing_herb", "moon_crystal", "healing_herb"}
	})

	prof, err := f.svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sailor Moon", prof.Archetype.Name)
	assert.Equal(t, "Sailor Novice", prof.Title)
	assert.Equal(t, 50, prof.NextLevelXP)
	assert.False(t, prof.MaxLevel)
	require.Len(t, prof.Inventory, 2)
	assert.Equal(t, InventoryLine{ItemID: "healing_herb", Item: prof.Inventory[0].Item, Quantity: 2}, prof.Inventory[0])
	assert.Equal(t, "moon_crystal", prof.Inventory[1].ItemID)
}

func TestShop(t *testing.T) {
	f := newFixture(t)
	ids := make([]string, 0)
	for _, it := range f.svc.Shop() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"luna_brooch", "healing_herb"}, ids)
}

func TestPurchase_InsufficientGoldChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) { p.Gold = 30 })
	before := f.stored(t, 1)

	_, err := f.svc.Purchase(ctx, 1, "luna_brooch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientResource))
	assert.Equal(t, before, f.stored(t, 1))
}

func TestPurchaseAndUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")

	res, err := f.svc.Purchase(ctx, 1, "luna_brooch")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Player.Gold)
	assert.Equal(t, []string{"luna_brooch"}, f.stored(t, 1).Inventory)

	use, err := f.svc.UseItem(ctx, 1, "luna_brooch")
	require.NoError(t, err)
	assert.Equal(t, 2, use.Effect.AttackGained)
	stored := f.stored(t, 1)
	assert.Equal(t, 5, stored.Attack)
	assert.Empty(t, stored.Inventory)

	_, err = f.svc.UseItem(ctx, 1, "luna_brooch")
	assert.True(t, errors.Is(err, gameerr.ErrItemNotHeld))
	_, err = f.svc.UseItem(ctx, 1, "silver_crystal")
	assert.True(t, errors.Is(err, gameerr.ErrItemNotFound))
	_, err = f.svc.Purchase(ctx, 1, "moon_crystal")
	assert.True(t, errors.Is(err, gameerr.ErrItemNotFound), "rare items are not sold")
}

func TestFight_NoEnergyNoDrawNoWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) { p.Energy = 0 })
	before := f.stored(t, 1)
	f.clk.Advance(time.Minute)

	_, err := f.svc.Fight(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientResource))
	assert.Equal(t, before, f.stored(t, 1))
	assert.Equal(t, 0, f.src.Remaining())
}

func TestFight_WinIsPersisted(t *testing.T) {
	ctx := context.Background()
	// m1; player die 5, monster die 5; no rare drop.
	f := newFixture(t, 0, 4, 4, 50)
	f.register(t, 1, "usagi")
	f.clk.Advance(time.Minute)

	res, err := f.svc.Fight(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, "m1", res.Monster.ID)

	stored := f.stored(t, 1)
	assert.Equal(t, player.MaxEnergy-1, stored.Energy)
	assert.Equal(t, 10, stored.Experience)
	assert.Equal(t, 60, stored.Gold)
	assert.Equal(t, t0.Add(time.Minute), stored.UpdatedAt)
	assert.Equal(t, stored, res.Player)
}

func TestFight_LossStillSpendsEnergy(t *testing.T) {
	ctx := context.Background()
	// m2 (attack 3); player die 1, monster die 10; damage bonus 2.
	f := newFixture(t, 1, 0, 9, 2)
	f.register(t, 1, "usagi")

	res, err := f.svc.Fight(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Equal(t, 5, res.Damage)
	stored := f.stored(t, 1)
	assert.Equal(t, 25, stored.HP)
	assert.Equal(t, player.MaxEnergy-1, stored.Energy)
}

func TestFailedSaveKeepsPriorRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 4, 4, 50)
	f.register(t, 1, "usagi")
	before := f.stored(t, 1)

	f.store.failSave.Store(true)
	_, err := f.svc.Fight(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerr.ErrStorage))
	assert.Equal(t, before, f.stored(t, 1))

	_, err = f.svc.ClaimDaily(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrStorage))
	assert.Equal(t, before, f.stored(t, 1))
}

func TestClaimDaily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) { p.Energy = 4 })

	res, err := f.svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reward.DailyGold, res.Gold)
	assert.Equal(t, 1, res.Energy, "capped at max")
	stored := f.stored(t, 1)
	assert.Equal(t, player.StartingGold+reward.DailyGold, stored.Gold)
	assert.Equal(t, player.MaxEnergy, stored.Energy)
	assert.Equal(t, reward.DailyXP, stored.Experience)
	assert.Equal(t, "2026-09-14", stored.LastDaily)

	f.clk.Advance(10 * time.Hour)
	_, err = f.svc.ClaimDaily(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrAlreadyClaimed))
	assert.True(t, gameerr.CodeOf(err).Informational())
	assert.Equal(t, stored, f.stored(t, 1))

	f.clk.Advance(5 * time.Hour)
	_, err = f.svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", f.stored(t, 1).LastDaily)
}

func TestEnergy_RegeneratesAndWritesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) {
		p.Energy = 2
		tick := t0
		p.LastEnergyTick = &tick
	})

	f.clk.Advance(2*time.Hour + 30*time.Minute)
	res, err := f.svc.Energy(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Energy)
	assert.Equal(t, 30, res.Status.Minutes())
	assert.Equal(t, 0, res.Status.Seconds())
	stored := f.stored(t, 1)
	assert.Equal(t, 4, stored.Energy)
	assert.Equal(t, t0.Add(2*time.Hour), *stored.LastEnergyTick)

	f.clk.Advance(10 * time.Minute)
	res, err = f.svc.Energy(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Energy)
	assert.Equal(t, 20, res.Status.Minutes())
	assert.Equal(t, stored, f.stored(t, 1), "no interval elapsed, no write")
}

func TestExplore_PurseIsPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, int(reward.EventPurse))
	f.register(t, 1, "usagi")

	res, err := f.svc.Explore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reward.EventPurse, res.Event)
	assert.Equal(t, player.StartingGold+reward.ExploreGold, f.stored(t, 1).Gold)
	assert.Equal(t, player.MaxEnergy, f.stored(t, 1).Energy, "exploring is free")
}

func TestExplore_MonsterSightingWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, int(reward.EventMonster))
	f.register(t, 1, "usagi")
	before := f.stored(t, 1)
	f.clk.Advance(time.Minute)

	res, err := f.svc.Explore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reward.EventMonster, res.Event)
	assert.Equal(t, before, f.stored(t, 1))
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for id := int64(1); id <= 12; id++ {
		f.register(t, id, "p")
	}
	f.edit(t, 3, func(p *player.Player) { p.Experience, p.Level = 400, 4 })
	f.edit(t, 9, func(p *player.Player) { p.Experience, p.Level = 60, 2 })
	f.edit(t, 5, func(p *player.Player) { p.Experience, p.Level = 149, 2 })

	top, err := f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, top, DefaultLeaderboardSize)
	assert.Equal(t, int64(3), top[0].PlayerID)
	assert.Equal(t, int64(5), top[1].PlayerID)
	assert.Equal(t, int64(9), top[2].PlayerID)
	assert.Equal(t, int64(1), top[3].PlayerID)
}

func TestLeaderboard_UsesRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)
	store := &countingStore{Store: memory.New()}
	svc := serviceOver(t, store, store.Store, cache, 0, 4, 4, 50)

	for id := int64(1); id <= 3; id++ {
		_, err := svc.Register(ctx, RegisterRequest{UserID: id, Name: "p", Archetype: "luna"})
		require.NoError(t, err)
	}
	top, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int32(1), store.tops.Load(), "a cold cache falls back to the store")
	assert.True(t, mr.Exists("sailor:leaderboard:warm"))

	_, err = svc.Fight(ctx, 2)
	require.NoError(t, err)

	top, err = svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.tops.Load(), "a warm cache answers alone")
	require.Len(t, top, 3)
	assert.Equal(t, int64(2), top[0].PlayerID)
	assert.Equal(t, 10, top[0].Experience)
	assert.Equal(t, int64(1), top[1].PlayerID)
}

func TestLeaderboard_CacheNeverHidesUnseenPlayers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	plain := serviceOver(t, store, store, nil)
	for id := int64(1); id <= 3; id++ {
		_, err := plain.Register(ctx, RegisterRequest{UserID: id, Name: "p", Archetype: "luna"})
		require.NoError(t, err)
	}
	p, err := store.Load(ctx, 1)
	require.NoError(t, err)
	p.Experience, p.Level = 700, 5
	require.NoError(t, store.Save(ctx, p))

	_, client := testutil.NewMiniRedis(t)
	cached := serviceOver(t, store, store, redis.NewLeaderboardCache(client), 0, 4, 4, 50)
	_, err = cached.Fight(ctx, 3)
	require.NoError(t, err)

	top, err := cached.Leaderboard(ctx)
	require.NoError(t, err)
	want, err := store.Top(ctx, DefaultLeaderboardSize)
	require.NoError(t, err)
	assert.Equal(t, want, top)
	require.Len(t, top, 3)
	assert.Equal(t, int64(1), top[0].PlayerID)
	assert.Equal(t, int64(3), top[1].PlayerID)

	again, err := cached.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, again, "the warmed cache agrees with the store")
}

func TestLeaderboard_MissedRecordInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)
	store := &countingStore{Store: memory.New()}
	svc := serviceOver(t, store, store.Store, cache)
	_, err := svc.Register(ctx, RegisterRequest{UserID: 1, Name: "Usagi", Archetype: "luna"})
	require.NoError(t, err)
	_, err = svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("sailor:leaderboard:warm"))

	lossy := serviceOver(t, store, store.Store, lossyCache{cache})
	_, err = lossy.Register(ctx, RegisterRequest{UserID: 2, Name: "Rei", Archetype: "fire"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("sailor:leaderboard:warm"))

	top, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.tops.Load())
	assert.Len(t, top, 2, "the player the cache missed is still ranked")
}

func TestTeamLifecycle(t *testing.T) {
	ctx := context.Background()
	// no superboss; boss1 (attack 8); team die 2, boss die 1.
	f := newFixture(t, 50, 0, 1, 0)
	f.register(t, 1, "usagi")
	f.register(t, 2, "rei")
	f.edit(t, 1, func(p *player.Player) { p.Attack = 4 })
	f.edit(t, 2, func(p *player.Player) { p.Attack = 6 })

	_, err := f.svc.TeamFight(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrNotInTeam))
	_, err = f.svc.ViewTeam(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrNotInTeam))

	inv, err := f.svc.Invite(ctx, 1, "@rei")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inv.Invitee.ID)
	assert.Equal(t, t0.Add(team.DefaultInvitationTTL), inv.Invitation.ExpiresAt)

	pending, err := f.svc.PendingInvitations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inv.Invitation.ID, pending[0].ID)

	_, err = f.svc.RespondToInvitation(ctx, 1, inv.Invitation.ID, team.Accept)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound), "only the invitee may answer")

	resp, err := f.svc.RespondToInvitation(ctx, 2, inv.Invitation.ID, team.Accept)
	require.NoError(t, err)
	require.NotNil(t, resp.Team)
	assert.Equal(t, int64(1), resp.Team.LeaderID)
	assert.Equal(t, []int64{1, 2}, resp.Team.MemberIDs)

	_, err = f.svc.RespondToInvitation(ctx, 2, inv.Invitation.ID, team.Accept)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound), "answers are not replayable")

	views, err := f.svc.ViewTeam(ctx, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "usagi", views[0].Members[0].Name)
	assert.Equal(t, "rei", views[0].Members[1].Name)

	res, err := f.svc.TeamFight(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "boss1", res.Boss.ID)
	assert.Equal(t, 7, res.TeamRoll.Total())
	assert.Equal(t, 9, res.BossRoll.Total())
	assert.False(t, res.Won)
	for _, id := range []int64{1, 2} {
		p := f.stored(t, id)
		assert.Equal(t, player.MaxEnergy-1, p.Energy)
		assert.Equal(t, 0, p.Experience)
		assert.Equal(t, player.StartingGold, p.Gold)
	}

	require.NoError(t, f.svc.DeactivateTeam(ctx, resp.Team.ID))
	_, err = f.svc.TeamFight(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrNotInTeam))
	assert.True(t, errors.Is(f.svc.DeactivateTeam(ctx, 404), gameerr.ErrTeamNotFound))
}

func TestTeamFight_ExhaustedMemberBlocksEveryone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.register(t, 2, "rei")
	_, err := f.store.CreateTeam(ctx, 1, []int64{1, 2}, t0)
	require.NoError(t, err)
	f.edit(t, 2, func(p *player.Player) { p.Energy = 0 })
	before1, before2 := f.stored(t, 1), f.stored(t, 2)

	res, err := f.svc.TeamFight(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientResource))
	assert.Equal(t, []string{"rei"}, res.Exhausted)
	assert.Equal(t, before1, f.stored(t, 1))
	assert.Equal(t, before2, f.stored(t, 2))
	assert.Equal(t, 0, f.src.Remaining())
}

func TestInvite_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")

	_, err := f.svc.Invite(ctx, 1, "nobody")
	assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	_, err = f.svc.Invite(ctx, 1, "usagi")
	assert.True(t, errors.Is(err, gameerr.ErrInvalidArgument))
}

func TestRespond_DeclineAndExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.register(t, 2, "rei")

	inv, err := f.svc.Invite(ctx, 1, "rei")
	require.NoError(t, err)
	resp, err := f.svc.RespondToInvitation(ctx, 2, inv.Invitation.ID, team.Decline)
	require.NoError(t, err)
	assert.Nil(t, resp.Team)
	teams, err := f.store.ListActiveTeams(ctx)
	require.NoError(t, err)
	assert.Empty(t, teams)

	inv, err = f.svc.Invite(ctx, 1, "rei")
	require.NoError(t, err)
	f.clk.Advance(team.DefaultInvitationTTL)
	_, err = f.svc.RespondToInvitation(ctx, 2, inv.Invitation.ID, team.Accept)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationExpired))
	_, err = f.store.GetInvitation(ctx, inv.Invitation.ID)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound), "expired invitations are discarded")

	_, err = f.svc.RespondToInvitation(ctx, 2, inv.Invitation.ID, team.Decision("maybe"))
	assert.True(t, errors.Is(err, gameerr.ErrInvalidArgument))
}

func TestTeamFight_FailedSaveWritesNoMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 0, 1, 0)
	f.register(t, 1, "usagi")
	f.register(t, 2, "rei")
	_, err := f.store.CreateTeam(ctx, 1, []int64{1, 2}, t0)
	require.NoError(t, err)
	before1, before2 := f.stored(t, 1), f.stored(t, 2)

	f.store.failSave.Store(true)
	_, err = f.svc.TeamFight(ctx, 1)
	assert.True(t, errors.Is(err, gameerr.ErrStorage), "got %v", err)
	assert.Equal(t, before1, f.stored(t, 1))
	assert.Equal(t, before2, f.stored(t, 2))
}

func TestSeparateServicesNeverLoseAnUpdate(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := serviceOver(t, mem, mem, nil).Register(ctx, RegisterRequest{UserID: 1, Name: "Usagi", Archetype: "luna"})
	require.NoError(t, err)

	shared := newRendezvousStore(mem, 2)
	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		poor atomic.Int32
	)
	for range 2 {
		svc := serviceOver(t, shared, mem, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(ctx, 1, "healing_herb")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, gameerr.ErrInsufficientResource):
				poor.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), poor.Load(), "the loser reloads and sees the spent gold")
	stored, err := mem.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, player.StartingGold-30, stored.Gold)
	assert.Equal(t, []string{"healing_herb"}, stored.Inventory)
}

func TestConcurrentPurchasesNeverOverspend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, 1, "usagi")
	f.edit(t, 1, func(p *player.Player) { p.Gold = 300 })

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 15 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Purchase(ctx, 1, "healing_herb"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	stored := f.stored(t, 1)
	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, 0, stored.Gold)
	assert.Len(t, stored.Inventory, 10)
	assert.Equal(t, 0, f.svc.locker.inFlight())
}
