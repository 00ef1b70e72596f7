package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/config"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
	"github.com/cory-johannsen/sailor/internal/storage/redis"
	"github.com/cory-johannsen/sailor/internal/testutil"
)

var epoch = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewClient(t *testing.T) {
	mr, _ := testutil.NewMiniRedis(t)
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = redis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestInvitationStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewMiniRedis(t)
	clk := clock.NewFixed(epoch)
	store := redis.NewInvitationStore(client, clk)

	inv, err := team.NewInvitation(1, 2, epoch, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.SaveInvitation(ctx, inv))
	assert.Equal(t, time.Hour, mr.TTL("sailor:invitation:"+inv.ID.String()))

	got, err := store.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InviterID, got.InviterID)
	assert.True(t, inv.ExpiresAt.Equal(got.ExpiresAt))

	pending, err := store.PendingInvitations(ctx, 2, epoch)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	taken, err := store.TakeInvitation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, taken.ID)

	_, err = store.TakeInvitation(ctx, inv.ID)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound))
	pending, err = store.PendingInvitations(ctx, 2, epoch)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInvitationStore_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewMiniRedis(t)
	store := redis.NewInvitationStore(client, clock.NewFixed(epoch))

	inv, err := team.NewInvitation(1, 2, epoch, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.SaveInvitation(ctx, inv))

	mr.FastForward(2 * time.Minute)
	_, err = store.GetInvitation(ctx, inv.ID)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound))

	pending, err := store.PendingInvitations(ctx, 2, epoch.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, pending)
	members, err := client.SMembers(ctx, "sailor:invitee:2").Result()
	require.NoError(t, err)
	assert.Empty(t, members, "stale index entries are pruned")
}

func TestInvitationStore_AlreadyExpiredIsNotStored(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewMiniRedis(t)
	store := redis.NewInvitationStore(client, clock.NewFixed(epoch))

	inv, err := team.NewInvitation(1, 2, epoch.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.SaveInvitation(ctx, inv))
	_, err = store.GetInvitation(ctx, inv.ID)
	assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound))
}

func TestLeaderboardCache(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)

	standings := []player.Standing{
		{PlayerID: 2, Name: "Rei", Level: 3, Experience: 150},
		{PlayerID: 3, Name: "Ami", Level: 2, Experience: 140},
		{PlayerID: 1, Name: "Usagi", Level: 2, Experience: 60},
	}
	for _, st := range standings {
		require.NoError(t, cache.Record(ctx, st))
	}
	_, complete, err := cache.Top(ctx, 2)
	require.NoError(t, err)
	assert.False(t, complete, "records alone never make the cache complete")

	require.NoError(t, cache.Warm(ctx, standings, 3))
	require.NoError(t, cache.Record(ctx, player.Standing{PlayerID: 1, Name: "Usagi", Level: 4, Experience: 400}))

	top, complete, err := cache.Top(ctx, 2)
	require.NoError(t, err)
	require.True(t, complete)
	assert.Equal(t, []player.Standing{
		{PlayerID: 1, Name: "Usagi", Level: 4, Experience: 400},
		{PlayerID: 2, Name: "Rei", Level: 3, Experience: 150},
	}, top)

	_, complete, err = cache.Top(ctx, 5)
	require.NoError(t, err)
	assert.False(t, complete, "warmed to depth 3 only")
}

func TestLeaderboardCache_NeverLowersAStanding(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)

	require.NoError(t, cache.Record(ctx, player.Standing{PlayerID: 1, Name: "Usagi", Level: 3, Experience: 200}))
	stale := []player.Standing{{PlayerID: 1, Name: "Usagi", Level: 2, Experience: 60}}
	require.NoError(t, cache.Warm(ctx, stale, 1))

	top, complete, err := cache.Top(ctx, 1)
	require.NoError(t, err)
	require.True(t, complete)
	assert.Equal(t, 3, top[0].Level)
	assert.Equal(t, 200, top[0].Experience)
}

func TestLeaderboardCache_TiesOrderedByPlayerID(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)

	var all []player.Standing
	for _, id := range []int64{10, 9, 100, 2} {
		all = append(all, player.Standing{PlayerID: id, Level: 1})
	}
	all = append(all, player.Standing{PlayerID: 50, Level: 2})
	require.NoError(t, cache.Warm(ctx, all, 10))

	top, complete, err := cache.Top(ctx, 3)
	require.NoError(t, err)
	require.True(t, complete)
	ids := make([]int64, 0, len(top))
	for _, st := range top {
		ids = append(ids, st.PlayerID)
	}
	assert.Equal(t, []int64{50, 2, 9}, ids)
}

func TestLeaderboardCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)

	require.NoError(t, cache.Warm(ctx, []player.Standing{{PlayerID: 1, Level: 1}}, 10))
	assert.True(t, mr.Exists("sailor:leaderboard:warm"))
	require.NoError(t, cache.Invalidate(ctx))

	_, complete, err := cache.Top(ctx, 10)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, cache.Warm(ctx, []player.Standing{{PlayerID: 1, Level: 1}}, 10))
	mr.FlushAll()
	_, complete, err = cache.Top(ctx, 10)
	require.NoError(t, err)
	assert.False(t, complete, "a flushed cache is cold")
}

func TestLeaderboardCache_EmptyWarmIsComplete(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewMiniRedis(t)
	cache := redis.NewLeaderboardCache(client)

	require.NoError(t, cache.Warm(ctx, nil, 10))
	top, complete, err := cache.Top(ctx, 10)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Empty(t, top)
}

func TestProperty_ScoreOrdersLevelThenExperience(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := player.Standing{Level: rapid.IntRange(1, 50).Draw(t, "la"), Experience: rapid.IntRange(0, 1_000_000).Draw(t, "xa")}
		b := player.Standing{Level: rapid.IntRange(1, 50).Draw(t, "lb"), Experience: rapid.IntRange(0, 1_000_000).Draw(t, "xb")}
		if a.Level == b.Level && a.Experience == b.Experience {
			return
		}
		aFirst := a.Level > b.Level || (a.Level == b.Level && a.Experience > b.Experience)
		if aFirst != (redis.Score(a) > redis.Score(b)) {
			t.Fatalf("score order disagrees for %+v vs %+v", a, b)
		}
	})
}
