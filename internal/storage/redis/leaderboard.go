package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/sailor/internal/game/player"
)

const (
	leaderboardKey = keyPrefix + "leaderboard"
	namesKey       = keyPrefix + "leaderboard:names"
	// warmKey holds the depth the sorted set was last warmed to. Without it
	// the set may be missing players and is not trusted.
	warmKey = keyPrefix + "leaderboard:warm"
	// levelWeight packs (level, experience) into one sorted-set score so a
	// single ZREVRANGE yields level-then-experience order.
	levelWeight = 1e9
)

// LeaderboardCache mirrors standings in a sorted set. Scores only ever rise
// (ZADD GT), matching experience, which never decreases. Equal scores are
// returned in ascending player id order, as the SQL stores do.
type LeaderboardCache struct {
	client goredis.Cmdable
}

// NewLeaderboardCache creates a LeaderboardCache.
func NewLeaderboardCache(client goredis.Cmdable) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// Score returns the sorted-set score of a standing.
//
// Precondition: 0 <= st.Experience < 1e9.
func Score(st player.Standing) float64 {
	return float64(st.Level)*levelWeight + float64(st.Experience)
}

// Record upserts one standing. A lower score than the cached one is ignored.
func (c *LeaderboardCache) Record(ctx context.Context, st player.Standing) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		addStanding(ctx, pipe, st)
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording standing: %w", err)
	}
	return nil
}

// Warm loads the store's top depth standings and marks the cache complete up
// to depth.
//
// Precondition: top must be the store's complete ranking prefix of length
// depth, or every player when there are fewer.
func (c *LeaderboardCache) Warm(ctx context.Context, top []player.Standing, depth int) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, st := range top {
			addStanding(ctx, pipe, st)
		}
		pipe.Set(ctx, warmKey, depth, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("warming leaderboard: %w", err)
	}
	return nil
}

// Invalidate marks the cache incomplete until the next Warm.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, warmKey).Err(); err != nil {
		return fmt.Errorf("invalidating leaderboard: %w", err)
	}
	return nil
}

// Top returns up to limit standings, highest first. complete is false when
// the cache was never warmed to at least limit, or has been invalidated.
func (c *LeaderboardCache) Top(ctx context.Context, limit int) (_ []player.Standing, complete bool, err error) {
	depth, err := c.client.Get(ctx, warmKey).Int()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading leaderboard marker: %w", err)
	case depth < limit:
		return nil, false, nil
	}

	zs, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reading leaderboard: %w", err)
	}
	if len(zs) == limit && limit > 0 {
		// Fetch every member tied with the last row so the cut falls on the
		// lowest ids, not on whatever order Redis keeps ties in.
		last := strconv.FormatFloat(zs[len(zs)-1].Score, 'f', -1, 64)
		zs, err = c.client.ZRevRangeByScoreWithScores(ctx, leaderboardKey, &goredis.ZRangeBy{Min: last, Max: "+inf"}).Result()
		if err != nil {
			return nil, false, fmt.Errorf("reading leaderboard ties: %w", err)
		}
	}
	out, err := c.standings(ctx, zs)
	if err != nil {
		return nil, false, err
	}
	sort.Slice(out, func(i, j int) bool { return player.RankLess(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, true, nil
}

func (c *LeaderboardCache) standings(ctx context.Context, zs []goredis.Z) ([]player.Standing, error) {
	if len(zs) == 0 {
		return []player.Standing{}, nil
	}
	members := make([]string, len(zs))
	for i, z := range zs {
		members[i], _ = z.Member.(string)
	}
	names, err := c.client.HMGet(ctx, namesKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard names: %w", err)
	}

	out := make([]player.Standing, 0, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing leaderboard member %q: %w", members[i], err)
		}
		name, _ := names[i].(string)
		score := int64(z.Score)
		out = append(out, player.Standing{
			PlayerID:   id,
			Name:       name,
			Level:      int(score / int64(levelWeight)),
			Experience: int(score % int64(levelWeight)),
		})
	}
	return out, nil
}

func addStanding(ctx context.Context, pipe goredis.Pipeliner, st player.Standing) {
	member := strconv.FormatInt(st.PlayerID, 10)
	pipe.ZAddGT(ctx, leaderboardKey, goredis.Z{Score: Score(st), Member: member})
	pipe.HSet(ctx, namesKey, member, st.Name)
}
