package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/config"
	"github.com/cory-johannsen/sailor/internal/game/dice"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/cory-johannsen/sailor/internal/gameserver"
	"github.com/cory-johannsen/sailor/internal/observability"
	"github.com/cory-johannsen/sailor/internal/storage/memory"
	"github.com/cory-johannsen/sailor/internal/storage/postgres"
	"github.com/cory-johannsen/sailor/internal/storage/redis"
	"github.com/cory-johannsen/sailor/internal/storage/sqlite"
)

// app owns the service and every resource it was built from.
type app struct {
	svc     *gameserver.Service
	logger  *zap.Logger
	closers []func() error
}

func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a := &app{logger: logger}
	svc, err := a.build(ctx, cfg, clock.New())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

// build wires the service for cfg, registering a closer for every opened
// resource on a.
func (a *app) build(ctx context.Context, cfg config.Config, clk clock.Clock) (*gameserver.Service, error) {
	cat := ruleset.Default()
	if cfg.Game.CatalogPath != "" {
		loaded, err := ruleset.LoadFile(cfg.Game.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		cat = loaded
	}

	deps := gameserver.Deps{
		Catalog: cat,
		Dice:    dice.NewLoggedRoller(newSource(cfg.Game), a.logger),
		Clock:   clk,
		Logger:  a.logger,
	}
	if err := a.openStorage(ctx, cfg, clk, &deps); err != nil {
		return nil, err
	}

	a.logger.Debug("service ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.String("rng", cfg.Game.RNG),
	)
	return gameserver.NewService(deps, gameserver.Options{
		EnergyInterval:  cfg.Game.EnergyInterval,
		InvitationTTL:   cfg.Game.InvitationTTL,
		LeaderboardSize: cfg.Game.LeaderboardSize,
	}), nil
}

func newSource(g config.GameConfig) dice.Source {
	if g.RNG == "seeded" {
		return dice.NewSeededSource(g.Seed)
	}
	return dice.NewCryptoSource()
}

// openStorage fills the store fields of deps for the configured backend.
// With redis enabled, invitations and the leaderboard cache move to redis.
func (a *app) openStorage(ctx context.Context, cfg config.Config, clk clock.Clock, deps *gameserver.Deps) error {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		s := memory.New()
		deps.Players, deps.Teams, deps.Invitations = s, s, s
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		deps.Players, deps.Teams, deps.Invitations = s, s, s
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		s := postgres.NewStore(pool.DB())
		deps.Players, deps.Teams, deps.Invitations = s, s, s
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)
	deps.Invitations = redis.NewInvitationStore(client, clk)
	deps.Leaderboard = redis.NewLeaderboardCache(client)
	return nil
}

// Close releases resources in reverse order of acquisition. Safe to call
// more than once.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
