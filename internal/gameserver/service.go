// Package gameserver exposes one method per game command. Each method loads
// the acting player, runs the pure game engines against a private copy, and
// persists the copy only when the command succeeds.
package gameserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/game/combat"
	"github.com/cory-johannsen/sailor/internal/game/energy"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/cory-johannsen/sailor/internal/game/team"
	"github.com/cory-johannsen/sailor/internal/observability"
)

const (
	// DefaultLeaderboardSize is the number of standings Leaderboard returns.
	DefaultLeaderboardSize = 10
	// maxWriteAttempts bounds how often a command is rerun after losing a
	// version race to another writer.
	maxWriteAttempts = 3
)

// Deps are the collaborators a Service needs. Leaderboard is optional.
type Deps struct {
	Players     PlayerStore
	Teams       TeamStore
	Invitations InvitationStore
	Leaderboard LeaderboardCache
	Catalog     *ruleset.Catalog
	Dice        combat.Roller
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Options are gameplay tunables. Zero values select the defaults.
type Options struct {
	EnergyInterval  time.Duration
	InvitationTTL   time.Duration
	LeaderboardSize int
}

// Service runs game commands.
type Service struct {
	players     PlayerStore
	teams       TeamStore
	invitations InvitationStore
	leaderboard LeaderboardCache
	catalog     *ruleset.Catalog
	dice        combat.Roller
	clock       clock.Clock
	logger      *zap.Logger
	locker      *Locker

	energyInterval  time.Duration
	invitationTTL   time.Duration
	leaderboardSize int
}

// NewService wires a Service.
//
// Precondition: every field of deps except Leaderboard must be non-nil.
// Postcondition: Returns a non-nil Service; panics on a missing dependency.
func NewService(deps Deps, opts Options) *Service {
	switch {
	case deps.Players == nil:
		panic("gameserver: nil PlayerStore")
	case deps.Teams == nil:
		panic("gameserver: nil TeamStore")
	case deps.Invitations == nil:
		panic("gameserver: nil InvitationStore")
	case deps.Catalog == nil:
		panic("gameserver: nil Catalog")
	case deps.Dice == nil:
		panic("gameserver: nil Roller")
	case deps.Clock == nil:
		panic("gameserver: nil Clock")
	case deps.Logger == nil:
		panic("gameserver: nil Logger")
	}
	if opts.EnergyInterval <= 0 {
		opts.EnergyInterval = energy.DefaultInterval
	}
	if opts.InvitationTTL <= 0 {
		opts.InvitationTTL = team.DefaultInvitationTTL
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = DefaultLeaderboardSize
	}
	return &Service{
		players:         deps.Players,
		teams:           deps.Teams,
		invitations:     deps.Invitations,
		leaderboard:     deps.Leaderboard,
		catalog:         deps.Catalog,
		dice:            deps.Dice,
		clock:           deps.Clock,
		logger:          deps.Logger,
		locker:          NewLocker(),
		energyInterval:  opts.EnergyInterval,
		invitationTTL:   opts.InvitationTTL,
		leaderboardSize: opts.LeaderboardSize,
	}
}

// Catalog returns the catalog the service plays with.
func (s *Service) Catalog() *ruleset.Catalog {
	return s.catalog
}

func (s *Service) commandLogger(command string, userID int64) *zap.Logger {
	return observability.ForCommand(s.logger, command, userID)
}

// mutate runs fn against a private copy of the player while holding the
// player's lock. The copy is saved only when fn succeeds and reports a change;
// on any failure the stored record stays the source of truth. When another
// writer saved the player in between, the record is reloaded and fn rerun.
func (s *Service) mutate(ctx context.Context, log *zap.Logger, id int64, fn func(p *player.Player) (bool, error)) (*player.Player, error) {
	unlock := s.locker.Lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		p, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		changed, err := fn(p)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}
		err = s.save(ctx, log, p)
		if retryWrite(log, err, attempt) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// retryWrite reports whether a failed write lost a version race and may be
// attempted again.
func retryWrite(log *zap.Logger, err error, attempt int) bool {
	if !errors.Is(err, gameerr.ErrConflict) || attempt >= maxWriteAttempts {
		return false
	}
	log.Info("record changed concurrently, retrying", zap.Int("attempt", attempt), zap.Error(err))
	return true
}

func (s *Service) load(ctx context.Context, id int64) (*player.Player, error) {
	p, err := s.players.Load(ctx, id)
	if err != nil {
		return nil, gameerr.Storage(err, "loading player")
	}
	return p, nil
}

// save validates p, stamps it, and writes it through. A successful write is
// mirrored to the leaderboard cache.
func (s *Service) save(ctx context.Context, log *zap.Logger, p *player.Player) error {
	return s.saveAll(ctx, log, []*player.Player{p})
}

// saveAll validates and writes ps as one unit.
func (s *Service) saveAll(ctx context.Context, log *zap.Logger, ps []*player.Player) error {
	now := s.clock.Now()
	for _, p := range ps {
		if err := p.Validate(s.catalog.Levels()); err != nil {
			log.Error("refusing to persist invalid player", zap.Int64("player_id", p.ID), zap.Error(err))
			return gameerr.Wrap(err, gameerr.CodeInternal, "player record violates invariants")
		}
		p.UpdatedAt = now
	}
	var err error
	if len(ps) == 1 {
		err = s.players.Save(ctx, ps[0])
	} else {
		err = s.players.SaveAll(ctx, ps)
	}
	if err != nil {
		if !errors.Is(err, gameerr.ErrConflict) {
			log.Error("saving players", zap.Int("count", len(ps)), zap.Error(err))
		}
		return gameerr.Storage(err, "saving player")
	}
	for _, p := range ps {
		s.recordStanding(ctx, log, p)
	}
	return nil
}

// recordStanding mirrors p into the leaderboard cache. A cache that missed a
// write no longer holds a complete ranking, so it is invalidated.
func (s *Service) recordStanding(ctx context.Context, log *zap.Logger, p *player.Player) {
	if s.leaderboard == nil {
		return
	}
	err := s.leaderboard.Record(ctx, p.Standing())
	if err == nil {
		return
	}
	log.Warn("updating leaderboard cache", zap.Int64("player_id", p.ID), zap.Error(err))
	if err := s.leaderboard.Invalidate(ctx); err != nil {
		log.Error("invalidating leaderboard cache", zap.Error(err))
	}
}

// finish logs the outcome of a command and passes err through.
func finish(log *zap.Logger, err error) error {
	if err == nil {
		log.Debug("command completed")
		return nil
	}
	code := gameerr.CodeOf(err)
	switch {
	case code == gameerr.CodeStorage || code == gameerr.CodeInternal:
		log.Error("command failed", zap.String("code", code.String()), zap.Error(err))
	case code.Informational():
		log.Info("command declined", zap.String("code", code.String()))
	default:
		log.Warn("command rejected", zap.String("code", code.String()), zap.Error(err))
	}
	return err
}
