package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/game/combat"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// FightResult reports a solo encounter.
type FightResult struct {
	combat.FightOutcome
	Player *player.Player
}

// TeamFightResult reports a team encounter. Members are in ascending id order.
type TeamFightResult struct {
	combat.TeamFightOutcome
	Team    *team.Team
	Members []*player.Player
}

// Fight spends one energy point on a solo encounter.
//
// Postcondition: with no energy, returns gameerr.ErrInsufficientResource and
// nothing is drawn or written. Otherwise exactly one energy point is spent
// and the result persisted, win or lose.
func (s *Service) Fight(ctx context.Context, userID int64) (_ FightResult, err error) {
	log := s.commandLogger("fight", userID)
	defer func() { err = finish(log, err) }()

	var out FightResult
	p, err := s.mutate(ctx, log, userID, func(p *player.Player) (bool, error) {
		var err error
		out.FightOutcome, err = combat.ResolveFight(p, s.catalog, s.dice)
		return err == nil, err
	})
	if err != nil {
		return FightResult{}, err
	}
	out.Player = p
	log.Debug("fight resolved",
		zap.String("monster", out.Monster.ID),
		zap.Int("player_roll", out.PlayerRoll.Total()),
		zap.Int("monster_roll", out.MonsterRoll.Total()),
		zap.Bool("won", out.Won),
	)
	return out, nil
}

// TeamFight fights a boss with the lowest-numbered active team the player
// belongs to. Every member is locked in ascending id order for the duration.
//
// Postcondition: if any member is exhausted, the error matches
// gameerr.ErrInsufficientResource, the result names them in Exhausted, and no
// member is written. Otherwise every member pays one energy point and all
// members are saved together or not at all.
func (s *Service) TeamFight(ctx context.Context, userID int64) (_ TeamFightResult, err error) {
	log := s.commandLogger("teamfight", userID)
	defer func() { err = finish(log, err) }()

	if _, err := s.load(ctx, userID); err != nil {
		return TeamFightResult{}, err
	}
	teams, err := s.teams.ListActiveTeams(ctx)
	if err != nil {
		return TeamFightResult{}, gameerr.Storage(err, "listing teams")
	}
	t, ok := team.FindActiveForMember(teams, userID)
	if !ok {
		return TeamFightResult{}, gameerr.Newf(gameerr.CodeNotInTeam, "player %d is not in an active team", userID)
	}
	log = log.With(zap.Int64("team_id", t.ID))

	ids := t.SortedMemberIDs()
	unlock := s.locker.Lock(ids...)
	defer unlock()

	for attempt := 1; ; attempt++ {
		out, err := s.resolveTeamFight(ctx, log, t, ids)
		if retryWrite(log, err, attempt) {
			continue
		}
		if err != nil {
			return out, err
		}
		log.Debug("team fight resolved",
			zap.String("boss", out.Boss.ID),
			zap.Bool("superboss", out.SuperBoss),
			zap.Int("team_roll", out.TeamRoll.Total()),
			zap.Int("boss_roll", out.BossRoll.Total()),
			zap.Bool("won", out.Won),
		)
		return out, nil
	}
}

// resolveTeamFight loads the registered members, fights, and saves them as
// one unit. The caller holds every member lock.
func (s *Service) resolveTeamFight(ctx context.Context, log *zap.Logger, t *team.Team, ids []int64) (TeamFightResult, error) {
	members := make([]*player.Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.load(ctx, id)
		if errors.Is(err, gameerr.ErrPlayerNotFound) {
			log.Warn("skipping unregistered team member", zap.Int64("member_id", id))
			continue
		}
		if err != nil {
			return TeamFightResult{}, err
		}
		members = append(members, p)
	}

	out := TeamFightResult{Team: t}
	var err error
	out.TeamFightOutcome, err = combat.ResolveTeamFight(members, s.catalog, s.dice)
	if err != nil {
		if len(out.Exhausted) > 0 {
			return out, err
		}
		return TeamFightResult{}, err
	}
	if err := s.saveAll(ctx, log, members); err != nil {
		return TeamFightResult{}, err
	}
	out.Members = members
	return out, nil
}
