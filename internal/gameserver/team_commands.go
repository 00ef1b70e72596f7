package gameserver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// InviteResult reports a stored invitation and who it was sent to.
type InviteResult struct {
	Invitation *team.Invitation
	Invitee    *player.Player
}

// ResponseResult reports an answered invitation. Team is set on accept.
type ResponseResult struct {
	Decision   team.Decision
	Invitation *team.Invitation
	Team       *team.Team
}

// TeamView is one active team with its members' standings in team order.
// Members that are no longer registered are reported by id only.
type TeamView struct {
	Team    *team.Team
	Members []player.Standing
}

// Invite proposes a two-player team to the player registered under handle.
//
// Postcondition: an unknown handle yields gameerr.ErrPlayerNotFound and
// inviting oneself yields gameerr.ErrInvalidArgument; nothing is stored.
func (s *Service) Invite(ctx context.Context, userID int64, handle string) (_ InviteResult, err error) {
	log := s.commandLogger("invite", userID)
	defer func() { err = finish(log, err) }()

	if _, err := s.load(ctx, userID); err != nil {
		return InviteResult{}, err
	}
	target, err := s.players.FindByHandle(ctx, handle)
	if err != nil {
		return InviteResult{}, gameerr.Storage(err, "finding invitee")
	}
	inv, err := team.NewInvitation(userID, target.ID, s.clock.Now(), s.invitationTTL)
	if err != nil {
		return InviteResult{}, err
	}
	if err := s.invitations.SaveInvitation(ctx, inv); err != nil {
		return InviteResult{}, gameerr.Storage(err, "saving invitation")
	}
	log.Debug("invitation sent", zap.Stringer("invitation_id", inv.ID), zap.Int64("invitee_id", target.ID))
	return InviteResult{Invitation: inv, Invitee: target}, nil
}

// PendingInvitations lists the unexpired invitations addressed to the player,
// oldest first.
func (s *Service) PendingInvitations(ctx context.Context, userID int64) (_ []*team.Invitation, err error) {
	log := s.commandLogger("invitations", userID)
	defer func() { err = finish(log, err) }()

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.invitations.PendingInvitations(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, gameerr.Storage(err, "listing invitations")
	}
	return out, nil
}

// RespondToInvitation accepts or declines an invitation addressed to the
// player. Accepting creates an active team of exactly the inviter and the
// invitee. The invitation is consumed either way, so a replayed answer fails
// with gameerr.ErrInvitationNotFound.
//
// Postcondition: only the invitee may answer; anyone else gets
// gameerr.ErrInvitationNotFound. An expired invitation is discarded and
// yields gameerr.ErrInvitationExpired.
func (s *Service) RespondToInvitation(ctx context.Context, userID int64, invitationID uuid.UUID, decision team.Decision) (_ ResponseResult, err error) {
	log := s.commandLogger("respond", userID).With(zap.Stringer("invitation_id", invitationID))
	defer func() { err = finish(log, err) }()

	if decision != team.Accept && decision != team.Decline {
		return ResponseResult{}, gameerr.Newf(gameerr.CodeInvalidArgument, "unknown decision %q", decision)
	}
	if _, err := s.load(ctx, userID); err != nil {
		return ResponseResult{}, err
	}
	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return ResponseResult{}, gameerr.Storage(err, "loading invitation")
	}
	now := s.clock.Now()
	if err := inv.CheckResponder(userID, now); err != nil {
		if errors.Is(err, gameerr.ErrInvitationExpired) {
			if _, takeErr := s.invitations.TakeInvitation(ctx, invitationID); takeErr != nil && !errors.Is(takeErr, gameerr.ErrInvitationNotFound) {
				log.Warn("discarding expired invitation", zap.Error(takeErr))
			}
		}
		return ResponseResult{}, err
	}
	inv, err = s.invitations.TakeInvitation(ctx, invitationID)
	if err != nil {
		return ResponseResult{}, gameerr.Storage(err, "claiming invitation")
	}

	out := ResponseResult{Decision: decision, Invitation: inv}
	if decision == team.Decline {
		log.Debug("invitation declined", zap.Int64("inviter_id", inv.InviterID))
		return out, nil
	}
	out.Team, err = s.teams.CreateTeam(ctx, inv.InviterID, inv.Members(), now)
	if err != nil {
		return ResponseResult{}, gameerr.Storage(err, "creating team")
	}
	log.Info("team formed", zap.Int64("team_id", out.Team.ID), zap.Int64("inviter_id", inv.InviterID))
	return out, nil
}

// ViewTeam lists every active team the player belongs to, lowest id first.
//
// Postcondition: yields gameerr.ErrPlayerNotFound for an unregistered caller
// and gameerr.ErrNotInTeam when there is no team.
func (s *Service) ViewTeam(ctx context.Context, userID int64) (_ []TeamView, err error) {
	log := s.commandLogger("team", userID)
	defer func() { err = finish(log, err) }()

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	teams, err := s.teams.ListActiveTeams(ctx)
	if err != nil {
		return nil, gameerr.Storage(err, "listing teams")
	}
	mine := team.ActiveForMember(teams, userID)
	if len(mine) == 0 {
		return nil, gameerr.Newf(gameerr.CodeNotInTeam, "player %d is not in an active team", userID)
	}

	out := make([]TeamView, 0, len(mine))
	for _, t := range mine {
		view := TeamView{Team: t, Members: make([]player.Standing, 0, len(t.MemberIDs))}
		for _, id := range t.MemberIDs {
			p, err := s.players.Load(ctx, id)
			switch {
			case err == nil:
				view.Members = append(view.Members, p.Standing())
			case errors.Is(err, gameerr.ErrPlayerNotFound):
				view.Members = append(view.Members, player.Standing{PlayerID: id})
			default:
				return nil, gameerr.Storage(err, "loading team member")
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// DeactivateTeam removes a team from team-combat lookups. It is an
// administrative action; no player record changes.
//
// Postcondition: an unknown id yields gameerr.ErrTeamNotFound.
func (s *Service) DeactivateTeam(ctx context.Context, teamID int64) (err error) {
	log := s.commandLogger("deactivate-team", 0).With(zap.Int64("team_id", teamID))
	defer func() { err = finish(log, err) }()

	if err := s.teams.DeactivateTeam(ctx, teamID); err != nil {
		return gameerr.Storage(err, "deactivating team")
	}
	log.Info("team deactivated")
	return nil
}
