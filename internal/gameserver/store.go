package gameserver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// PlayerStore persists player records. Load and FindByHandle return errors
// matching gameerr.ErrPlayerNotFound for unknown players.
//
// Save and SaveAll write only records whose Version still matches the stored
// one and fail with gameerr.ErrConflict otherwise. This serializes writers
// that do not share a Locker, such as two CLI processes. SaveAll commits
// every record or none.
type PlayerStore interface {
	Create(ctx context.Context, p *player.Player) error
	Load(ctx context.Context, id int64) (*player.Player, error)
	Save(ctx context.Context, p *player.Player) error
	SaveAll(ctx context.Context, ps []*player.Player) error
	FindByHandle(ctx context.Context, handle string) (*player.Player, error)
	Top(ctx context.Context, limit int) ([]player.Standing, error)
}

// TeamStore persists teams.
type TeamStore interface {
	CreateTeam(ctx context.Context, leaderID int64, memberIDs []int64, now time.Time) (*team.Team, error)
	ListActiveTeams(ctx context.Context) ([]*team.Team, error)
	DeactivateTeam(ctx context.Context, id int64) error
}

// InvitationStore persists pending invitations. TakeInvitation deletes and
// returns in one step so an invitation is answered at most once.
type InvitationStore interface {
	SaveInvitation(ctx context.Context, inv *team.Invitation) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error)
	TakeInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error)
	PendingInvitations(ctx context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error)
}

// LeaderboardCache is an optional ranked view kept alongside the player
// store.
//
// Top reports complete=false until Warm has loaded the store's top depth
// standings for some depth >= limit, and again after Invalidate. Record never
// lowers a standing, so out-of-order writers cannot move a player down.
type LeaderboardCache interface {
	Record(ctx context.Context, st player.Standing) error
	Top(ctx context.Context, limit int) (top []player.Standing, complete bool, err error)
	Warm(ctx context.Context, top []player.Standing, depth int) error
	Invalidate(ctx context.Context) error
}
