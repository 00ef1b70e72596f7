// Package storetest is a conformance suite every Store backend runs against
// itself.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/ruleset"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// Store is the full persistence surface a backend provides.
type Store interface {
	Create(ctx context.Context, p *player.Player) error
	Load(ctx context.Context, id int64) (*player.Player, error)
	Save(ctx context.Context, p *player.Player) error
	SaveAll(ctx context.Context, ps []*player.Player) error
	FindByHandle(ctx context.Context, handle string) (*player.Player, error)
	Top(ctx context.Context, limit int) ([]player.Standing, error)

	CreateTeam(ctx context.Context, leaderID int64, memberIDs []int64, now time.Time) (*team.Team, error)
	ListActiveTeams(ctx context.Context) ([]*team.Team, error)
	DeactivateTeam(ctx context.Context, id int64) error

	SaveInvitation(ctx context.Context, inv *team.Invitation) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error)
	TakeInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error)
	PendingInvitations(ctx context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error)
}

// Epoch is a second-aligned timestamp every backend round-trips exactly.
var Epoch = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

// NewPlayer builds a valid level-1 player for fixtures.
func NewPlayer(t *testing.T, id int64, handle string) *player.Player {
	t.Helper()
	a, ok := ruleset.Default().Archetype("luna")
	require.True(t, ok)
	p, err := player.New(id, handle, "Player "+handle, a, Epoch)
	require.NoError(t, err)
	return p
}

// Run exercises every Store operation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("CreateLoadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		p := NewPlayer(t, 100, "usagi")
		tick := Epoch.Add(-30 * time.Minute)
		p.LastEnergyTick = &tick
		p.LastDaily = "2026-03-31"
		p.Inventory = []string{"healing_herb", "moon_crystal", "healing_herb"}
		require.NoError(t, s.Create(ctx, p))

		got, err := s.Load(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, "usagi", got.Handle)
		assert.Equal(t, "luna", got.Archetype)
		assert.Equal(t, p.Gold, got.Gold)
		assert.Equal(t, p.Energy, got.Energy)
		assert.Equal(t, p.HP, got.HP)
		assert.Equal(t, "2026-03-31", got.LastDaily)
		require.NotNil(t, got.LastEnergyTick)
		assert.True(t, tick.Equal(*got.LastEnergyTick))
		assert.ElementsMatch(t, p.Inventory, got.Inventory)
		assert.True(t, Epoch.Equal(got.CreatedAt))
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewPlayer(t, 1, "a")))
		err := s.Create(ctx, NewPlayer(t, 1, "b"))
		assert.True(t, errors.Is(err, gameerr.ErrPlayerExists), "got %v", err)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, 404)
		assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound), "got %v", err)
	})

	t.Run("SaveReplacesRecord", func(t *testing.T) {
		s := newStore(t)
		p := NewPlayer(t, 7, "rei")
		p.Inventory = []string{"luna_brooch"}
		require.NoError(t, s.Create(ctx, p))

		p.Gold = 5
		p.Experience, p.Level = 60, 2
		p.Energy = 0
		p.LastEnergyTick = nil
		p.Inventory = []string{"healing_herb", "healing_herb"}
		p.UpdatedAt = Epoch.Add(time.Hour)
		require.NoError(t, s.Save(ctx, p))

		got, err := s.Load(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Gold)
		assert.Equal(t, 2, got.Level)
		assert.Equal(t, 0, got.Energy)
		assert.Nil(t, got.LastEnergyTick)
		assert.Equal(t, []string{"healing_herb", "healing_herb"}, got.Inventory)
	})

	t.Run("SaveMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(ctx, NewPlayer(t, 9, "ghost"))
		assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound), "got %v", err)
	})

	t.Run("SaveBumpsVersion", func(t *testing.T) {
		s := newStore(t)
		p := NewPlayer(t, 8, "mako")
		require.NoError(t, s.Create(ctx, p))
		require.NoError(t, s.Save(ctx, p))
		assert.Equal(t, int64(1), p.Version)
		require.NoError(t, s.Save(ctx, p), "a saved record can be saved again")

		got, err := s.Load(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("SaveRejectsStaleVersion", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewPlayer(t, 1, "usagi")))
		first, err := s.Load(ctx, 1)
		require.NoError(t, err)
		second, err := s.Load(ctx, 1)
		require.NoError(t, err)

		first.Gold -= 30
		first.Inventory = []string{"healing_herb"}
		require.NoError(t, s.Save(ctx, first))

		second.Gold -= 30
		second.Inventory = []string{"healing_herb"}
		err = s.Save(ctx, second)
		assert.True(t, errors.Is(err, gameerr.ErrConflict), "got %v", err)
		assert.Equal(t, int64(0), second.Version, "a rejected save leaves the version alone")

		got, err := s.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, player.StartingGold-30, got.Gold)
		assert.Equal(t, []string{"healing_herb"}, got.Inventory)
	})

	t.Run("SaveAllIsAllOrNothing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewPlayer(t, 1, "usagi")))
		require.NoError(t, s.Create(ctx, NewPlayer(t, 2, "rei")))
		a, err := s.Load(ctx, 1)
		require.NoError(t, err)
		b, err := s.Load(ctx, 2)
		require.NoError(t, err)

		other, err := s.Load(ctx, 2)
		require.NoError(t, err)
		other.Energy = 1
		require.NoError(t, s.Save(ctx, other))

		a.Energy, b.Energy = 4, 4
		err = s.SaveAll(ctx, []*player.Player{a, b})
		assert.True(t, errors.Is(err, gameerr.ErrConflict), "got %v", err)
		got, err := s.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, player.MaxEnergy, got.Energy, "no member is written when one is stale")
		assert.Equal(t, int64(0), a.Version)

		b, err = s.Load(ctx, 2)
		require.NoError(t, err)
		b.Energy = 0
		require.NoError(t, s.SaveAll(ctx, []*player.Player{a, b}))
		for id, want := range map[int64]int{1: 4, 2: 0} {
			got, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, got.Energy, "player %d", id)
		}
	})

	t.Run("LoadReturnsCopy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewPlayer(t, 3, "ami")))
		got, err := s.Load(ctx, 3)
		require.NoError(t, err)
		got.Gold = 0
		got.Inventory = append(got.Inventory, "moon_crystal")
		again, err := s.Load(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, player.StartingGold, again.Gold)
		assert.Empty(t, again.Inventory)
	})

	t.Run("FindByHandle", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, NewPlayer(t, 1, "Makoto")))
		got, err := s.FindByHandle(ctx, "@makoto")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)

		_, err = s.FindByHandle(ctx, "minako")
		assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
		_, err = s.FindByHandle(ctx, "")
		assert.True(t, errors.Is(err, gameerr.ErrPlayerNotFound))
	})

	t.Run("TopOrdersByLevelThenExperience", func(t *testing.T) {
		s := newStore(t)
		levels := ruleset.Default().Levels()
		xp := map[int64]int{1: 10, 2: 160, 3: 60, 4: 149, 5: 700}
		for id, x := range xp {
			p := NewPlayer(t, id, "")
			p.Experience = x
			p.Level, _ = levels.LevelFor(x)
			require.NoError(t, s.Create(ctx, p))
		}
		top, err := s.Top(ctx, 4)
		require.NoError(t, err)
		ids := make([]int64, 0, len(top))
		for _, st := range top {
			ids = append(ids, st.PlayerID)
		}
		assert.Equal(t, []int64{5, 2, 4, 3}, ids)
	})

	t.Run("Teams", func(t *testing.T) {
		s := newStore(t)
		t1, err := s.CreateTeam(ctx, 1, []int64{1, 2}, Epoch)
		require.NoError(t, err)
		t2, err := s.CreateTeam(ctx, 2, []int64{2, 3}, Epoch)
		require.NoError(t, err)
		assert.NotEqual(t, t1.ID, t2.ID)
		assert.True(t, t1.Active)
		assert.Equal(t, []int64{1, 2}, t1.MemberIDs)

		active, err := s.ListActiveTeams(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, t1.ID, active[0].ID)
		assert.Equal(t, []int64{2, 3}, active[1].MemberIDs)
		assert.Equal(t, int64(2), active[1].LeaderID)

		require.NoError(t, s.DeactivateTeam(ctx, t1.ID))
		active, err = s.ListActiveTeams(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, t2.ID, active[0].ID)

		err = s.DeactivateTeam(ctx, 99999)
		assert.True(t, errors.Is(err, gameerr.ErrTeamNotFound), "got %v", err)
	})

	t.Run("Invitations", func(t *testing.T) {
		s := newStore(t)
		inv, err := team.NewInvitation(1, 2, Epoch, time.Hour)
		require.NoError(t, err)
		stale, err := team.NewInvitation(3, 2, Epoch.Add(-2*time.Hour), time.Hour)
		require.NoError(t, err)
		require.NoError(t, s.SaveInvitation(ctx, inv))
		require.NoError(t, s.SaveInvitation(ctx, stale))

		got, err := s.GetInvitation(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.InviterID)
		assert.True(t, inv.ExpiresAt.Equal(got.ExpiresAt))

		pending, err := s.PendingInvitations(ctx, 2, Epoch.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, inv.ID, pending[0].ID)

		taken, err := s.TakeInvitation(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), taken.InviteeID)

		_, err = s.TakeInvitation(ctx, inv.ID)
		assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound), "second take must fail, got %v", err)
		_, err = s.GetInvitation(ctx, uuid.New())
		assert.True(t, errors.Is(err, gameerr.ErrInvitationNotFound))
	})
}
