// Package memory provides an in-process Store used by tests and the memory
// backend. Records are cloned on every read and write so callers never share
// state with the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// Store holds players, teams, and invitations in maps guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	players     map[int64]*player.Player
	teams       map[int64]*team.Team
	invitations map[uuid.UUID]*team.Invitation
	nextTeamID  int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		players:     make(map[int64]*player.Player),
		teams:       make(map[int64]*team.Team),
		invitations: make(map[uuid.UUID]*team.Invitation),
	}
}

// Create inserts a new player.
//
// Postcondition: returns gameerr.ErrPlayerExists if the id is taken.
func (s *Store) Create(_ context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return gameerr.Newf(gameerr.CodePlayerExists, "player %d already registered", p.ID)
	}
	s.players[p.ID] = p.Clone()
	return nil
}

// Load returns a copy of the player.
func (s *Store) Load(_ context.Context, id int64) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, gameerr.Newf(gameerr.CodePlayerNotFound, "player %d not found", id)
	}
	return p.Clone(), nil
}

// Save replaces the stored player when p.Version matches, then bumps
// p.Version.
//
// Postcondition: returns gameerr.ErrConflict on a version mismatch and
// gameerr.ErrPlayerNotFound for an unknown id; the store is unchanged.
func (s *Store) Save(_ context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(p); err != nil {
		return err
	}
	s.put(p)
	return nil
}

// SaveAll replaces every player or none of them.
func (s *Store) SaveAll(_ context.Context, ps []*player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		if err := s.checkVersion(p); err != nil {
			return err
		}
	}
	for _, p := range ps {
		s.put(p)
	}
	return nil
}

func (s *Store) checkVersion(p *player.Player) error {
	cur, ok := s.players[p.ID]
	if !ok {
		return gameerr.Newf(gameerr.CodePlayerNotFound, "player %d not found", p.ID)
	}
	if cur.Version != p.Version {
		return gameerr.StaleWrite(p.ID, p.Version)
	}
	return nil
}

func (s *Store) put(p *player.Player) {
	p.Version++
	s.players[p.ID] = p.Clone()
}

// FindByHandle returns the most recently updated player with the handle.
func (s *Store) FindByHandle(_ context.Context, handle string) (*player.Player, error) {
	handle = player.NormalizeHandle(handle)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *player.Player
	if handle != "" {
		for _, p := range s.players {
			if !strings.EqualFold(p.Handle, handle) {
				continue
			}
			if found == nil || p.UpdatedAt.After(found.UpdatedAt) {
				found = p
			}
		}
	}
	if found == nil {
		return nil, gameerr.Newf(gameerr.CodePlayerNotFound, "no player with handle %q", handle)
	}
	return found.Clone(), nil
}

// Top returns up to limit standings ordered by level then experience.
func (s *Store) Top(_ context.Context, limit int) ([]player.Standing, error) {
	s.mu.RLock()
	out := make([]player.Standing, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Standing())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return player.RankLess(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateTeam stores a new active team and assigns its id.
func (s *Store) CreateTeam(_ context.Context, leaderID int64, memberIDs []int64, now time.Time) (*team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTeamID++
	t := &team.Team{
		ID:        s.nextTeamID,
		LeaderID:  leaderID,
		MemberIDs: append([]int64(nil), memberIDs...),
		Active:    true,
		CreatedAt: now,
	}
	s.teams[t.ID] = t
	return t.Clone(), nil
}

// ListActiveTeams returns every active team ordered by id.
func (s *Store) ListActiveTeams(_ context.Context) ([]*team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*team.Team
	for _, t := range s.teams {
		if t.Active {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeactivateTeam marks a team inactive.
func (s *Store) DeactivateTeam(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return gameerr.Newf(gameerr.CodeTeamNotFound, "team %d not found", id)
	}
	t.Active = false
	return nil
}

// SaveInvitation stores inv until it is taken.
func (s *Store) SaveInvitation(_ context.Context, inv *team.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invitations[inv.ID] = &cp
	return nil
}

// GetInvitation returns the invitation without consuming it.
func (s *Store) GetInvitation(_ context.Context, id uuid.UUID) (*team.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, gameerr.Newf(gameerr.CodeInvitationNotFound, "invitation %s not found", id)
	}
	cp := *inv
	return &cp, nil
}

// TakeInvitation removes and returns the invitation, so at most one caller
// can answer it.
func (s *Store) TakeInvitation(_ context.Context, id uuid.UUID) (*team.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, gameerr.Newf(gameerr.CodeInvitationNotFound, "invitation %s not found", id)
	}
	delete(s.invitations, id)
	return inv, nil
}

// PendingInvitations returns the unexpired invitations addressed to
// inviteeID, oldest first. Expired ones are dropped.
func (s *Store) PendingInvitations(_ context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*team.Invitation
	for id, inv := range s.invitations {
		if inv.Expired(now) {
			delete(s.invitations, id)
			continue
		}
		if inv.InviteeID == inviteeID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
