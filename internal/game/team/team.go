// Package team models cooperative teams and the invitations that create them.
package team

import (
	"slices"
	"sort"
	"time"
)

// Team is an active grouping of players for cooperative combat.
//
// Invariant: LeaderID is always in MemberIDs.
type Team struct {
	ID        int64
	LeaderID  int64
	MemberIDs []int64
	Active    bool
	CreatedAt time.Time
}

// HasMember reports whether playerID belongs to t.
func (t *Team) HasMember(playerID int64) bool {
	return slices.Contains(t.MemberIDs, playerID)
}

// Clone returns a deep copy of t.
func (t *Team) Clone() *Team {
	cp := *t
	cp.MemberIDs = append([]int64(nil), t.MemberIDs...)
	return &cp
}

// SortedMemberIDs returns the member ids in ascending order, the order in
// which callers acquire per-player locks.
func (t *Team) SortedMemberIDs() []int64 {
	ids := append([]int64(nil), t.MemberIDs...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ActiveForMember returns every active team containing playerID, ordered by
// team id. A player may belong to several active teams at once.
func ActiveForMember(teams []*Team, playerID int64) []*Team {
	var out []*Team
	for _, t := range teams {
		if t.Active && t.HasMember(playerID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindActiveForMember returns the lowest-id active team containing playerID.
//
// Postcondition: Returns nil, false when the player is in no active team.
func FindActiveForMember(teams []*Team, playerID int64) (*Team, bool) {
	found := ActiveForMember(teams, playerID)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}
