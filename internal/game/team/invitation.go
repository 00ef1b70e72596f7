package team

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
)

// DefaultInvitationTTL is how long an invitation stays answerable.
const DefaultInvitationTTL = 24 * time.Hour

// Decision is an invitee's answer.
type Decision string

const (
	Accept  Decision = "accept"
	Decline Decision = "decline"
)

// ParseDecision maps "accept"/"decline" (and y/n shorthands) to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "accept", "yes", "y":
		return Accept, nil
	case "decline", "no", "n":
		return Decline, nil
	}
	return "", gameerr.Newf(gameerr.CodeInvalidArgument, "decision must be accept or decline, got %q", s)
}

// Invitation is a short-lived proposal to form a team of inviter and invitee.
// It is looked up by ID so a stale or replayed prompt cannot form a team the
// inviter never proposed.
type Invitation struct {
	ID        uuid.UUID
	InviterID int64
	InviteeID int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewInvitation proposes a team.
//
// Precondition: ttl > 0.
// Postcondition: inviting oneself yields gameerr.ErrInvalidArgument.
func NewInvitation(inviterID, inviteeID int64, now time.Time, ttl time.Duration) (*Invitation, error) {
	if inviterID == inviteeID {
		return nil, gameerr.New(gameerr.CodeInvalidArgument, "cannot invite yourself")
	}
	if ttl <= 0 {
		panic("team.NewInvitation: precondition violated: ttl must be > 0")
	}
	return &Invitation{
		ID:        uuid.New(),
		InviterID: inviterID,
		InviteeID: inviteeID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the invitation can no longer be answered at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CheckResponder verifies that playerID may answer the invitation at now.
//
// Postcondition: Returns gameerr.ErrInvitationNotFound when playerID is not
// the invitee, gameerr.ErrInvitationExpired when expired, else nil.
func (i *Invitation) CheckResponder(playerID int64, now time.Time) error {
	if i.InviteeID != playerID {
		return gameerr.New(gameerr.CodeInvitationNotFound, "invitation is addressed to someone else").
			WithMeta("invitation_id", i.ID.String())
	}
	if i.Expired(now) {
		return gameerr.New(gameerr.CodeInvitationExpired, "invitation has expired").
			WithMeta("invitation_id", i.ID.String())
	}
	return nil
}

// Members returns the member ids of the team an accepted invitation forms,
// leader first.
func (i *Invitation) Members() []int64 {
	return []int64{i.InviterID, i.InviteeID}
}
