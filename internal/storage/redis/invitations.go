package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// InvitationStore keeps each invitation under its own key with a TTL equal to
// its remaining lifetime, so Redis expires it without a sweeper. A per-invitee
// set indexes pending ids.
type InvitationStore struct {
	client goredis.Cmdable
	clock  clock.Clock
}

// NewInvitationStore creates an InvitationStore.
//
// Precondition: client and clk must be non-nil.
func NewInvitationStore(client goredis.Cmdable, clk clock.Clock) *InvitationStore {
	return &InvitationStore{client: client, clock: clk}
}

type invitationRecord struct {
	ID        string    `json:"id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `json:"invitee_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func invitationKey(id uuid.UUID) string {
	return keyPrefix + "invitation:" + id.String()
}

func inviteeKey(inviteeID int64) string {
	return keyPrefix + "invitee:" + strconv.FormatInt(inviteeID, 10)
}

// SaveInvitation stores inv until it expires. An invitation already past its
// expiry is not stored and later lookups report it as not found.
func (s *InvitationStore) SaveInvitation(ctx context.Context, inv *team.Invitation) error {
	ttl := inv.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(invitationRecord{
		ID:        inv.ID.String(),
		InviterID: inv.InviterID,
		InviteeID: inv.InviteeID,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshalling invitation: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, invitationKey(inv.ID), data, ttl)
		pipe.SAdd(ctx, inviteeKey(inv.InviteeID), inv.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing invitation: %w", err)
	}
	return nil
}

// GetInvitation returns the invitation without consuming it.
func (s *InvitationStore) GetInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	data, err := s.client.Get(ctx, invitationKey(id)).Bytes()
	if err != nil {
		return nil, lookupErr(err, id)
	}
	return decodeInvitation(data)
}

// TakeInvitation atomically reads and deletes the invitation with GETDEL.
func (s *InvitationStore) TakeInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	data, err := s.client.GetDel(ctx, invitationKey(id)).Bytes()
	if err != nil {
		return nil, lookupErr(err, id)
	}
	inv, err := decodeInvitation(data)
	if err != nil {
		return nil, err
	}
	if err := s.client.SRem(ctx, inviteeKey(inv.InviteeID), id.String()).Err(); err != nil {
		return nil, fmt.Errorf("unindexing invitation: %w", err)
	}
	return inv, nil
}

// PendingInvitations returns the live invitations for inviteeID, oldest
// first, pruning index entries whose keys have expired.
func (s *InvitationStore) PendingInvitations(ctx context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error) {
	idxKey := inviteeKey(inviteeID)
	ids, err := s.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + "invitation:" + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching invitations: %w", err)
	}

	var (
		out   []*team.Invitation
		stale []any
	)
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		inv, err := decodeInvitation([]byte(str))
		if err != nil {
			return nil, err
		}
		if inv.Expired(now) {
			continue
		}
		out = append(out, inv)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, idxKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("pruning invitation index: %w", err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func decodeInvitation(data []byte) (*team.Invitation, error) {
	var rec invitationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling invitation: %w", err)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing invitation id: %w", err)
	}
	return &team.Invitation{
		ID:        id,
		InviterID: rec.InviterID,
		InviteeID: rec.InviteeID,
		CreatedAt: rec.CreatedAt.UTC(),
		ExpiresAt: rec.ExpiresAt.UTC(),
	}, nil
}

func lookupErr(err error, id uuid.UUID) error {
	if errors.Is(err, goredis.Nil) {
		return gameerr.Newf(gameerr.CodeInvitationNotFound, "invitation %s not found", id)
	}
	return fmt.Errorf("reading invitation: %w", err)
}
