package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// Store persists players, teams, and invitations in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the schema applied.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const playerColumns = `id, name, handle, archetype, level, experience, gold, hp, max_hp, attack,
	energy, last_energy_tick, last_daily, created_at, updated_at, version`

// Create inserts a new player and its inventory in one transaction.
//
// Postcondition: Returns gameerr.ErrPlayerExists on a duplicate id.
func (s *Store) Create(ctx context.Context, p *player.Player) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO players (`+playerColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			p.ID, p.Name, p.Handle, p.Archetype, p.Level, p.Experience, p.Gold,
			p.HP, p.MaxHP, p.Attack, p.Energy, p.LastEnergyTick, p.LastDaily,
			p.CreatedAt, p.UpdatedAt, p.Version,
		)
		if err != nil {
			return err
		}
		return writeItems(ctx, tx, p)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return gameerr.Newf(gameerr.CodePlayerExists, "player %d already registered", p.ID)
		}
		return fmt.Errorf("inserting player: %w", err)
	}
	return nil
}

// Load retrieves a player and its inventory.
//
// Postcondition: Returns the Player or gameerr.ErrPlayerNotFound.
func (s *Store) Load(ctx context.Context, id int64) (*player.Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, gameerr.Newf(gameerr.CodePlayerNotFound, "player %d not found", id)
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	if err := s.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save overwrites the player row and replaces its inventory atomically,
// provided the row still carries p.Version. On success p.Version is bumped.
//
// Postcondition: Returns gameerr.ErrConflict if the row was saved since p
// was loaded and gameerr.ErrPlayerNotFound if no row exists. On any error
// the previously stored record is intact.
func (s *Store) Save(ctx context.Context, p *player.Player) error {
	return s.SaveAll(ctx, []*player.Player{p})
}

// SaveAll writes every player in one transaction, so either all of them
// are committed or none is.
func (s *Store) SaveAll(ctx context.Context, ps []*player.Player) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, p := range ps {
			if err := updatePlayer(ctx, tx, p); err != nil {
				return fmt.Errorf("saving player %d: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, p := range ps {
		p.Version++
	}
	return nil
}

func updatePlayer(ctx context.Context, tx pgx.Tx, p *player.Player) error {
	tag, err := tx.Exec(ctx, `
		UPDATE players SET
			name = $2, handle = $3, level = $4, experience = $5, gold = $6,
			hp = $7, max_hp = $8, attack = $9, energy = $10,
			last_energy_tick = $11, last_daily = $12, updated_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $14`,
		p.ID, p.Name, p.Handle, p.Level, p.Experience, p.Gold,
		p.HP, p.MaxHP, p.Attack, p.Energy, p.LastEnergyTick, p.LastDaily, p.UpdatedAt,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking player: %w", err)
		}
		if !exists {
			return gameerr.Newf(gameerr.CodePlayerNotFound, "player %d not found", p.ID)
		}
		return gameerr.StaleWrite(p.ID, p.Version)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM player_items WHERE player_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clearing inventory: %w", err)
	}
	return writeItems(ctx, tx, p)
}

// FindByHandle returns the most recently updated player with the handle,
// compared case-insensitively.
func (s *Store) FindByHandle(ctx context.Context, handle string) (*player.Player, error) {
	handle = player.NormalizeHandle(handle)
	if handle == "" {
		return nil, gameerr.New(gameerr.CodePlayerNotFound, "empty handle")
	}
	p, err := scanPlayer(s.db.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE handle <> '' AND LOWER(handle) = LOWER($1)
		ORDER BY updated_at DESC LIMIT 1`, handle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, gameerr.Newf(gameerr.CodePlayerNotFound, "no player with handle %q", handle)
		}
		return nil, fmt.Errorf("querying player by handle: %w", err)
	}
	if err := s.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Top returns up to limit standings by level then experience, both descending.
func (s *Store) Top(ctx context.Context, limit int) ([]player.Standing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, handle, level, experience FROM players
		ORDER BY level DESC, experience DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]player.Standing, 0, limit)
	for rows.Next() {
		var p player.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Handle, &p.Level, &p.Experience); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		out = append(out, p.Standing())
	}
	return out, rows.Err()
}

// CreateTeam inserts an active team and its members in order.
func (s *Store) CreateTeam(ctx context.Context, leaderID int64, memberIDs []int64, now time.Time) (*team.Team, error) {
	t := &team.Team{LeaderID: leaderID, MemberIDs: append([]int64(nil), memberIDs...), Active: true, CreatedAt: now}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO teams (leader_id, active, created_at) VALUES ($1, TRUE, $2) RETURNING id`,
			leaderID, now,
		).Scan(&t.ID); err != nil {
			return err
		}
		for i, id := range memberIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO team_members (team_id, player_id, position) VALUES ($1, $2, $3)`,
				t.ID, id, i,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	return t, nil
}

// ListActiveTeams returns every active team ordered by id with members in
// insertion order.
func (s *Store) ListActiveTeams(ctx context.Context) ([]*team.Team, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.leader_id, t.created_at, m.player_id
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE t.active
		ORDER BY t.id, m.position`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var out []*team.Team
	for rows.Next() {
		var (
			id, leader, member int64
			created            time.Time
		)
		if err := rows.Scan(&id, &leader, &created, &member); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, &team.Team{ID: id, LeaderID: leader, Active: true, CreatedAt: created.UTC()})
		}
		last := out[len(out)-1]
		last.MemberIDs = append(last.MemberIDs, member)
	}
	return out, rows.Err()
}

// DeactivateTeam marks a team inactive.
//
// Postcondition: Returns gameerr.ErrTeamNotFound if no team has the id.
func (s *Store) DeactivateTeam(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE teams SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gameerr.Newf(gameerr.CodeTeamNotFound, "team %d not found", id)
	}
	return nil
}

// SaveInvitation stores inv until it is taken or expires.
func (s *Store) SaveInvitation(ctx context.Context, inv *team.Invitation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO invitations (id, inviter_id, invitee_id, created_at, expires_at)
		VALUES ($1::uuid, $2, $3, $4, $5)`,
		inv.ID.String(), inv.InviterID, inv.InviteeID, inv.CreatedAt, inv.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting invitation: %w", err)
	}
	return nil
}

// GetInvitation returns the invitation without consuming it.
func (s *Store) GetInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRow(ctx, `
		SELECT id::text, inviter_id, invitee_id, created_at, expires_at
		FROM invitations WHERE id = $1::uuid`, id.String()))
	return inv, invitationErr(err, id)
}

// TakeInvitation deletes and returns the invitation in one statement, so at
// most one caller can answer it.
func (s *Store) TakeInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRow(ctx, `
		DELETE FROM invitations WHERE id = $1::uuid
		RETURNING id::text, inviter_id, invitee_id, created_at, expires_at`, id.String()))
	return inv, invitationErr(err, id)
}

// PendingInvitations purges expired invitations and returns the remaining
// ones addressed to inviteeID, oldest first.
func (s *Store) PendingInvitations(ctx context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error) {
	if _, err := s.db.Exec(ctx, `DELETE FROM invitations WHERE expires_at <= $1`, now); err != nil {
		return nil, fmt.Errorf("purging invitations: %w", err)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, inviter_id, invitee_id, created_at, expires_at
		FROM invitations WHERE invitee_id = $1 ORDER BY created_at`, inviteeID)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()
	var out []*team.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	err := row.Scan(
		&p.ID, &p.Name, &p.Handle, &p.Archetype, &p.Level, &p.Experience, &p.Gold,
		&p.HP, &p.MaxHP, &p.Attack, &p.Energy, &p.LastEnergyTick, &p.LastDaily,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	)
	if err != nil {
		return nil, err
	}
	if p.LastEnergyTick != nil {
		utc := p.LastEnergyTick.UTC()
		p.LastEnergyTick = &utc
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) loadItems(ctx context.Context, p *player.Player) error {
	rows, err := s.db.Query(ctx,
		`SELECT item_id, quantity FROM player_items WHERE player_id = $1 ORDER BY item_id`, p.ID)
	if err != nil {
		return fmt.Errorf("querying inventory: %w", err)
	}
	defer rows.Close()
	p.Inventory = []string{}
	for rows.Next() {
		var (
			id  string
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return fmt.Errorf("scanning inventory row: %w", err)
		}
		for range qty {
			p.Inventory = append(p.Inventory, id)
		}
	}
	return rows.Err()
}

func writeItems(ctx context.Context, tx pgx.Tx, p *player.Player) error {
	stacks := inventory.Stacks(p)
	if len(stacks) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(stacks))
	for _, st := range stacks {
		rows = append(rows, []any{p.ID, st.ItemID, st.Quantity})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"player_items"},
		[]string{"player_id", "item_id", "quantity"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	return nil
}

func scanInvitation(row pgx.Row) (*team.Invitation, error) {
	var (
		inv team.Invitation
		id  string
	)
	if err := row.Scan(&id, &inv.InviterID, &inv.InviteeID, &inv.CreatedAt, &inv.ExpiresAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing invitation id: %w", err)
	}
	inv.ID = parsed
	inv.CreatedAt, inv.ExpiresAt = inv.CreatedAt.UTC(), inv.ExpiresAt.UTC()
	return &inv, nil
}

func invitationErr(err error, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return gameerr.Newf(gameerr.CodeInvitationNotFound, "invitation %s not found", id)
	default:
		return fmt.Errorf("querying invitation: %w", err)
	}
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
