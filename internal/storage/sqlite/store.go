package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/inventory"
	"github.com/cory-johannsen/sailor/internal/game/player"
	"github.com/cory-johannsen/sailor/internal/game/team"
)

// Store persists players, teams, and invitations in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const playerColumns = `id, name, handle, archetype, level, experience, gold, hp, max_hp, attack,
	energy, last_energy_tick, last_daily, created_at, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new player and its inventory in one transaction.
//
// Postcondition: Returns gameerr.ErrPlayerExists on a duplicate id.
func (s *Store) Create(ctx context.Context, p *player.Player) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO players (`+playerColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			p.ID, p.Name, p.Handle, p.Archetype, p.Level, p.Experience, p.Gold,
			p.HP, p.MaxHP, p.Attack, p.Energy, tickMillis(p.LastEnergyTick), p.LastDaily,
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt), p.Version,
		)
		if err != nil {
			return err
		}
		return writeItems(ctx, tx, p)
	})
	if err != nil {
		if isConstraintError(err) {
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
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
// was loaded; on any error the previously stored record is intact.
func (s *Store) Save(ctx context.Context, p *player.Player) error {
	return s.SaveAll(ctx, []*player.Player{p})
}

// SaveAll writes every player in one transaction, so either all of them
// are committed or none is.
func (s *Store) SaveAll(ctx context.Context, ps []*player.Player) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
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

func updatePlayer(ctx context.Context, tx *sql.Tx, p *player.Player) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE players SET
			name = ?, handle = ?, level = ?, experience = ?, gold = ?,
			hp = ?, max_hp = ?, attack = ?, energy = ?,
			last_energy_tick = ?, last_daily = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		p.Name, p.Handle, p.Level, p.Experience, p.Gold,
		p.HP, p.MaxHP, p.Attack, p.Energy,
		tickMillis(p.LastEnergyTick), p.LastDaily, toMillis(p.UpdatedAt), p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = ?)`, p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking player: %w", err)
		}
		if !exists {
			return gameerr.Newf(gameerr.CodePlayerNotFound, "player %d not found", p.ID)
		}
		return gameerr.StaleWrite(p.ID, p.Version)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_items WHERE player_id = ?`, p.ID); err != nil {
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
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE handle <> '' AND handle = ? COLLATE NOCASE
		ORDER BY updated_at DESC LIMIT 1`, handle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, handle, level, experience FROM players
		ORDER BY level DESC, experience DESC, id ASC LIMIT ?`, limit)
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO teams (leader_id, active, created_at) VALUES (?, 1, ?)`, leaderID, toMillis(now))
		if err != nil {
			return err
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for i, id := range memberIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO team_members (team_id, player_id, position) VALUES (?, ?, ?)`, t.ID, id, i,
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

// ListActiveTeams returns every active team ordered by id.
func (s *Store) ListActiveTeams(ctx context.Context) ([]*team.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.leader_id, t.created_at, m.player_id
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE t.active = 1
		ORDER BY t.id, m.position`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var out []*team.Team
	for rows.Next() {
		var id, leader, created, member int64
		if err := rows.Scan(&id, &leader, &created, &member); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, &team.Team{ID: id, LeaderID: leader, Active: true, CreatedAt: fromMillis(created)})
		}
		last := out[len(out)-1]
		last.MemberIDs = append(last.MemberIDs, member)
	}
	return out, rows.Err()
}

// DeactivateTeam marks a team inactive.
func (s *Store) DeactivateTeam(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE teams SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivating team: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivating team: %w", err)
	}
	if n == 0 {
		return gameerr.Newf(gameerr.CodeTeamNotFound, "team %d not found", id)
	}
	return nil
}

// SaveInvitation stores inv until it is taken or expires.
func (s *Store) SaveInvitation(ctx context.Context, inv *team.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, inviter_id, invitee_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.InviterID, inv.InviteeID, toMillis(inv.CreatedAt), toMillis(inv.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting invitation: %w", err)
	}
	return nil
}

// GetInvitation returns the invitation without consuming it.
func (s *Store) GetInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, `
		SELECT id, inviter_id, invitee_id, created_at, expires_at
		FROM invitations WHERE id = ?`, id.String()))
	return inv, invitationErr(err, id)
}

// TakeInvitation deletes and returns the invitation in one statement.
func (s *Store) TakeInvitation(ctx context.Context, id uuid.UUID) (*team.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, `
		DELETE FROM invitations WHERE id = ?
		RETURNING id, inviter_id, invitee_id, created_at, expires_at`, id.String()))
	return inv, invitationErr(err, id)
}

// PendingInvitations purges expired invitations and returns the remaining
// ones addressed to inviteeID, oldest first.
func (s *Store) PendingInvitations(ctx context.Context, inviteeID int64, now time.Time) ([]*team.Invitation, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return nil, fmt.Errorf("purging invitations: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inviter_id, invitee_id, created_at, expires_at
		FROM invitations WHERE invitee_id = ? ORDER BY created_at`, inviteeID)
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

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) loadItems(ctx context.Context, p *player.Player) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, quantity FROM player_items WHERE player_id = ? ORDER BY item_id`, p.ID)
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

func writeItems(ctx context.Context, tx *sql.Tx, p *player.Player) error {
	for _, st := range inventory.Stacks(p) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_items (player_id, item_id, quantity) VALUES (?, ?, ?)`,
			p.ID, st.ItemID, st.Quantity,
		); err != nil {
			return fmt.Errorf("writing inventory: %w", err)
		}
	}
	return nil
}

func scanPlayer(row scanner) (*player.Player, error) {
	var (
		p                player.Player
		tick             sql.NullInt64
		created, updated int64
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Handle, &p.Archetype, &p.Level, &p.Experience, &p.Gold,
		&p.HP, &p.MaxHP, &p.Attack, &p.Energy, &tick, &p.LastDaily, &created, &updated, &p.Version,
	)
	if err != nil {
		return nil, err
	}
	if tick.Valid {
		t := fromMillis(tick.Int64)
		p.LastEnergyTick = &t
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &p, nil
}

func scanInvitation(row scanner) (*team.Invitation, error) {
	var (
		inv              team.Invitation
		id               string
		created, expires int64
	)
	if err := row.Scan(&id, &inv.InviterID, &inv.InviteeID, &created, &expires); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing invitation id: %w", err)
	}
	inv.ID = parsed
	inv.CreatedAt, inv.ExpiresAt = fromMillis(created), fromMillis(expires)
	return &inv, nil
}

func invitationErr(err error, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return gameerr.Newf(gameerr.CodeInvitationNotFound, "invitation %s not found", id)
	default:
		return fmt.Errorf("querying invitation: %w", err)
	}
}

func tickMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}
