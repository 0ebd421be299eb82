package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrRosterEntryNotFound = errors.New("roster entry not found")
	ErrRosterDuplicate     = errors.New("player is already on the tournament roster")
)

// RosterRepository reads and maintains a tournament's registered players.
// The progression engine only ever filters by status; registration UI owns
// the rest of the lifecycle.
type RosterRepository interface {
	Add(ctx context.Context, entry *models.RosterEntry) error
	ListByTournament(ctx context.Context, tournamentID int, status *models.RosterStatus) ([]*models.RosterEntry, error)
	UpdateStatus(ctx context.Context, id int, status models.RosterStatus) error
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) Add(ctx context.Context, entry *models.RosterEntry) error {
	query := `
		INSERT INTO tournament_roster (tournament_id, player_uuid, name, account_type, position, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.TournamentID,
		entry.PlayerUUID,
		entry.Name,
		entry.AccountType,
		entry.Position,
		entry.Status,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "tournament_roster_tournament_id_player_uuid_key" {
			return ErrRosterDuplicate
		}
		return err
	}
	return nil
}

func (r *postgresRosterRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.RosterStatus) ([]*models.RosterEntry, error) {
	query := `
		SELECT id, tournament_id, player_uuid, name, account_type, position, status, created_at
		FROM tournament_roster
		WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entries := make([]*models.RosterEntry, 0)
	for rows.Next() {
		var e models.RosterEntry
		if scanErr := rows.Scan(
			&e.ID,
			&e.TournamentID,
			&e.PlayerUUID,
			&e.Name,
			&e.AccountType,
			&e.Position,
			&e.Status,
			&e.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", scanErr)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during roster rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresRosterRepository) UpdateStatus(ctx context.Context, id int, status models.RosterStatus) error {
	query := `UPDATE tournament_roster SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}
