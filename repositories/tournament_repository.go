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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTournamentStatusStale  = errors.New("tournament status changed concurrently")
)

// TournamentRepository is the configuration store: format, status and
// win-condition settings per tournament.
type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateSettings(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, id int, from, to models.TournamentStatus) error
	SetMaxRounds(ctx context.Context, id int, maxRounds *int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, format, status, max_rounds, organizer_id, settings_json, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, format, status, max_rounds, organizer_id, settings_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tournament.Name,
		tournament.Format,
		tournament.Status,
		tournament.MaxRounds,
		tournament.OrganizerID,
		tournament.SettingsJSON,
	).Scan(&tournament.ID, &tournament.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	var t models.Tournament
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Format,
		&t.Status,
		&t.MaxRounds,
		&t.OrganizerID,
		&t.SettingsJSON,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Format,
			&t.Status,
			&t.MaxRounds,
			&t.OrganizerID,
			&t.SettingsJSON,
			&t.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

// UpdateSettings rewrites name and settings. The service layer refuses this
// once the tournament has started; the WHERE clause backs that up.
func (r *postgresTournamentRepository) UpdateSettings(ctx context.Context, tournament *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, format = $2, max_rounds = $3, settings_json = $4
		WHERE id = $5 AND status = $6`

	result, err := r.db.ExecContext(ctx, query,
		tournament.Name,
		tournament.Format,
		tournament.MaxRounds,
		tournament.SettingsJSON,
		tournament.ID,
		models.StatusInitialization,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// UpdateStatus transitions status with a guard on the expected current
// value, so concurrent starts/completions fail instead of double-applying.
func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id int, from, to models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleTournamentError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return ErrTournamentStatusStale
	}
	return nil
}

func (r *postgresTournamentRepository) SetMaxRounds(ctx context.Context, id int, maxRounds *int) error {
	query := `UPDATE tournaments SET max_rounds = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, maxRounds, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}
