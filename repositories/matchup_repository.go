package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchupNotFound          = errors.New("matchup not found")
	ErrMatchupVersionConflict   = errors.New("matchup was modified concurrently")
	ErrMatchupPositionTaken     = errors.New("a matchup already exists at this (round, match_number) position")
	ErrMatchupTournamentInvalid = errors.New("matchup references an unknown tournament")
)

// MatchupRepository is the typed store adapter for tournament_matches.
// Update is a compare-and-swap on the row version: callers pass the version
// they read and get ErrMatchupVersionConflict if someone got there first.
// The (tournament_id, round, match_number) unique constraint surfaces as
// ErrMatchupPositionTaken and is what guards duplicate round generation.
type MatchupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, matchup *models.Matchup) error
	InsertRound(ctx context.Context, matchups []*models.Matchup) error
	GetByID(ctx context.Context, id int) (*models.Matchup, error)
	GetByPosition(ctx context.Context, tournamentID, round, matchNumber int) (*models.Matchup, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Matchup, error)
	MaxRound(ctx context.Context, tournamentID int) (int, error)
	Update(ctx context.Context, exec SQLExecutor, matchup *models.Matchup) error
}

type postgresMatchupRepository struct {
	db *sql.DB
}

func NewPostgresMatchupRepository(db *sql.DB) MatchupRepository {
	return &postgresMatchupRepository{db: db}
}

const matchupColumns = `id, tournament_id, round, match_number, players, winner, is_tie, version, created_at`

func (r *postgresMatchupRepository) Create(ctx context.Context, exec SQLExecutor, matchup *models.Matchup) error {
	if exec == nil {
		exec = r.db
	}
	playersJSON, err := json.Marshal(matchup.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal matchup players: %w", err)
	}
	if matchup.Version == 0 {
		matchup.Version = 1
	}

	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, players, winner, is_tie, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		matchup.TournamentID,
		matchup.Round,
		matchup.MatchNumber,
		playersJSON,
		matchup.WinnerUUID,
		matchup.IsTie,
		matchup.Version,
	).Scan(&matchup.ID, &matchup.CreatedAt)

	return r.handleMatchupError(err)
}

// InsertRound writes a generated set of matchups atomically. A position
// collision rolls the whole batch back, which is how a duplicate "start
// next round" fails cleanly instead of double-pairing players.
func (r *postgresMatchupRepository) InsertRound(ctx context.Context, matchups []*models.Matchup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, m := range matchups {
		if err := r.Create(ctx, tx, m); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("insert failed: %w (rollback also failed: %v)", err, rbErr)
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round insert: %w", err)
	}
	return nil
}

func (r *postgresMatchupRepository) GetByID(ctx context.Context, id int) (*models.Matchup, error) {
	query := `SELECT ` + matchupColumns + ` FROM tournament_matches WHERE id = $1`
	return r.scanMatchup(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchupRepository) GetByPosition(ctx context.Context, tournamentID, round, matchNumber int) (*models.Matchup, error) {
	query := `
		SELECT ` + matchupColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1 AND round = $2 AND match_number = $3`
	return r.scanMatchup(r.db.QueryRowContext(ctx, query, tournamentID, round, matchNumber))
}

func (r *postgresMatchupRepository) ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Matchup, error) {
	query := `SELECT ` + matchupColumns + ` FROM tournament_matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round != nil {
		query += ` AND round = $2`
		args = append(args, *round)
	}
	query += ` ORDER BY round ASC, match_number ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matchups for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matchups := make([]*models.Matchup, 0)
	for rows.Next() {
		m, scanErr := r.scanMatchupRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matchups = append(matchups, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during matchup rows iteration: %w", err)
	}
	return matchups, nil
}

func (r *postgresMatchupRepository) MaxRound(ctx context.Context, tournamentID int) (int, error) {
	query := `SELECT COALESCE(MAX(round), 0) FROM tournament_matches WHERE tournament_id = $1`
	var maxRound int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&maxRound); err != nil {
		return 0, fmt.Errorf("failed to query max round for tournament %d: %w", tournamentID, err)
	}
	return maxRound, nil
}

// Update compare-and-swaps on matchup.Version. On success the version is
// bumped both in the row and on the passed struct.
func (r *postgresMatchupRepository) Update(ctx context.Context, exec SQLExecutor, matchup *models.Matchup) error {
	if exec == nil {
		exec = r.db
	}
	playersJSON, err := json.Marshal(matchup.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal matchup players: %w", err)
	}

	query := `
		UPDATE tournament_matches
		SET players = $1, winner = $2, is_tie = $3, version = version + 1
		WHERE id = $4 AND version = $5`

	result, err := exec.ExecContext(ctx, query,
		playersJSON,
		matchup.WinnerUUID,
		matchup.IsTie,
		matchup.ID,
		matchup.Version,
	)
	if err != nil {
		return r.handleMatchupError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Either the row is gone or someone bumped the version first.
		if _, getErr := r.GetByID(ctx, matchup.ID); errors.Is(getErr, ErrMatchupNotFound) {
			return ErrMatchupNotFound
		}
		return ErrMatchupVersionConflict
	}
	matchup.Version++
	return nil
}

func (r *postgresMatchupRepository) scanMatchup(row *sql.Row) (*models.Matchup, error) {
	var m models.Matchup
	var playersJSON []byte
	err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.MatchNumber,
		&playersJSON,
		&m.WinnerUUID,
		&m.IsTie,
		&m.Version,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchupNotFound
		}
		return nil, fmt.Errorf("failed to scan matchup: %w", err)
	}
	if err := json.Unmarshal(playersJSON, &m.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matchup %d players: %w", m.ID, err)
	}
	return &m, nil
}

func (r *postgresMatchupRepository) scanMatchupRow(rows *sql.Rows) (*models.Matchup, error) {
	var m models.Matchup
	var playersJSON []byte
	err := rows.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.MatchNumber,
		&playersJSON,
		&m.WinnerUUID,
		&m.IsTie,
		&m.Version,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan matchup row: %w", err)
	}
	if err := json.Unmarshal(playersJSON, &m.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matchup %d players: %w", m.ID, err)
	}
	return &m, nil
}

func (r *postgresMatchupRepository) handleMatchupError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "tournament_matches_tournament_id_round_match_number_key":
			return ErrMatchupPositionTaken
		case "tournament_matches_tournament_id_fkey":
			return ErrMatchupTournamentInvalid
		}
	}
	return err
}
