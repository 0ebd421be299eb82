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
	ErrReportNotFound         = errors.New("score report not found")
	ErrDuplicatePendingReport = errors.New("reporter already has a pending report for this match")
	ErrReportMatchInvalid     = errors.New("score report references an unknown match")
)

// ScoreReportRepository stores player-submitted score reports. A partial
// unique index on (match_id, reporter_id) WHERE status = 'pending' enforces
// the one-pending-report-per-reporter rule at the store level.
type ScoreReportRepository interface {
	Create(ctx context.Context, report *models.ScoreReport) error
	GetByID(ctx context.Context, id string) (*models.ScoreReport, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.ScoreReport, error)
	Update(ctx context.Context, report *models.ScoreReport) error
	UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus) error
	Delete(ctx context.Context, id string) error
}

type postgresScoreReportRepository struct {
	db *sql.DB
}

func NewPostgresScoreReportRepository(db *sql.DB) ScoreReportRepository {
	return &postgresScoreReportRepository{db: db}
}

const reportColumns = `id, match_id, tournament_id, reporter_id, scores, winner, is_tie, status, created_at`

func (r *postgresScoreReportRepository) Create(ctx context.Context, report *models.ScoreReport) error {
	scoresJSON, err := json.Marshal(report.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal report scores: %w", err)
	}

	query := `
		INSERT INTO score_reports
			(id, match_id, tournament_id, reporter_id, scores, winner, is_tie, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		report.ID,
		report.MatchID,
		report.TournamentID,
		report.ReporterID,
		scoresJSON,
		report.WinnerUUID,
		report.IsTie,
		report.Status,
	).Scan(&report.CreatedAt)

	return r.handleReportError(err)
}

func (r *postgresScoreReportRepository) GetByID(ctx context.Context, id string) (*models.ScoreReport, error) {
	query := `SELECT ` + reportColumns + ` FROM score_reports WHERE id = $1`

	var report models.ScoreReport
	var scoresJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.MatchID,
		&report.TournamentID,
		&report.ReporterID,
		&scoresJSON,
		&report.WinnerUUID,
		&report.IsTie,
		&report.Status,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to scan score report %s: %w", id, err)
	}
	if err := json.Unmarshal(scoresJSON, &report.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s scores: %w", id, err)
	}
	return &report, nil
}

func (r *postgresScoreReportRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.ScoreReport, error) {
	query := `SELECT ` + reportColumns + ` FROM score_reports WHERE match_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score reports for match %d: %w", matchID, err)
	}
	defer rows.Close()

	reports := make([]*models.ScoreReport, 0)
	for rows.Next() {
		var report models.ScoreReport
		var scoresJSON []byte
		if scanErr := rows.Scan(
			&report.ID,
			&report.MatchID,
			&report.TournamentID,
			&report.ReporterID,
			&scoresJSON,
			&report.WinnerUUID,
			&report.IsTie,
			&report.Status,
			&report.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan score report row: %w", scanErr)
		}
		if err := json.Unmarshal(scoresJSON, &report.Scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report %s scores: %w", report.ID, err)
		}
		reports = append(reports, &report)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during score report rows iteration: %w", err)
	}
	return reports, nil
}

// Update rewrites a pending report's claim. Status is deliberately not
// touched here; use UpdateStatus for transitions.
func (r *postgresScoreReportRepository) Update(ctx context.Context, report *models.ScoreReport) error {
	scoresJSON, err := json.Marshal(report.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal report scores: %w", err)
	}

	query := `
		UPDATE score_reports
		SET scores = $1, winner = $2, is_tie = $3
		WHERE id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, scoresJSON, report.WinnerUUID, report.IsTie, report.ID, models.ReportPending)
	if err != nil {
		return r.handleReportError(err)
	}
	return checkAffectedRows(result, ErrReportNotFound)
}

// UpdateStatus transitions a report from one status to another; a stale
// `from` loses the race and reports not found.
func (r *postgresScoreReportRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus) error {
	query := `UPDATE score_reports SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleReportError(err)
	}
	return checkAffectedRows(result, ErrReportNotFound)
}

func (r *postgresScoreReportRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM score_reports WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrReportNotFound)
}

func (r *postgresScoreReportRepository) handleReportError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "score_reports_pending_reporter_key":
			return ErrDuplicatePendingReport
		case "score_reports_match_id_fkey":
			return ErrReportMatchInvalid
		}
	}
	return err
}
