package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/repositories"
	"github.com/google/uuid"
)

// SubmitReportParams is one side's claimed outcome for a match.
type SubmitReportParams struct {
	MatchID    int
	ReporterID string
	Scores     []models.PlayerScore
	WinnerUUID *string
	IsTie      bool
}

// MatchReports is the reconciler's read view: both outstanding reports and
// whether they agree. Agreement is informative only; it never auto-commits
// unless the tournament opts into auto-accept.
type MatchReports struct {
	Reports []*models.ScoreReport `json:"reports"`
	Agree   *bool                 `json:"agree,omitempty"`
}

type ReportService interface {
	Submit(ctx context.Context, params SubmitReportParams) (*models.ScoreReport, error)
	Edit(ctx context.Context, reportID, reporterID string, params SubmitReportParams) (*models.ScoreReport, error)
	Delete(ctx context.Context, reportID, reporterID string) error
	Accept(ctx context.Context, reportID string) (*models.Matchup, error)
	ListByMatch(ctx context.Context, matchID int) (*MatchReports, error)
}

type reportService struct {
	reportRepo     repositories.ScoreReportRepository
	matchupRepo    repositories.MatchupRepository
	tournamentRepo repositories.TournamentRepository
	resultService  ResultService
	logger         *slog.Logger
}

func NewReportService(
	reportRepo repositories.ScoreReportRepository,
	matchupRepo repositories.MatchupRepository,
	tournamentRepo repositories.TournamentRepository,
	resultService ResultService,
	logger *slog.Logger,
) ReportService {
	return &reportService{
		reportRepo:     reportRepo,
		matchupRepo:    matchupRepo,
		tournamentRepo: tournamentRepo,
		resultService:  resultService,
		logger:         logger,
	}
}

// Submit records a pending report for a match the reporter participates in.
// At most one pending report per (match, reporter); resubmission requires
// editing or deleting the existing one.
func (s *reportService) Submit(ctx context.Context, params SubmitReportParams) (*models.ScoreReport, error) {
	matchup, err := s.matchupRepo.GetByID(ctx, params.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchupNotFound) {
			return nil, ErrMatchupNotFound
		}
		return nil, fmt.Errorf("failed to load matchup %d: %w", params.MatchID, err)
	}
	if matchup.PlayerIndex(params.ReporterID) == -1 {
		return nil, ErrReporterNotInMatch
	}
	if err := validateReportClaim(matchup, params); err != nil {
		return nil, err
	}

	report := &models.ScoreReport{
		ID:           uuid.NewString(),
		MatchID:      matchup.ID,
		TournamentID: matchup.TournamentID,
		ReporterID:   params.ReporterID,
		Scores:       params.Scores,
		WinnerUUID:   params.WinnerUUID,
		IsTie:        params.IsTie,
		Status:       models.ReportPending,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePendingReport) {
			return nil, ErrReportAlreadyPending
		}
		return nil, fmt.Errorf("failed to create score report: %w", err)
	}

	s.maybeAutoAccept(ctx, report)

	return report, nil
}

// maybeAutoAccept commits the result when the tournament opted into
// self-service acceptance and both sides' pending reports agree. Failures
// are logged only: the submitted report stands either way and an organizer
// can still accept manually.
func (s *reportService) maybeAutoAccept(ctx context.Context, report *models.ScoreReport) {
	tournament, err := s.tournamentRepo.GetByID(ctx, report.TournamentID)
	if err != nil || !tournament.GetSettings().AutoAcceptAgreed {
		return
	}
	reports, err := s.reportRepo.ListByMatch(ctx, report.MatchID)
	if err != nil {
		return
	}
	pending := pendingReports(reports)
	if len(pending) != 2 || !doReportsMatch(pending[0], pending[1]) {
		return
	}
	if _, err := s.Accept(ctx, report.ID); err != nil {
		s.logger.Warn("auto-accept of agreeing reports failed",
			slog.String("report_id", report.ID), slog.Any("error", err))
	}
}

// Edit rewrites a pending report's claim. Only the original reporter may
// edit, and only while the report is pending.
func (s *reportService) Edit(ctx context.Context, reportID, reporterID string, params SubmitReportParams) (*models.ScoreReport, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != reporterID {
		return nil, ErrNotReporter
	}
	if report.Status != models.ReportPending {
		return nil, ErrReportNotPending
	}

	matchup, err := s.matchupRepo.GetByID(ctx, report.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matchup %d: %w", report.MatchID, err)
	}
	if err := validateReportClaim(matchup, params); err != nil {
		return nil, err
	}

	report.Scores = params.Scores
	report.WinnerUUID = params.WinnerUUID
	report.IsTie = params.IsTie
	if err := s.reportRepo.Update(ctx, report); err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return nil, ErrReportNotPending
		}
		return nil, fmt.Errorf("failed to update score report %s: %w", reportID, err)
	}
	return report, nil
}

func (s *reportService) Delete(ctx context.Context, reportID, reporterID string) error {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report.ReporterID != reporterID {
		return ErrNotReporter
	}
	if report.Status != models.ReportPending {
		return ErrReportNotPending
	}
	if err := s.reportRepo.Delete(ctx, reportID); err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("failed to delete score report %s: %w", reportID, err)
	}
	return nil
}

// Accept commits one report as the authoritative result: the matchup gets
// the report's scores and winner/tie through the result pipeline (which
// runs elimination propagation), then the report is marked accepted. A
// sibling pending report is left untouched as historical record.
func (s *reportService) Accept(ctx context.Context, reportID string) (*models.Matchup, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == models.ReportAccepted {
		return nil, ErrReportAlreadyAccepted
	}
	if report.Status != models.ReportPending {
		return nil, ErrReportNotPending
	}

	matchup, err := s.resultService.DeclareResult(ctx, DeclareResultParams{
		MatchID:    report.MatchID,
		WinnerUUID: report.WinnerUUID,
		IsTie:      report.IsTie,
		Scores:     report.Scores,
	})
	if err != nil && !errors.Is(err, ErrPartialPropagation) {
		return nil, err
	}
	declareErr := err

	if err := s.reportRepo.UpdateStatus(ctx, reportID, models.ReportPending, models.ReportAccepted); err != nil {
		// The result is committed; only the bookkeeping failed. Surface it
		// loudly but keep the matchup result.
		s.logger.Error("failed to mark report accepted after committing result",
			slog.String("report_id", reportID), slog.Any("error", err))
		return matchup, fmt.Errorf("result committed but report status update failed: %w", err)
	}
	return matchup, declareErr
}

func (s *reportService) ListByMatch(ctx context.Context, matchID int) (*MatchReports, error) {
	reports, err := s.reportRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for match %d: %w", matchID, err)
	}
	view := &MatchReports{Reports: reports}
	pending := pendingReports(reports)
	if len(pending) == 2 {
		agree := doReportsMatch(pending[0], pending[1])
		view.Agree = &agree
	}
	return view, nil
}

func (s *reportService) getReport(ctx context.Context, reportID string) (*models.ScoreReport, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load score report %s: %w", reportID, err)
	}
	return report, nil
}

func validateReportClaim(matchup *models.Matchup, params SubmitReportParams) error {
	if params.WinnerUUID != nil && params.IsTie {
		return ErrWinnerAndTie
	}
	if params.WinnerUUID != nil {
		idx := matchup.PlayerIndex(*params.WinnerUUID)
		if idx == -1 || matchup.Players[idx].IsPlaceholder() {
			return ErrWinnerNotInMatchup
		}
	}
	for _, score := range params.Scores {
		if matchup.PlayerIndex(score.PlayerUUID) == -1 {
			return ErrScoreForUnknownPlayer
		}
	}
	return nil
}

func pendingReports(reports []*models.ScoreReport) []*models.ScoreReport {
	pending := make([]*models.ScoreReport, 0, 2)
	for _, r := range reports {
		if r.Status == models.ReportPending {
			pending = append(pending, r)
		}
	}
	return pending
}

// doReportsMatch reports whether two reports agree: same tie status, same
// winner when not a tie, and identical per-player scores. Any single
// differing field makes them disagree.
func doReportsMatch(a, b *models.ScoreReport) bool {
	if a.IsTie != b.IsTie {
		return false
	}
	if !a.IsTie {
		if (a.WinnerUUID == nil) != (b.WinnerUUID == nil) {
			return false
		}
		if a.WinnerUUID != nil && *a.WinnerUUID != *b.WinnerUUID {
			return false
		}
	}
	if len(a.Scores) != len(b.Scores) {
		return false
	}
	for _, scoreA := range a.Scores {
		scoreB := b.ScoreFor(scoreA.PlayerUUID)
		if scoreB == nil || *scoreB != scoreA.Score {
			return false
		}
	}
	return true
}
