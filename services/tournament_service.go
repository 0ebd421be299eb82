package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/repositories"
	"github.com/dkhalitov/bracket-engine/storage"
	"github.com/google/uuid"
)

type CreateTournamentParams struct {
	Name        string
	Format      models.TournamentFormat
	MaxRounds   *int
	Settings    models.TournamentSettings
	OrganizerID string
}

type RegisterPlayerParams struct {
	TournamentID int
	PlayerUUID   string
	Name         string
	AccountType  models.AccountType
	Position     int
}

type TournamentService interface {
	Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateConfig(ctx context.Context, id int, params CreateTournamentParams) (*models.Tournament, error)
	RegisterPlayer(ctx context.Context, params RegisterPlayerParams) (*models.RosterEntry, error)
	Complete(ctx context.Context, id int) error
	AutoCompleteFinishedTournaments(ctx context.Context) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	matchupRepo    repositories.MatchupRepository
	bracketService BracketService
	archiver       storage.FileUploader
	notifier       brackets.Notifier
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	matchupRepo repositories.MatchupRepository,
	bracketService BracketService,
	archiver storage.FileUploader,
	notifier brackets.Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		matchupRepo:    matchupRepo,
		bracketService: bracketService,
		archiver:       archiver,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error) {
	if err := validateTournamentConfig(params); err != nil {
		return nil, err
	}
	tournament := &models.Tournament{
		Name:        params.Name,
		Format:      params.Format,
		Status:      models.StatusInitialization,
		MaxRounds:   params.MaxRounds,
		OrganizerID: params.OrganizerID,
	}
	if err := tournament.SetSettings(params.Settings); err != nil {
		return nil, fmt.Errorf("failed to encode tournament settings: %w", err)
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, status)
}

// UpdateConfig edits format and win-condition settings. Refused once the
// tournament has started: the configuration is immutable from that point.
func (s *tournamentService) UpdateConfig(ctx context.Context, id int, params CreateTournamentParams) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusInitialization {
		return nil, ErrTournamentStarted
	}
	if err := validateTournamentConfig(params); err != nil {
		return nil, err
	}

	tournament.Name = params.Name
	tournament.Format = params.Format
	tournament.MaxRounds = params.MaxRounds
	if err := tournament.SetSettings(params.Settings); err != nil {
		return nil, fmt.Errorf("failed to encode tournament settings: %w", err)
	}
	if err := s.tournamentRepo.UpdateSettings(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			// The guarded UPDATE matched nothing: either deleted or started
			// underneath us.
			return nil, ErrTournamentStarted
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) RegisterPlayer(ctx context.Context, params RegisterPlayerParams) (*models.RosterEntry, error) {
	tournament, err := s.GetByID(ctx, params.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusCompleted {
		return nil, ErrTournamentCompleted
	}
	if params.Name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrValidationFailed)
	}

	entry := &models.RosterEntry{
		TournamentID: params.TournamentID,
		PlayerUUID:   params.PlayerUUID,
		Name:         params.Name,
		AccountType:  params.AccountType,
		Position:     params.Position,
		Status:       models.RosterActive,
	}
	if entry.PlayerUUID == "" {
		entry.PlayerUUID = uuid.NewString()
		entry.AccountType = models.AccountGenerated
	}
	if entry.AccountType == "" {
		entry.AccountType = models.AccountAnonymous
	}
	if err := s.rosterRepo.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add roster entry: %w", err)
	}
	return entry, nil
}

// Complete moves a started tournament to completed and archives a JSON
// snapshot of its final bracket. Archival is best effort: its failure never
// reverts the completion.
func (s *tournamentService) Complete(ctx context.Context, id int) error {
	if err := s.tournamentRepo.UpdateStatus(ctx, id, models.StatusStarted, models.StatusCompleted); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentStatusStale):
			return ErrTournamentStateRaced
		}
		return fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}

	s.notifier.TournamentCompleted(id)
	s.archiveSnapshot(ctx, id)
	return nil
}

func (s *tournamentService) archiveSnapshot(ctx context.Context, id int) {
	if s.archiver == nil {
		return
	}
	view, err := s.bracketService.GetBracket(ctx, id)
	if err != nil {
		s.logger.Error("snapshot fetch failed, skipping archive",
			slog.Int("tournament_id", id), slog.Any("error", err))
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("snapshot marshal failed, skipping archive",
			slog.Int("tournament_id", id), slog.Any("error", err))
		return
	}
	key := fmt.Sprintf("tournaments/%d/bracket.json", id)
	if _, err := s.archiver.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		s.logger.Error("snapshot upload failed",
			slog.Int("tournament_id", id), slog.String("key", key), slog.Any("error", err))
		return
	}
	s.logger.Info("bracket snapshot archived", slog.Int("tournament_id", id), slog.String("key", key))
}

// AutoCompleteFinishedTournaments is the scheduler entry point: any started
// single-elimination tournament whose final matchup is decided gets
// completed automatically.
func (s *tournamentService) AutoCompleteFinishedTournaments(ctx context.Context) error {
	started := models.StatusStarted
	tournaments, err := s.tournamentRepo.List(ctx, &started)
	if err != nil {
		return fmt.Errorf("failed to list started tournaments: %w", err)
	}

	for _, t := range tournaments {
		if t.Format != models.FormatSingleElimination || t.MaxRounds == nil {
			continue
		}
		final, err := s.matchupRepo.GetByPosition(ctx, t.ID, *t.MaxRounds, 1)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchupNotFound) {
				continue
			}
			s.logger.Error("failed to check final matchup",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		if !final.Decided() {
			continue
		}
		if err := s.Complete(ctx, t.ID); err != nil && !errors.Is(err, ErrTournamentStateRaced) {
			s.logger.Error("auto-completion failed",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		s.logger.Info("tournament auto-completed", slog.Int("tournament_id", t.ID))
	}
	return nil
}

func validateTournamentConfig(params CreateTournamentParams) error {
	if params.Name == "" {
		return fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	switch params.Format {
	case models.FormatSingleElimination, models.FormatSwiss, models.FormatRoundRobin:
	default:
		return fmt.Errorf("%w: unknown tournament format %q", ErrValidationFailed, params.Format)
	}
	if params.MaxRounds != nil && *params.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be positive", ErrValidationFailed)
	}
	if params.Settings.WinCondition == models.WinConditionPointsToWin && params.Settings.PointsToWin == nil {
		return fmt.Errorf("%w: points_to_win is required for the points win condition", ErrValidationFailed)
	}
	return nil
}
