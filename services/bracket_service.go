package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	BuildInitialBracket(ctx context.Context, tournamentID int, mode PairingMode) ([]*models.Matchup, error)
	GetBracket(ctx context.Context, tournamentID int) (*models.TournamentBracket, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	matchupRepo    repositories.MatchupRepository
	notifier       brackets.Notifier
	logger         *slog.Logger
	rng            *rand.Rand
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	matchupRepo repositories.MatchupRepository,
	notifier brackets.Notifier,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		matchupRepo:    matchupRepo,
		notifier:       notifier,
		logger:         logger,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BuildInitialBracket turns the active roster into round-1 matchups (or the
// full schedule for round robin) and moves the tournament to started,
// freezing its configuration.
func (s *bracketService) BuildInitialBracket(ctx context.Context, tournamentID int, mode PairingMode) ([]*models.Matchup, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	switch tournament.Status {
	case models.StatusInitialization:
	case models.StatusStarted:
		return nil, ErrBracketAlreadyBuilt
	default:
		return nil, ErrTournamentCompleted
	}

	active := models.RosterActive
	entries, err := s.rosterRepo.ListByTournament(ctx, tournamentID, &active)
	if err != nil {
		return nil, fmt.Errorf("failed to list active roster for tournament %d: %w", tournamentID, err)
	}
	if len(entries) < 2 {
		return nil, ErrInsufficientPlayers
	}

	settings := tournament.GetSettings()
	players, err := orderPlayers(mode, entries, settings.SeedGroupSize, s.rng)
	if err != nil {
		return nil, err
	}

	var generator brackets.RoundGenerator
	switch tournament.Format {
	case models.FormatSingleElimination:
		generator = brackets.NewSingleEliminationGenerator()
	case models.FormatSwiss:
		generator = brackets.NewSwissGenerator()
	case models.FormatRoundRobin:
		generator = brackets.NewRoundRobinGenerator(settings.Legs)
	default:
		return nil, ErrUnsupportedFormat
	}

	matchups, err := generator.Generate(brackets.GenerateParams{
		TournamentID: tournamentID,
		Players:      players,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientPlayers) {
			return nil, ErrInsufficientPlayers
		}
		return nil, fmt.Errorf("%s generation failed for tournament %d: %w", generator.Name(), tournamentID, err)
	}

	if err := s.matchupRepo.InsertRound(ctx, matchups); err != nil {
		if errors.Is(err, repositories.ErrMatchupPositionTaken) {
			return nil, ErrBracketAlreadyBuilt
		}
		return nil, fmt.Errorf("failed to persist initial bracket for tournament %d: %w", tournamentID, err)
	}

	if tournament.Format == models.FormatSingleElimination && tournament.MaxRounds == nil {
		rounds := brackets.NumRounds(len(players))
		if err := s.tournamentRepo.SetMaxRounds(ctx, tournamentID, intPtr(rounds)); err != nil {
			s.logger.Error("failed to record bracket depth",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, tournamentID, models.StatusInitialization, models.StatusStarted); err != nil {
		if errors.Is(err, repositories.ErrTournamentStatusStale) {
			return nil, ErrTournamentStateRaced
		}
		return nil, fmt.Errorf("failed to start tournament %d: %w", tournamentID, err)
	}

	s.logger.Info("initial bracket built",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(tournament.Format)),
		slog.Int("matchups", len(matchups)))
	s.notifier.RoundGenerated(tournamentID, 1, matchups)

	return matchups, nil
}

// GetBracket assembles the full read view, fetching the tournament, its
// matchups and the roster in parallel.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.TournamentBracket, error) {
	view := &models.TournamentBracket{}
	var matchups []*models.Matchup
	var entries []*models.RosterEntry

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(gCtx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to fetch tournament %d: %w", tournamentID, err)
		}
		view.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		var err error
		matchups, err = s.matchupRepo.ListByTournament(gCtx, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch matchups for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.rosterRepo.ListByTournament(gCtx, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch roster for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Rounds = models.GroupRounds(matchups)
	view.Roster = make([]models.RosterEntry, len(entries))
	players := make([]models.BracketPlayer, 0, len(entries))
	for i, e := range entries {
		view.Roster[i] = *e
		if e.Status == models.RosterActive {
			players = append(players, e.BracketPlayer())
		}
	}

	records := brackets.RankRecords(brackets.ComputeRecords(players, matchups))
	view.Standings = make([]models.Standing, len(records))
	for i, r := range records {
		view.Standings[i] = models.Standing{
			Player: r.Player,
			Wins:   r.Wins,
			Losses: r.Losses,
			Ties:   r.Ties,
			Points: r.Points,
		}
	}

	return view, nil
}
