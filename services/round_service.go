package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/repositories"
)

// StartNextRoundResult reports what the command did: the new round's
// matchups plus any matches that were still unresolved and had to be
// force-settled as ties before pairing could run.
type StartNextRoundResult struct {
	Round        int               `json:"round"`
	Matchups     []*models.Matchup `json:"matchups"`
	ForceSettled []int             `json:"force_settled,omitempty"`
}

type RoundService interface {
	StartNextRound(ctx context.Context, tournamentID int) (*StartNextRoundResult, error)
}

type roundService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	matchupRepo    repositories.MatchupRepository
	pairer         brackets.SwissPairer
	notifier       brackets.Notifier
	logger         *slog.Logger
}

func NewRoundService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	matchupRepo repositories.MatchupRepository,
	notifier brackets.Notifier,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		matchupRepo:    matchupRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

// StartNextRound is the explicit organizer command that generates the next
// Swiss round. Unresolved matches of the current round are force-settled as
// ties first (an operator-confirmed destructive action), then the pairer
// runs over the full history. The unique (tournament, round, match_number)
// constraint makes a concurrent duplicate attempt fail with
// ErrRoundAlreadyGenerated instead of double-pairing players.
func (s *roundService) StartNextRound(ctx context.Context, tournamentID int) (*StartNextRoundResult, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	switch tournament.Status {
	case models.StatusStarted:
	case models.StatusCompleted:
		return nil, ErrTournamentCompleted
	default:
		return nil, ErrTournamentNotStarted
	}
	if tournament.Format != models.FormatSwiss {
		return nil, ErrUnsupportedFormat
	}

	history, err := s.matchupRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history for tournament %d: %w", tournamentID, err)
	}
	currentRound := 0
	for _, m := range history {
		if m.Round > currentRound {
			currentRound = m.Round
		}
	}
	if currentRound == 0 {
		return nil, ErrTournamentNotStarted
	}
	if tournament.MaxRounds != nil && currentRound >= *tournament.MaxRounds {
		return nil, ErrMaxRoundsReached
	}

	active := models.RosterActive
	entries, err := s.rosterRepo.ListByTournament(ctx, tournamentID, &active)
	if err != nil {
		return nil, fmt.Errorf("failed to list active roster for tournament %d: %w", tournamentID, err)
	}
	players := make([]models.BracketPlayer, len(entries))
	for i, e := range entries {
		players[i] = e.BracketPlayer()
	}

	settings := tournament.GetSettings()
	if settings.WinCondition == models.WinConditionPointsToWin && settings.PointsToWin != nil {
		for _, r := range brackets.ComputeRecords(players, history) {
			if r.Points >= *settings.PointsToWin {
				return nil, ErrWinConditionMet
			}
		}
	}

	// Force-settle anything still open in the current round so records are
	// complete before pairing.
	forceSettled := make([]int, 0)
	for _, m := range history {
		if m.Round != currentRound || m.Decided() {
			continue
		}
		m.IsTie = true
		if err := s.matchupRepo.Update(ctx, nil, m); err != nil {
			if errors.Is(err, repositories.ErrMatchupVersionConflict) {
				return nil, ErrVersionConflict
			}
			return nil, fmt.Errorf("failed to force-settle matchup %d: %w", m.ID, err)
		}
		forceSettled = append(forceSettled, m.ID)
		s.notifier.MatchupChanged(tournamentID, m)
	}
	if len(forceSettled) > 0 {
		s.logger.Warn("unresolved matches force-settled as ties",
			slog.Int("tournament_id", tournamentID),
			slog.Int("round", currentRound),
			slog.Int("count", len(forceSettled)))
	}

	nextRound := currentRound + 1
	matchups, err := s.pairer.PairRound(tournamentID, nextRound, players, history)
	if err != nil {
		return nil, err
	}

	if err := s.matchupRepo.InsertRound(ctx, matchups); err != nil {
		if errors.Is(err, repositories.ErrMatchupPositionTaken) {
			return nil, ErrRoundAlreadyGenerated
		}
		return nil, fmt.Errorf("failed to persist round %d for tournament %d: %w", nextRound, tournamentID, err)
	}

	s.logger.Info("swiss round generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", nextRound),
		slog.Int("matchups", len(matchups)))
	s.notifier.RoundGenerated(tournamentID, nextRound, matchups)

	return &StartNextRoundResult{
		Round:        nextRound,
		Matchups:     matchups,
		ForceSettled: forceSettled,
	}, nil
}
