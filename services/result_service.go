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

// DeclareResultParams is the single input event that drives the engine:
// a winner declared, a tie declared, or a previously recorded result
// cleared (WinnerUUID nil, IsTie false).
type DeclareResultParams struct {
	MatchID    int
	WinnerUUID *string
	IsTie      bool
	Scores     []models.PlayerScore
}

type ResultService interface {
	DeclareResult(ctx context.Context, params DeclareResultParams) (*models.Matchup, error)
}

type resultService struct {
	matchupRepo    repositories.MatchupRepository
	tournamentRepo repositories.TournamentRepository
	notifier       brackets.Notifier
	logger         *slog.Logger
}

func NewResultService(
	matchupRepo repositories.MatchupRepository,
	tournamentRepo repositories.TournamentRepository,
	notifier brackets.Notifier,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		matchupRepo:    matchupRepo,
		tournamentRepo: tournamentRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

// DeclareResult validates and commits a match result, then runs the
// format-specific advancement. The primary write is a compare-and-swap; a
// version conflict is returned for the caller to retry after re-reading.
// Propagation happens only after the primary write commits: its failure
// surfaces as ErrPartialPropagation with the committed matchup returned.
func (s *resultService) DeclareResult(ctx context.Context, params DeclareResultParams) (*models.Matchup, error) {
	matchup, err := s.matchupRepo.GetByID(ctx, params.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchupNotFound) {
			return nil, ErrMatchupNotFound
		}
		return nil, fmt.Errorf("failed to load matchup %d: %w", params.MatchID, err)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, matchup.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", matchup.TournamentID, err)
	}
	switch tournament.Status {
	case models.StatusStarted:
	case models.StatusCompleted:
		return nil, ErrTournamentCompleted
	default:
		return nil, ErrTournamentNotStarted
	}

	if err := validateResult(matchup, params, tournament.GetSettings()); err != nil {
		return nil, err
	}
	params = applyAutoWin(matchup, params, tournament.GetSettings())

	// Lock check: a matchup whose downstream result already stands cannot be
	// edited until that result is cleared.
	var downstream *models.Matchup
	if tournament.Format == models.FormatSingleElimination {
		downstream, err = s.destinationOf(ctx, matchup)
		if err != nil {
			return nil, err
		}
	}
	if models.StateOf(matchup, downstream) == models.MatchupLocked {
		return nil, ErrMatchupLocked
	}

	prevWinner := matchup.WinnerUUID

	for _, score := range params.Scores {
		idx := matchup.PlayerIndex(score.PlayerUUID)
		v := score.Score
		matchup.Players[idx].Score = &v
	}
	matchup.WinnerUUID = params.WinnerUUID
	matchup.IsTie = params.IsTie

	if err := s.matchupRepo.Update(ctx, nil, matchup); err != nil {
		if errors.Is(err, repositories.ErrMatchupVersionConflict) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to update matchup %d: %w", matchup.ID, err)
	}
	s.notifier.MatchupChanged(tournament.ID, matchup)

	if tournament.Format != models.FormatSingleElimination {
		return matchup, nil
	}

	// Reversal first: if the result moved away from a previously propagated
	// winner, clear them out of the destination slot.
	if prevWinner != nil && (params.WinnerUUID == nil || *params.WinnerUUID != *prevWinner) {
		if err := s.rollbackPropagation(ctx, tournament, matchup, *prevWinner, downstream); err != nil {
			s.logger.Error("propagation rollback failed",
				slog.Int("matchup_id", matchup.ID), slog.Any("error", err))
			return matchup, fmt.Errorf("%w: %v", ErrPartialPropagation, err)
		}
	}
	if params.WinnerUUID != nil {
		winnerIdx := matchup.PlayerIndex(*params.WinnerUUID)
		if err := s.propagate(ctx, tournament, matchup, matchup.Players[winnerIdx]); err != nil {
			s.logger.Error("winner propagation failed",
				slog.Int("matchup_id", matchup.ID), slog.Any("error", err))
			return matchup, fmt.Errorf("%w: %v", ErrPartialPropagation, err)
		}
	}

	return matchup, nil
}

func validateResult(matchup *models.Matchup, params DeclareResultParams, settings models.TournamentSettings) error {
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

// applyAutoWin infers a winner from the auto-win score threshold when the
// caller submitted scores without an explicit outcome.
func applyAutoWin(matchup *models.Matchup, params DeclareResultParams, settings models.TournamentSettings) DeclareResultParams {
	if params.WinnerUUID != nil || params.IsTie || settings.AutoWinScore == nil || len(params.Scores) == 0 {
		return params
	}
	var winner *string
	for _, score := range params.Scores {
		if score.Score >= *settings.AutoWinScore {
			if winner != nil {
				return params // both sides over the threshold, leave undecided
			}
			uuid := score.PlayerUUID
			winner = &uuid
		}
	}
	params.WinnerUUID = winner
	return params
}

// destinationOf loads the next-round matchup this one feeds, or nil for a
// terminal match.
func (s *resultService) destinationOf(ctx context.Context, matchup *models.Matchup) (*models.Matchup, error) {
	destNumber, _ := brackets.NextRoundPosition(matchup.MatchNumber)
	dest, err := s.matchupRepo.GetByPosition(ctx, matchup.TournamentID, matchup.Round+1, destNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchupNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load destination of matchup %d: %w", matchup.ID, err)
	}
	return dest, nil
}

// propagate places the winner into round+1, match ceil(M/2), slot 1-(M mod 2),
// creating the destination if absent. Idempotent: a winner already in the
// slot is a no-op. The destination write is its own compare-and-swap so a
// concurrent edit there is never clobbered.
func (s *resultService) propagate(ctx context.Context, tournament *models.Tournament, matchup *models.Matchup, winner models.BracketPlayer) error {
	nextRound := matchup.Round + 1
	if tournament.MaxRounds != nil && nextRound > *tournament.MaxRounds {
		return nil // terminal match
	}

	destNumber, slot := brackets.NextRoundPosition(matchup.MatchNumber)
	zero := 0
	winner.Score = &zero

	dest, err := s.matchupRepo.GetByPosition(ctx, tournament.ID, nextRound, destNumber)
	if errors.Is(err, repositories.ErrMatchupNotFound) {
		created := &models.Matchup{
			TournamentID: tournament.ID,
			Round:        nextRound,
			MatchNumber:  destNumber,
			Players:      [2]models.BracketPlayer{models.PlaceholderPlayer(), models.PlaceholderPlayer()},
			Version:      1,
		}
		created.Players[slot] = winner
		createErr := s.matchupRepo.Create(ctx, nil, created)
		if createErr == nil {
			s.notifier.MatchupChanged(tournament.ID, created)
			return nil
		}
		if !errors.Is(createErr, repositories.ErrMatchupPositionTaken) {
			return fmt.Errorf("failed to create destination matchup: %w", createErr)
		}
		// Lost a create race; fall through to the update path.
		dest, err = s.matchupRepo.GetByPosition(ctx, tournament.ID, nextRound, destNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to load destination matchup: %w", err)
	}

	if dest.Players[slot].UUID == winner.UUID {
		return nil // already propagated
	}
	dest.Players[slot] = winner
	if err := s.matchupRepo.Update(ctx, nil, dest); err != nil {
		return fmt.Errorf("failed to write winner into destination matchup %d: %w", dest.ID, err)
	}
	s.notifier.MatchupChanged(tournament.ID, dest)
	return nil
}

// rollbackPropagation clears a previously advanced winner back to a
// placeholder slot. The lock check has already guaranteed the destination
// holds no result of its own, so rollback never cascades more than this
// one hop.
func (s *resultService) rollbackPropagation(ctx context.Context, tournament *models.Tournament, matchup *models.Matchup, prevWinner string, dest *models.Matchup) error {
	if dest == nil {
		return nil
	}
	_, slot := brackets.NextRoundPosition(matchup.MatchNumber)
	if dest.Players[slot].UUID != prevWinner {
		return nil
	}
	dest.Players[slot] = models.PlaceholderPlayer()
	if err := s.matchupRepo.Update(ctx, nil, dest); err != nil {
		return fmt.Errorf("failed to clear destination slot of matchup %d: %w", dest.ID, err)
	}
	s.notifier.MatchupChanged(tournament.ID, dest)
	return nil
}
