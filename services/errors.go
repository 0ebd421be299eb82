package services

import (
	"errors"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/repositories"
)

// Errors shared across services and the HTTP mapping. Every command returns
// one of these as a typed result; Classify buckets them for the transport
// layer.

var (
	// Validation: malformed input or a business rule broken by the request itself.
	ErrValidationFailed      = errors.New("validation failed")
	ErrWinnerNotInMatchup    = errors.New("declared winner is not a player of this matchup")
	ErrWinnerAndTie          = errors.New("a result cannot declare both a winner and a tie")
	ErrScoreForUnknownPlayer = errors.New("score submitted for a player not in this matchup")
	ErrReporterNotInMatch    = errors.New("reporter is not a participant of this match")
	ErrUnknownPairingMode    = errors.New("unknown pairing mode")
	ErrUnsupportedFormat     = errors.New("operation is not supported for this tournament format")
	ErrInsufficientPlayers   = errors.New("not enough active players (minimum 2 required)")

	// Conflicts: optimistic-concurrency races and duplicate generation.
	ErrVersionConflict       = errors.New("matchup was modified concurrently, re-read and retry")
	ErrRoundAlreadyGenerated = errors.New("this round has already been generated")
	ErrTournamentStateRaced  = errors.New("tournament state changed concurrently")

	// State: operation invalid for the current lifecycle state.
	ErrMatchupLocked         = errors.New("matchup is locked: a downstream result already depends on it")
	ErrReportAlreadyPending  = errors.New("reporter already has a pending report for this match")
	ErrReportAlreadyAccepted = errors.New("score report has already been accepted")
	ErrReportNotPending      = errors.New("score report is no longer pending")
	ErrNotReporter           = errors.New("only the original reporter may modify a pending report")
	ErrTournamentNotStarted  = errors.New("tournament has not been started")
	ErrTournamentStarted     = errors.New("tournament configuration is immutable once started")
	ErrTournamentCompleted   = errors.New("tournament is already completed")
	ErrMaxRoundsReached      = errors.New("the configured maximum number of rounds has been reached")
	ErrWinConditionMet       = errors.New("a player has already met the points-to-win threshold")
	ErrBracketAlreadyBuilt   = errors.New("initial bracket has already been built")

	// Not found.
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchupNotFound    = errors.New("matchup not found")
	ErrReportNotFound     = errors.New("score report not found")

	// Partial success: the primary write committed but a side-effect write
	// failed. The caller's result stands; the bracket may need repair, and
	// re-declaring the same result replays propagation safely.
	ErrPartialPropagation = errors.New("result recorded, but winner propagation failed")
)

// ErrorClass buckets service errors for transport mapping and retry policy.
// Only ClassConflict is worth retrying, and only once.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassConflict
	ClassState
	ClassNotFound
	ClassPartial
)

func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrWinnerNotInMatchup),
		errors.Is(err, ErrWinnerAndTie),
		errors.Is(err, ErrScoreForUnknownPlayer),
		errors.Is(err, ErrReporterNotInMatch),
		errors.Is(err, ErrUnknownPairingMode),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrInsufficientPlayers),
		errors.Is(err, brackets.ErrInsufficientPlayers),
		errors.Is(err, brackets.ErrNoEligiblePlayers):
		return ClassValidation
	case errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrRoundAlreadyGenerated),
		errors.Is(err, ErrTournamentStateRaced),
		errors.Is(err, repositories.ErrMatchupVersionConflict),
		errors.Is(err, repositories.ErrMatchupPositionTaken):
		return ClassConflict
	case errors.Is(err, ErrMatchupLocked),
		errors.Is(err, ErrReportAlreadyPending),
		errors.Is(err, ErrReportAlreadyAccepted),
		errors.Is(err, ErrReportNotPending),
		errors.Is(err, ErrNotReporter),
		errors.Is(err, ErrTournamentNotStarted),
		errors.Is(err, ErrTournamentStarted),
		errors.Is(err, ErrTournamentCompleted),
		errors.Is(err, ErrMaxRoundsReached),
		errors.Is(err, ErrWinConditionMet),
		errors.Is(err, ErrBracketAlreadyBuilt):
		return ClassState
	case errors.Is(err, ErrTournamentNotFound),
		errors.Is(err, ErrMatchupNotFound),
		errors.Is(err, ErrReportNotFound),
		errors.Is(err, repositories.ErrMatchupNotFound),
		errors.Is(err, repositories.ErrReportNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound):
		return ClassNotFound
	case errors.Is(err, ErrPartialPropagation):
		return ClassPartial
	default:
		return ClassInternal
	}
}
