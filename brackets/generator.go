package brackets

import (
	"errors"

	"github.com/dkhalitov/bracket-engine/models"
)

var (
	ErrInsufficientPlayers = errors.New("not enough active players to build a bracket (minimum 2)")
	ErrNoEligiblePlayers   = errors.New("no eligible players left to pair")
)

// GenerateParams is the input common to all round generators.
type GenerateParams struct {
	TournamentID int
	Players      []models.BracketPlayer
}

// RoundGenerator produces the initial matchups for a tournament format.
// Round robin emits the complete schedule up front; the other formats emit
// round 1 (plus pre-created downstream matchups for bye winners).
type RoundGenerator interface {
	Generate(params GenerateParams) ([]*models.Matchup, error)

	Name() string
}
