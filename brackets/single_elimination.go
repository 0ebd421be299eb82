package brackets

import (
	"fmt"

	"github.com/dkhalitov/bracket-engine/models"
)

// SingleEliminationGenerator builds round 1 of a knockout bracket. Players
// beyond the natural power-of-two size are paired against a placeholder and
// auto-advanced: the bye matchup is created with its winner already
// recorded, and the destination round-2 matchup is pre-created with the bye
// winner placed in the correct slot.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() RoundGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Generate(params GenerateParams) ([]*models.Matchup, error) {
	players := params.Players
	n := len(players)
	if n < 2 {
		return nil, ErrInsufficientPlayers
	}

	size := BracketSize(n)
	byes := size - n
	totalMatches := size / 2
	fullPairs := totalMatches - byes
	if fullPairs < 0 {
		return nil, fmt.Errorf("inconsistent bracket sizing: %d players, %d slots, %d byes", n, size, byes)
	}

	matchups := make([]*models.Matchup, 0, totalMatches+byes/2+1)
	// Pre-created round-2 matchups receiving bye winners, by match number.
	nextRound := make(map[int]*models.Matchup)

	playerIdx := 0
	for matchNumber := 1; matchNumber <= totalMatches; matchNumber++ {
		m := &models.Matchup{
			TournamentID: params.TournamentID,
			Round:        1,
			MatchNumber:  matchNumber,
			Version:      1,
		}

		if matchNumber <= fullPairs {
			m.Players[0] = players[playerIdx]
			m.Players[1] = players[playerIdx+1]
			playerIdx += 2
		} else {
			// Bye: single player against a placeholder, auto-win on the spot.
			player := players[playerIdx]
			playerIdx++
			m.Players[0] = player
			m.Players[1] = models.PlaceholderPlayer()
			winner := player.UUID
			m.WinnerUUID = &winner

			destNumber, slot := NextRoundPosition(matchNumber)
			dest, ok := nextRound[destNumber]
			if !ok {
				dest = &models.Matchup{
					TournamentID: params.TournamentID,
					Round:        2,
					MatchNumber:  destNumber,
					Players:      [2]models.BracketPlayer{models.PlaceholderPlayer(), models.PlaceholderPlayer()},
					Version:      1,
				}
				nextRound[destNumber] = dest
			}
			advanced := player
			zero := 0
			advanced.Score = &zero
			dest.Players[slot] = advanced
		}
		matchups = append(matchups, m)
	}

	for matchNumber := 1; matchNumber <= totalMatches/2; matchNumber++ {
		if dest, ok := nextRound[matchNumber]; ok {
			matchups = append(matchups, dest)
		}
	}

	return matchups, nil
}
