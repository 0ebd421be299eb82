package brackets

import (
	"github.com/dkhalitov/bracket-engine/models"
)

// RoundRobinGenerator pre-generates the complete schedule for an N-player
// round robin using the circle method: one player stays fixed while the
// rest rotate, giving ceil(N/2) matchups per round across N-1 rounds. With
// two legs the cycle repeats with home/away slots swapped. For odd N a
// placeholder joins the rotation and whoever draws it sits the round out
// (no matchup row is written), so the bye rotates through the field.
type RoundRobinGenerator struct {
	legs int
}

func NewRoundRobinGenerator(legs int) RoundGenerator {
	if legs != 1 && legs != 2 {
		legs = 2
	}
	return &RoundRobinGenerator{legs: legs}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

func (g *RoundRobinGenerator) Generate(params GenerateParams) ([]*models.Matchup, error) {
	players := params.Players
	if len(players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	rotation := make([]models.BracketPlayer, len(players))
	copy(rotation, players)
	if len(rotation)%2 != 0 {
		rotation = append(rotation, models.PlaceholderPlayer())
	}
	n := len(rotation)
	roundsPerLeg := n - 1

	matchups := make([]*models.Matchup, 0, g.legs*roundsPerLeg*n/2)

	for leg := 0; leg < g.legs; leg++ {
		current := make([]models.BracketPlayer, n)
		copy(current, rotation)

		for r := 0; r < roundsPerLeg; r++ {
			round := leg*roundsPerLeg + r + 1
			matchNumber := 0
			for i := 0; i < n/2; i++ {
				home := current[i]
				away := current[n-1-i]
				if home.IsPlaceholder() || away.IsPlaceholder() {
					continue
				}
				if leg%2 != 0 {
					home, away = away, home
				}
				matchNumber++
				zeroHome, zeroAway := 0, 0
				home.Score = &zeroHome
				away.Score = &zeroAway
				matchups = append(matchups, &models.Matchup{
					TournamentID: params.TournamentID,
					Round:        round,
					MatchNumber:  matchNumber,
					Players:      [2]models.BracketPlayer{home, away},
					Version:      1,
				})
			}
			// Rotate everyone but the first player one step clockwise.
			last := current[n-1]
			copy(current[2:], current[1:n-1])
			current[1] = last
		}
	}

	return matchups, nil
}
