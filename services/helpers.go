package services

import (
	"math/rand"

	"github.com/dkhalitov/bracket-engine/models"
)

// PairingMode controls the order players enter the initial bracket.
type PairingMode string

const (
	PairingRandom PairingMode = "random"
	PairingSeeded PairingMode = "seeded"
	PairingRanked PairingMode = "ranked"
)

// orderPlayers applies the pairing mode to a roster already sorted by
// seeding position. random shuffles the whole field; seeded shuffles within
// consecutive seed bands of the given size; ranked keeps roster order.
func orderPlayers(mode PairingMode, entries []*models.RosterEntry, seedGroupSize int, rng *rand.Rand) ([]models.BracketPlayer, error) {
	players := make([]models.BracketPlayer, len(entries))
	for i, e := range entries {
		players[i] = e.BracketPlayer()
	}

	switch mode {
	case PairingRandom:
		rng.Shuffle(len(players), func(i, j int) {
			players[i], players[j] = players[j], players[i]
		})
	case PairingSeeded:
		if seedGroupSize < 2 {
			seedGroupSize = 2
		}
		for start := 0; start < len(players); start += seedGroupSize {
			end := start + seedGroupSize
			if end > len(players) {
				end = len(players)
			}
			band := players[start:end]
			rng.Shuffle(len(band), func(i, j int) {
				band[i], band[j] = band[j], band[i]
			})
		}
	case PairingRanked:
		// Roster order is the ranking.
	default:
		return nil, ErrUnknownPairingMode
	}
	return players, nil
}

func intPtr(v int) *int {
	return &v
}
