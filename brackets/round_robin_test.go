package brackets

import (
	"testing"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairCounts(matchups []*models.Matchup) map[string]int {
	counts := make(map[string]int)
	for _, m := range matchups {
		counts[pairKey(m.Players[0].UUID, m.Players[1].UUID)]++
	}
	return counts
}

func TestRoundRobinSingleLegEvenField(t *testing.T) {
	g := NewRoundRobinGenerator(1)
	matchups, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(4)})
	require.NoError(t, err)
	require.Len(t, matchups, 6)

	// Every pair meets exactly once.
	counts := pairCounts(matchups)
	assert.Len(t, counts, 6)
	for pair, count := range counts {
		assert.Equal(t, 1, count, "pair %s", pair)
	}

	// Three rounds of two matches; no player appears twice in a round.
	perRound := make(map[int][]string)
	for _, m := range matchups {
		perRound[m.Round] = append(perRound[m.Round], m.Players[0].UUID, m.Players[1].UUID)
	}
	require.Len(t, perRound, 3)
	for round, uuids := range perRound {
		require.Len(t, uuids, 4, "round %d", round)
		seen := make(map[string]bool)
		for _, id := range uuids {
			assert.False(t, seen[id], "player %s plays twice in round %d", id, round)
			seen[id] = true
		}
	}
}

func TestRoundRobinOddFieldRotatesBye(t *testing.T) {
	g := NewRoundRobinGenerator(1)
	matchups, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(3)})
	require.NoError(t, err)
	require.Len(t, matchups, 3)

	// No placeholder rows are written; whoever draws the placeholder just
	// sits the round out, once each across the three rounds.
	appearances := make(map[string]int)
	for _, m := range matchups {
		require.False(t, m.Players[0].IsPlaceholder())
		require.False(t, m.Players[1].IsPlaceholder())
		appearances[m.Players[0].UUID]++
		appearances[m.Players[1].UUID]++
	}
	require.Len(t, appearances, 3)
	for id, count := range appearances {
		assert.Equal(t, 2, count, "player %s", id)
	}
}

func TestRoundRobinTwoLegsSwapsHomeAway(t *testing.T) {
	g := NewRoundRobinGenerator(2)
	matchups, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(4)})
	require.NoError(t, err)
	require.Len(t, matchups, 12)

	counts := pairCounts(matchups)
	assert.Len(t, counts, 6)
	for pair, count := range counts {
		assert.Equal(t, 2, count, "pair %s", pair)
	}

	// The second leg mirrors the first with home and away swapped.
	type ordered struct{ home, away string }
	firstLeg := make(map[string]ordered)
	for _, m := range matchups {
		key := pairKey(m.Players[0].UUID, m.Players[1].UUID)
		if m.Round <= 3 {
			firstLeg[key] = ordered{m.Players[0].UUID, m.Players[1].UUID}
			continue
		}
		first, ok := firstLeg[key]
		require.True(t, ok, "second-leg pair %s missing from first leg", key)
		assert.Equal(t, first.home, m.Players[1].UUID)
		assert.Equal(t, first.away, m.Players[0].UUID)
	}
}

func TestRoundRobinDefaultsToTwoLegs(t *testing.T) {
	g := NewRoundRobinGenerator(0)
	matchups, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(2)})
	require.NoError(t, err)
	assert.Len(t, matchups, 2)
}

func TestRoundRobinTooFewPlayers(t *testing.T) {
	g := NewRoundRobinGenerator(1)
	_, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(1)})
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}
