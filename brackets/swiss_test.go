package brackets

import (
	"testing"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decidedMatchup(round, number int, a, b models.BracketPlayer, winner string) *models.Matchup {
	m := &models.Matchup{
		Round:       round,
		MatchNumber: number,
		Players:     [2]models.BracketPlayer{a, b},
	}
	if winner != "" {
		m.WinnerUUID = &winner
	} else {
		m.IsTie = true
	}
	return m
}

func TestComputeRecords(t *testing.T) {
	players := testPlayers(4)
	a, b, c, d := players[0], players[1], players[2], players[3]

	score := func(p models.BracketPlayer, s int) models.BracketPlayer {
		p.Score = &s
		return p
	}

	history := []*models.Matchup{
		decidedMatchup(1, 1, score(a, 3), score(b, 1), "a"),
		decidedMatchup(1, 2, score(c, 2), score(d, 2), ""),
		// Open matches contribute nothing.
		{Round: 2, MatchNumber: 1, Players: [2]models.BracketPlayer{a, c}},
	}

	records := ComputeRecords(players, history)
	require.Len(t, records, 4)

	assert.Equal(t, PlayerRecord{Player: a, Wins: 1, Points: 3}, records[0])
	assert.Equal(t, PlayerRecord{Player: b, Losses: 1, Points: 1}, records[1])
	assert.Equal(t, PlayerRecord{Player: c, Ties: 1, Points: 2}, records[2])
	assert.Equal(t, PlayerRecord{Player: d, Ties: 1, Points: 2}, records[3])
}

func TestRankRecordsOrdering(t *testing.T) {
	records := []PlayerRecord{
		{Player: models.BracketPlayer{UUID: "low"}, Wins: 0, Losses: 2},
		{Player: models.BracketPlayer{UUID: "tied"}, Wins: 1, Losses: 0, Ties: 1},
		{Player: models.BracketPlayer{UUID: "top"}, Wins: 2},
		{Player: models.BracketPlayer{UUID: "mid"}, Wins: 1, Losses: 1},
	}
	ranked := RankRecords(records)

	uuids := make([]string, len(ranked))
	for i, r := range ranked {
		uuids[i] = r.Player.UUID
	}
	assert.Equal(t, []string{"top", "tied", "mid", "low"}, uuids)
}

func TestSwissRoundOnePairsInOrder(t *testing.T) {
	g := NewSwissGenerator()
	matchups, err := g.Generate(GenerateParams{TournamentID: 1, Players: testPlayers(4)})
	require.NoError(t, err)
	require.Len(t, matchups, 2)

	assert.Equal(t, "a", matchups[0].Players[0].UUID)
	assert.Equal(t, "b", matchups[0].Players[1].UUID)
	assert.Equal(t, "c", matchups[1].Players[0].UUID)
	assert.Equal(t, "d", matchups[1].Players[1].UUID)
}

func TestSwissAvoidsRepeatPairings(t *testing.T) {
	players := testPlayers(4)
	a, b, c, d := players[0], players[1], players[2], players[3]

	history := []*models.Matchup{
		decidedMatchup(1, 1, a, b, "a"),
		decidedMatchup(1, 2, c, d, "c"),
	}

	var pairer SwissPairer
	matchups, err := pairer.PairRound(1, 2, players, history)
	require.NoError(t, err)
	require.Len(t, matchups, 2)

	// Winners meet winners, losers meet losers; nobody repeats round 1.
	assert.Equal(t, "a", matchups[0].Players[0].UUID)
	assert.Equal(t, "c", matchups[0].Players[1].UUID)
	assert.Equal(t, "b", matchups[1].Players[0].UUID)
	assert.Equal(t, "d", matchups[1].Players[1].UUID)

	for _, m := range matchups {
		assert.Equal(t, 2, m.Round)
		assert.Nil(t, m.WinnerUUID)
	}
}

func TestSwissOddPlayerGetsBye(t *testing.T) {
	var pairer SwissPairer
	matchups, err := pairer.PairRound(1, 1, testPlayers(3), nil)
	require.NoError(t, err)
	require.Len(t, matchups, 2)

	bye := matchups[1]
	require.True(t, bye.IsBye())
	require.NotNil(t, bye.WinnerUUID)
	assert.Equal(t, "c", *bye.WinnerUUID)
}

func TestSwissRepeatsOnlyAsLastResort(t *testing.T) {
	players := testPlayers(2)
	history := []*models.Matchup{
		decidedMatchup(1, 1, players[0], players[1], "a"),
	}

	var pairer SwissPairer
	matchups, err := pairer.PairRound(1, 2, players, history)
	require.NoError(t, err)
	require.Len(t, matchups, 1)

	assert.Equal(t, "a", matchups[0].Players[0].UUID)
	assert.Equal(t, "b", matchups[0].Players[1].UUID)
}

func TestSwissPairRoundErrors(t *testing.T) {
	var pairer SwissPairer

	_, err := pairer.PairRound(1, 1, nil, nil)
	assert.ErrorIs(t, err, ErrNoEligiblePlayers)

	_, err = pairer.PairRound(1, 1, testPlayers(1), nil)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}
