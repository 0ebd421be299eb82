package services

import (
	"context"
	"testing"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundFixture struct {
	tournamentRepo *fakeTournamentRepo
	rosterRepo     *fakeRosterRepo
	matchupRepo    *fakeMatchupRepo
	notifier       *recordingNotifier
	service        RoundService
	tournament     *models.Tournament
}

// newSwissFixture seeds a started 4-player Swiss tournament with round 1
// already generated: (a vs b) and (c vs d).
func newSwissFixture(t *testing.T, settings models.TournamentSettings, maxRounds *int) *roundFixture {
	t.Helper()
	f := &roundFixture{
		tournamentRepo: newFakeTournamentRepo(),
		rosterRepo:     newFakeRosterRepo(),
		matchupRepo:    newFakeMatchupRepo(),
		notifier:       &recordingNotifier{},
	}
	f.service = NewRoundService(f.tournamentRepo, f.rosterRepo, f.matchupRepo, f.notifier, testLogger())

	f.tournament = &models.Tournament{
		Name:      "Swiss Open",
		Format:    models.FormatSwiss,
		Status:    models.StatusStarted,
		MaxRounds: maxRounds,
	}
	mustSettings(f.tournament, settings)
	require.NoError(t, f.tournamentRepo.Create(context.Background(), f.tournament))

	for i := 0; i < 4; i++ {
		require.NoError(t, f.rosterRepo.Add(context.Background(), &models.RosterEntry{
			TournamentID: f.tournament.ID,
			PlayerUUID:   string(rune('a' + i)),
			Name:         "Player " + string(rune('A'+i)),
			Position:     i + 1,
			Status:       models.RosterActive,
		}))
	}

	round1 := []*models.Matchup{
		{TournamentID: f.tournament.ID, Round: 1, MatchNumber: 1,
			Players: [2]models.BracketPlayer{slotPlayer("a"), slotPlayer("b")}},
		{TournamentID: f.tournament.ID, Round: 1, MatchNumber: 2,
			Players: [2]models.BracketPlayer{slotPlayer("c"), slotPlayer("d")}},
	}
	require.NoError(t, f.matchupRepo.InsertRound(context.Background(), round1))
	return f
}

func (f *roundFixture) decide(t *testing.T, round, matchNumber int, winner string, points [2]int) {
	t.Helper()
	m, err := f.matchupRepo.GetByPosition(context.Background(), f.tournament.ID, round, matchNumber)
	require.NoError(t, err)
	m.WinnerUUID = &winner
	m.Players[0].Score = &points[0]
	m.Players[1].Score = &points[1]
	require.NoError(t, f.matchupRepo.Update(context.Background(), nil, m))
}

func TestStartNextRoundPairsByRecord(t *testing.T) {
	f := newSwissFixture(t, models.TournamentSettings{}, nil)
	f.decide(t, 1, 1, "a", [2]int{2, 0})
	f.decide(t, 1, 2, "c", [2]int{2, 1})

	result, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Round)
	assert.Empty(t, result.ForceSettled)
	require.Len(t, result.Matchups, 2)

	// Winners pair with winners; round-1 pairings never repeat.
	assert.Equal(t, "a", result.Matchups[0].Players[0].UUID)
	assert.Equal(t, "c", result.Matchups[0].Players[1].UUID)
	assert.Equal(t, "b", result.Matchups[1].Players[0].UUID)
	assert.Equal(t, "d", result.Matchups[1].Players[1].UUID)

	assert.Equal(t, []int{2}, f.notifier.roundsGenerated)
}

func TestStartNextRoundForceSettlesOpenMatches(t *testing.T) {
	f := newSwissFixture(t, models.TournamentSettings{}, nil)
	f.decide(t, 1, 1, "a", [2]int{2, 0})
	// Match 2 is left unresolved.

	result, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
	require.NoError(t, err)
	require.Len(t, result.ForceSettled, 1)

	settled, err := f.matchupRepo.GetByID(context.Background(), result.ForceSettled[0])
	require.NoError(t, err)
	assert.True(t, settled.IsTie)
	assert.Nil(t, settled.WinnerUUID)
}

func TestStartNextRoundDuplicateFails(t *testing.T) {
	f := newSwissFixture(t, models.TournamentSettings{}, nil)
	f.decide(t, 1, 1, "a", [2]int{2, 0})
	f.decide(t, 1, 2, "c", [2]int{2, 1})

	// Simulate a concurrent generator that committed round 2 between our
	// history read and our insert: the position is taken, so this attempt
	// must fail instead of double-pairing the field.
	f.matchupRepo.positions[positionKey{f.tournament.ID, 2, 1}] = 999

	_, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
	assert.ErrorIs(t, err, ErrRoundAlreadyGenerated)
}

func TestStartNextRoundGuards(t *testing.T) {
	t.Run("wrong format", func(t *testing.T) {
		f := newSwissFixture(t, models.TournamentSettings{}, nil)
		f.tournamentRepo.byID[f.tournament.ID].Format = models.FormatSingleElimination
		_, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("max rounds reached", func(t *testing.T) {
		f := newSwissFixture(t, models.TournamentSettings{}, intPtr(1))
		f.decide(t, 1, 1, "a", [2]int{2, 0})
		f.decide(t, 1, 2, "c", [2]int{2, 1})
		_, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
		assert.ErrorIs(t, err, ErrMaxRoundsReached)
	})

	t.Run("points to win met", func(t *testing.T) {
		settings := models.TournamentSettings{
			WinCondition: models.WinConditionPointsToWin,
			PointsToWin:  intPtr(5),
		}
		f := newSwissFixture(t, settings, nil)
		f.decide(t, 1, 1, "a", [2]int{6, 0})
		f.decide(t, 1, 2, "c", [2]int{2, 1})
		_, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
		assert.ErrorIs(t, err, ErrWinConditionMet)
	})

	t.Run("completed tournament", func(t *testing.T) {
		f := newSwissFixture(t, models.TournamentSettings{}, nil)
		f.tournamentRepo.byID[f.tournament.ID].Status = models.StatusCompleted
		_, err := f.service.StartNextRound(context.Background(), f.tournament.ID)
		assert.ErrorIs(t, err, ErrTournamentCompleted)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		f := newSwissFixture(t, models.TournamentSettings{}, nil)
		_, err := f.service.StartNextRound(context.Background(), 99)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})
}
