package brackets

import (
	"sort"

	"github.com/dkhalitov/bracket-engine/models"
)

// PlayerRecord is a player's accumulated win/loss/tie record plus total
// points scored, computed from finalized matchups.
type PlayerRecord struct {
	Player models.BracketPlayer
	Wins   int
	Losses int
	Ties   int
	Points int
}

// ComputeRecords scans all finalized matchups and tallies each player's
// record. Output preserves the relative order of the input player list, so
// a stable sort on top of it keeps equal-record players in their prior
// order.
func ComputeRecords(players []models.BracketPlayer, history []*models.Matchup) []PlayerRecord {
	index := make(map[string]int, len(players))
	records := make([]PlayerRecord, len(players))
	for i, p := range players {
		records[i] = PlayerRecord{Player: p}
		index[p.UUID] = i
	}

	for _, m := range history {
		if !m.Decided() {
			continue
		}
		for _, p := range m.Players {
			if p.IsPlaceholder() {
				continue
			}
			i, ok := index[p.UUID]
			if !ok {
				continue
			}
			if p.Score != nil {
				records[i].Points += *p.Score
			}
			switch {
			case m.IsTie:
				records[i].Ties++
			case m.WinnerUUID != nil && *m.WinnerUUID == p.UUID:
				records[i].Wins++
			default:
				records[i].Losses++
			}
		}
	}
	return records
}

// RankRecords orders records by wins descending, losses ascending, ties
// descending. The sort is stable: equal records keep their input order.
func RankRecords(records []PlayerRecord) []PlayerRecord {
	ranked := make([]PlayerRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		if ranked[i].Losses != ranked[j].Losses {
			return ranked[i].Losses < ranked[j].Losses
		}
		return ranked[i].Ties > ranked[j].Ties
	})
	return ranked
}

// pairKey builds an order-independent key for a player pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// previousPairings collects every pair of players that has already met.
func previousPairings(history []*models.Matchup) map[string]bool {
	met := make(map[string]bool)
	for _, m := range history {
		if m.Players[0].IsPlaceholder() || m.Players[1].IsPlaceholder() {
			continue
		}
		met[pairKey(m.Players[0].UUID, m.Players[1].UUID)] = true
	}
	return met
}

// SwissPairer generates the next Swiss round from the full match history.
type SwissPairer struct{}

// PairRound ranks players by record and pairs greedily from the top: each
// unpaired player is matched with the first lower-ranked unpaired player
// they have not already faced. A repeat pairing is allowed only when every
// remaining candidate has been faced. With an odd player count, the last
// unpaired player receives a bye against a placeholder with an immediate
// win recorded.
func (SwissPairer) PairRound(tournamentID, round int, players []models.BracketPlayer, history []*models.Matchup) ([]*models.Matchup, error) {
	if len(players) == 0 {
		return nil, ErrNoEligiblePlayers
	}
	if len(players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	ranked := RankRecords(ComputeRecords(players, history))
	met := previousPairings(history)

	paired := make([]bool, len(ranked))
	matchups := make([]*models.Matchup, 0, (len(ranked)+1)/2)
	matchNumber := 0

	newMatchup := func(p1, p2 models.BracketPlayer) *models.Matchup {
		matchNumber++
		if !p1.IsPlaceholder() {
			zero := 0
			p1.Score = &zero
		}
		if !p2.IsPlaceholder() {
			zero := 0
			p2.Score = &zero
		}
		return &models.Matchup{
			TournamentID: tournamentID,
			Round:        round,
			MatchNumber:  matchNumber,
			Players:      [2]models.BracketPlayer{p1, p2},
			Version:      1,
		}
	}

	for i := range ranked {
		if paired[i] {
			continue
		}
		opponent := -1
		fallback := -1
		for j := i + 1; j < len(ranked); j++ {
			if paired[j] {
				continue
			}
			if fallback == -1 {
				fallback = j
			}
			if !met[pairKey(ranked[i].Player.UUID, ranked[j].Player.UUID)] {
				opponent = j
				break
			}
		}
		if opponent == -1 {
			// Every remaining candidate has been faced; repeat as last resort.
			opponent = fallback
		}
		if opponent == -1 {
			// Odd player out: bye with an immediate win.
			m := newMatchup(ranked[i].Player, models.PlaceholderPlayer())
			winner := ranked[i].Player.UUID
			m.WinnerUUID = &winner
			matchups = append(matchups, m)
			paired[i] = true
			continue
		}
		matchups = append(matchups, newMatchup(ranked[i].Player, ranked[opponent].Player))
		paired[i] = true
		paired[opponent] = true
	}

	return matchups, nil
}

// SwissGenerator builds round 1 of a Swiss tournament. With no history the
// pairer matches players in roster order.
type SwissGenerator struct {
	pairer SwissPairer
}

func NewSwissGenerator() RoundGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) Name() string {
	return "Swiss"
}

func (g *SwissGenerator) Generate(params GenerateParams) ([]*models.Matchup, error) {
	return g.pairer.PairRound(params.TournamentID, 1, params.Players, nil)
}
