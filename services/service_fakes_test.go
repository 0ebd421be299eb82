package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/repositories"
)

// In-memory repository fakes. They copy on read and write and enforce the
// same constraints the Postgres schema does (position uniqueness, version
// compare-and-swap, one pending report per reporter).

type positionKey struct {
	tournamentID int
	round        int
	matchNumber  int
}

type fakeMatchupRepo struct {
	byID      map[int]*models.Matchup
	positions map[positionKey]int
	nextID    int

	// updateErr is consumed by the next Update call, simulating a lost race.
	updateErr error
}

func newFakeMatchupRepo() *fakeMatchupRepo {
	return &fakeMatchupRepo{
		byID:      make(map[int]*models.Matchup),
		positions: make(map[positionKey]int),
	}
}

func copyMatchup(m *models.Matchup) *models.Matchup {
	c := *m
	return &c
}

func (r *fakeMatchupRepo) Create(_ context.Context, _ repositories.SQLExecutor, matchup *models.Matchup) error {
	key := positionKey{matchup.TournamentID, matchup.Round, matchup.MatchNumber}
	if _, taken := r.positions[key]; taken {
		return repositories.ErrMatchupPositionTaken
	}
	r.nextID++
	matchup.ID = r.nextID
	if matchup.Version == 0 {
		matchup.Version = 1
	}
	r.byID[matchup.ID] = copyMatchup(matchup)
	r.positions[key] = matchup.ID
	return nil
}

func (r *fakeMatchupRepo) InsertRound(ctx context.Context, matchups []*models.Matchup) error {
	inserted := make([]*models.Matchup, 0, len(matchups))
	for _, m := range matchups {
		if err := r.Create(ctx, nil, m); err != nil {
			for _, done := range inserted {
				delete(r.byID, done.ID)
				delete(r.positions, positionKey{done.TournamentID, done.Round, done.MatchNumber})
			}
			return err
		}
		inserted = append(inserted, m)
	}
	return nil
}

func (r *fakeMatchupRepo) GetByID(_ context.Context, id int) (*models.Matchup, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchupNotFound
	}
	return copyMatchup(m), nil
}

func (r *fakeMatchupRepo) GetByPosition(_ context.Context, tournamentID, round, matchNumber int) (*models.Matchup, error) {
	id, ok := r.positions[positionKey{tournamentID, round, matchNumber}]
	if !ok {
		return nil, repositories.ErrMatchupNotFound
	}
	return copyMatchup(r.byID[id]), nil
}

func (r *fakeMatchupRepo) ListByTournament(_ context.Context, tournamentID int, round *int) ([]*models.Matchup, error) {
	matchups := make([]*models.Matchup, 0)
	for _, m := range r.byID {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		matchups = append(matchups, copyMatchup(m))
	}
	sort.Slice(matchups, func(i, j int) bool {
		if matchups[i].Round != matchups[j].Round {
			return matchups[i].Round < matchups[j].Round
		}
		return matchups[i].MatchNumber < matchups[j].MatchNumber
	})
	return matchups, nil
}

func (r *fakeMatchupRepo) MaxRound(_ context.Context, tournamentID int) (int, error) {
	maxRound := 0
	for _, m := range r.byID {
		if m.TournamentID == tournamentID && m.Round > maxRound {
			maxRound = m.Round
		}
	}
	return maxRound, nil
}

func (r *fakeMatchupRepo) Update(_ context.Context, _ repositories.SQLExecutor, matchup *models.Matchup) error {
	if r.updateErr != nil {
		err := r.updateErr
		r.updateErr = nil
		return err
	}
	stored, ok := r.byID[matchup.ID]
	if !ok {
		return repositories.ErrMatchupNotFound
	}
	if stored.Version != matchup.Version {
		return repositories.ErrMatchupVersionConflict
	}
	matchup.Version++
	r.byID[matchup.ID] = copyMatchup(matchup)
	return nil
}

type fakeTournamentRepo struct {
	byID   map[int]*models.Tournament
	nextID int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: make(map[int]*models.Tournament)}
}

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	return &c
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	for _, existing := range r.byID {
		if existing.Name == tournament.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	r.nextID++
	tournament.ID = r.nextID
	r.byID[tournament.ID] = copyTournament(tournament)
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func (r *fakeTournamentRepo) List(_ context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	tournaments := make([]*models.Tournament, 0)
	for _, t := range r.byID {
		if status != nil && t.Status != *status {
			continue
		}
		tournaments = append(tournaments, copyTournament(t))
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })
	return tournaments, nil
}

func (r *fakeTournamentRepo) UpdateSettings(_ context.Context, tournament *models.Tournament) error {
	stored, ok := r.byID[tournament.ID]
	if !ok || stored.Status != models.StatusInitialization {
		return repositories.ErrTournamentNotFound
	}
	stored.Name = tournament.Name
	stored.Format = tournament.Format
	stored.MaxRounds = tournament.MaxRounds
	stored.SettingsJSON = tournament.SettingsJSON
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, id int, from, to models.TournamentStatus) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.Status != from {
		return repositories.ErrTournamentStatusStale
	}
	stored.Status = to
	return nil
}

func (r *fakeTournamentRepo) SetMaxRounds(_ context.Context, id int, maxRounds *int) error {
	stored, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.MaxRounds = maxRounds
	return nil
}

type fakeRosterRepo struct {
	entries []*models.RosterEntry
	nextID  int
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{}
}

func (r *fakeRosterRepo) Add(_ context.Context, entry *models.RosterEntry) error {
	for _, e := range r.entries {
		if e.TournamentID == entry.TournamentID && e.PlayerUUID == entry.PlayerUUID {
			return repositories.ErrRosterDuplicate
		}
	}
	r.nextID++
	entry.ID = r.nextID
	stored := *entry
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *fakeRosterRepo) ListByTournament(_ context.Context, tournamentID int, status *models.RosterStatus) ([]*models.RosterEntry, error) {
	entries := make([]*models.RosterEntry, 0)
	for _, e := range r.entries {
		if e.TournamentID != tournamentID {
			continue
		}
		if status != nil && e.Status != *status {
			continue
		}
		c := *e
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func (r *fakeRosterRepo) UpdateStatus(_ context.Context, id int, status models.RosterStatus) error {
	for _, e := range r.entries {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return repositories.ErrRosterEntryNotFound
}

type fakeReportRepo struct {
	byID  map[string]*models.ScoreReport
	order []string
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{byID: make(map[string]*models.ScoreReport)}
}

func copyReport(r *models.ScoreReport) *models.ScoreReport {
	c := *r
	return &c
}

func (r *fakeReportRepo) Create(_ context.Context, report *models.ScoreReport) error {
	for _, existing := range r.byID {
		if existing.MatchID == report.MatchID &&
			existing.ReporterID == report.ReporterID &&
			existing.Status == models.ReportPending {
			return repositories.ErrDuplicatePendingReport
		}
	}
	r.byID[report.ID] = copyReport(report)
	r.order = append(r.order, report.ID)
	return nil
}

func (r *fakeReportRepo) GetByID(_ context.Context, id string) (*models.ScoreReport, error) {
	report, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrReportNotFound
	}
	return copyReport(report), nil
}

func (r *fakeReportRepo) ListByMatch(_ context.Context, matchID int) ([]*models.ScoreReport, error) {
	reports := make([]*models.ScoreReport, 0)
	for _, id := range r.order {
		report, ok := r.byID[id]
		if ok && report.MatchID == matchID {
			reports = append(reports, copyReport(report))
		}
	}
	return reports, nil
}

func (r *fakeReportRepo) Update(_ context.Context, report *models.ScoreReport) error {
	stored, ok := r.byID[report.ID]
	if !ok || stored.Status != models.ReportPending {
		return repositories.ErrReportNotFound
	}
	stored.Scores = report.Scores
	stored.WinnerUUID = report.WinnerUUID
	stored.IsTie = report.IsTie
	return nil
}

func (r *fakeReportRepo) UpdateStatus(_ context.Context, id string, from, to models.ReportStatus) error {
	stored, ok := r.byID[id]
	if !ok || stored.Status != from {
		return repositories.ErrReportNotFound
	}
	stored.Status = to
	return nil
}

func (r *fakeReportRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrReportNotFound
	}
	delete(r.byID, id)
	for i, orderedID := range r.order {
		if orderedID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// recordingNotifier counts notifications by type for assertions.
type recordingNotifier struct {
	matchupChanged  int
	roundsGenerated []int
	completed       []int
}

func (n *recordingNotifier) MatchupChanged(int, *models.Matchup) {
	n.matchupChanged++
}

func (n *recordingNotifier) RoundGenerated(_ int, round int, _ []*models.Matchup) {
	n.roundsGenerated = append(n.roundsGenerated, round)
}

func (n *recordingNotifier) TournamentCompleted(tournamentID int) {
	n.completed = append(n.completed, tournamentID)
}

func mustSettings(t *models.Tournament, settings models.TournamentSettings) {
	if err := t.SetSettings(settings); err != nil {
		panic(fmt.Sprintf("failed to encode settings: %v", err))
	}
}
