package services

import (
	"context"
	"testing"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	*resultFixture
	reportRepo *fakeReportRepo
	reports    ReportService
}

func newReportFixture(t *testing.T, settings models.TournamentSettings) *reportFixture {
	t.Helper()
	base := newEliminationFixture(t, settings)
	reportRepo := newFakeReportRepo()
	return &reportFixture{
		resultFixture: base,
		reportRepo:    reportRepo,
		reports:       NewReportService(reportRepo, base.matchupRepo, base.tournamentRepo, base.service, testLogger()),
	}
}

func submitReport(t *testing.T, f *reportFixture, reporter string, winner string) *models.ScoreReport {
	t.Helper()
	params := SubmitReportParams{
		MatchID:    f.match1.ID,
		ReporterID: reporter,
		Scores: []models.PlayerScore{
			{PlayerUUID: "a", Score: 2},
			{PlayerUUID: "b", Score: 1},
		},
	}
	if winner != "" {
		params.WinnerUUID = &winner
	}
	report, err := f.reports.Submit(context.Background(), params)
	require.NoError(t, err)
	return report
}

func TestSubmitReport(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})

	report := submitReport(t, f, "a", "a")
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Equal(t, f.tournament.ID, report.TournamentID)

	// A second pending report from the same reporter is refused.
	winner := "a"
	_, err := f.reports.Submit(context.Background(), SubmitReportParams{
		MatchID:    f.match1.ID,
		ReporterID: "a",
		WinnerUUID: &winner,
	})
	assert.ErrorIs(t, err, ErrReportAlreadyPending)
}

func TestSubmitReportRejectsOutsiders(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})

	_, err := f.reports.Submit(context.Background(), SubmitReportParams{
		MatchID:    f.match1.ID,
		ReporterID: "z",
	})
	assert.ErrorIs(t, err, ErrReporterNotInMatch)
}

func TestEditReport(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})
	report := submitReport(t, f, "a", "a")

	winner := "b"
	edited, err := f.reports.Edit(context.Background(), report.ID, "a", SubmitReportParams{
		WinnerUUID: &winner,
		Scores:     []models.PlayerScore{{PlayerUUID: "b", Score: 5}},
	})
	require.NoError(t, err)
	require.NotNil(t, edited.WinnerUUID)
	assert.Equal(t, "b", *edited.WinnerUUID)

	// Only the original reporter may touch it.
	_, err = f.reports.Edit(context.Background(), report.ID, "b", SubmitReportParams{IsTie: true})
	assert.ErrorIs(t, err, ErrNotReporter)
}

func TestDeleteReport(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})
	report := submitReport(t, f, "a", "a")

	assert.ErrorIs(t, f.reports.Delete(context.Background(), report.ID, "b"), ErrNotReporter)
	require.NoError(t, f.reports.Delete(context.Background(), report.ID, "a"))

	err := f.reports.Delete(context.Background(), report.ID, "a")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestAcceptReportCommitsResult(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})
	mine := submitReport(t, f, "a", "a")

	// The opponent disagrees; their report stays pending after acceptance.
	winner := "b"
	theirs, err := f.reports.Submit(context.Background(), SubmitReportParams{
		MatchID:    f.match1.ID,
		ReporterID: "b",
		WinnerUUID: &winner,
	})
	require.NoError(t, err)

	matchup, err := f.reports.Accept(context.Background(), mine.ID)
	require.NoError(t, err)
	require.NotNil(t, matchup.WinnerUUID)
	assert.Equal(t, "a", *matchup.WinnerUUID)
	require.NotNil(t, matchup.Players[0].Score)
	assert.Equal(t, 2, *matchup.Players[0].Score)

	accepted, err := f.reportRepo.GetByID(context.Background(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, accepted.Status)

	sibling, err := f.reportRepo.GetByID(context.Background(), theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, sibling.Status)

	// Accepting propagates like any declared result.
	dest, err := f.matchupRepo.GetByPosition(context.Background(), f.tournament.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", dest.Players[0].UUID)

	_, err = f.reports.Accept(context.Background(), mine.ID)
	assert.ErrorIs(t, err, ErrReportAlreadyAccepted)
}

func TestAutoAcceptAgreedReports(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{AutoAcceptAgreed: true})

	first := submitReport(t, f, "a", "a")
	second := submitReport(t, f, "b", "a")

	// Both sides claim the same outcome, so the second submission commits it.
	matchup, err := f.matchupRepo.GetByID(context.Background(), f.match1.ID)
	require.NoError(t, err)
	require.NotNil(t, matchup.WinnerUUID)
	assert.Equal(t, "a", *matchup.WinnerUUID)

	accepted, err := f.reportRepo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, accepted.Status)

	other, err := f.reportRepo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, other.Status)
}

func TestAutoAcceptSkipsDisagreement(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{AutoAcceptAgreed: true})

	submitReport(t, f, "a", "a")
	submitReport(t, f, "b", "b")

	matchup, err := f.matchupRepo.GetByID(context.Background(), f.match1.ID)
	require.NoError(t, err)
	assert.Nil(t, matchup.WinnerUUID)
}

func TestListByMatchAgreement(t *testing.T) {
	f := newReportFixture(t, models.TournamentSettings{})

	submitReport(t, f, "a", "a")
	view, err := f.reports.ListByMatch(context.Background(), f.match1.ID)
	require.NoError(t, err)
	assert.Len(t, view.Reports, 1)
	assert.Nil(t, view.Agree, "agreement is undefined with one report")

	submitReport(t, f, "b", "a")
	view, err = f.reports.ListByMatch(context.Background(), f.match1.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Agree)
	assert.True(t, *view.Agree)
}

func TestDoReportsMatch(t *testing.T) {
	winnerA := "a"
	winnerB := "b"
	scores := []models.PlayerScore{{PlayerUUID: "a", Score: 2}, {PlayerUUID: "b", Score: 1}}
	reversed := []models.PlayerScore{{PlayerUUID: "b", Score: 1}, {PlayerUUID: "a", Score: 2}}
	otherScores := []models.PlayerScore{{PlayerUUID: "a", Score: 3}, {PlayerUUID: "b", Score: 1}}

	tests := []struct {
		name string
		a, b *models.ScoreReport
		want bool
	}{
		{
			name: "identical claims",
			a:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			b:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			want: true,
		},
		{
			name: "score order does not matter",
			a:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			b:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: reversed},
			want: true,
		},
		{
			name: "different winners",
			a:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			b:    &models.ScoreReport{WinnerUUID: &winnerB, Scores: scores},
			want: false,
		},
		{
			name: "tie versus winner",
			a:    &models.ScoreReport{IsTie: true},
			b:    &models.ScoreReport{WinnerUUID: &winnerA},
			want: false,
		},
		{
			name: "agreeing ties ignore winner field",
			a:    &models.ScoreReport{IsTie: true},
			b:    &models.ScoreReport{IsTie: true},
			want: true,
		},
		{
			name: "different scores",
			a:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			b:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: otherScores},
			want: false,
		},
		{
			name: "missing scores on one side",
			a:    &models.ScoreReport{WinnerUUID: &winnerA, Scores: scores},
			b:    &models.ScoreReport{WinnerUUID: &winnerA},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doReportsMatch(tt.a, tt.b))
		})
	}
}
