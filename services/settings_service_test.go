package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

func newSettingsService(fixture *bracketFixture) *SettingsService {
	return NewSettingsService(fixture.settings, fixture.tournaments, fixture.participants, fakeTxRunner{})
}

func TestGetSettingsReturnsDefaultsWhenRowMissing(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	service := newSettingsService(fixture)

	settings, err := service.Get(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, settings.TeamLimit)
	assert.Equal(t, 1, settings.MatchBestOf)
	assert.Equal(t, 1, settings.FinalBestOf)
}

func TestGetSettingsReturnsStoredRow(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	service := newSettingsService(fixture)

	_, err := service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		TeamLimit:   intPtr(8),
		MatchBestOf: intPtr(3),
		FinalBestOf: intPtr(5),
	})
	require.NoError(t, err)

	settings, err := service.Get(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, settings.TeamLimit)
	assert.Equal(t, 3, settings.MatchBestOf)
	assert.Equal(t, 5, settings.FinalBestOf)
}

func TestGetSettingsUnknownTournament(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	service := newSettingsService(fixture)

	_, err := service.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUpdateSettingsValidation(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	service := newSettingsService(fixture)

	cases := []struct {
		name    string
		input   UpdateSettingsInput
		wantErr error
	}{
		{name: "limit below two", input: UpdateSettingsInput{TeamLimit: intPtr(1)}, wantErr: ErrTournamentInvalidLimit},
		{name: "even match best of", input: UpdateSettingsInput{MatchBestOf: intPtr(2)}, wantErr: ErrInvalidBestOf},
		{name: "match best of five", input: UpdateSettingsInput{MatchBestOf: intPtr(5)}, wantErr: ErrInvalidBestOf},
		{name: "match best of seven", input: UpdateSettingsInput{MatchBestOf: intPtr(7)}, wantErr: ErrInvalidBestOf},
		{name: "zero final best of", input: UpdateSettingsInput{FinalBestOf: intPtr(0)}, wantErr: ErrInvalidBestOf},
		{name: "final best of seven", input: UpdateSettingsInput{FinalBestOf: intPtr(7)}, wantErr: ErrInvalidBestOf},
		{name: "final best of nine", input: UpdateSettingsInput{MatchBestOf: intPtr(3), FinalBestOf: intPtr(9)}, wantErr: ErrInvalidBestOf},
		{name: "negative best of", input: UpdateSettingsInput{MatchBestOf: intPtr(-3)}, wantErr: ErrInvalidBestOf},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Update(context.Background(), tournament.ID, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUpdateSettingsRejectsLimitBelowApprovedCount(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament(10, 20, 30)
	service := newSettingsService(fixture)

	_, err := service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		TeamLimit: intPtr(2),
	})
	assert.ErrorIs(t, err, ErrTeamLimitBelowApproved)
}

func TestUpdateSettingsBlockedAfterSeeding(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament(10, 20)
	service := newSettingsService(fixture)

	_, err := fixture.bracket.Seed(context.Background(), tournament.ID, false)
	require.NoError(t, err)

	_, err = service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		TeamLimit: intPtr(8),
	})
	assert.ErrorIs(t, err, ErrTournamentNotEditable)
}

func TestUpdateSettingsMergesPartialInputWithStoredRow(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	service := newSettingsService(fixture)

	_, err := service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		TeamLimit:   intPtr(8),
		MatchBestOf: intPtr(3),
		FinalBestOf: intPtr(5),
	})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		TeamLimit: intPtr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, updated.TeamLimit)
	assert.Equal(t, 3, updated.MatchBestOf)
	assert.Equal(t, 5, updated.FinalBestOf)
}

func TestUpdateSettingsMergesPartialInputWithDefaults(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	service := newSettingsService(fixture)

	updated, err := service.Update(context.Background(), tournament.ID, UpdateSettingsInput{
		FinalBestOf: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, updated.TeamLimit)
	assert.Equal(t, 1, updated.MatchBestOf)
	assert.Equal(t, 3, updated.FinalBestOf)
}

// Отсутствие таблицы настроек это операционная ошибка, а не дефолты.
func TestMissingSettingsTableSurfacesMigrationError(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament(10, 20)
	fixture.settings.tableMissing = true
	service := newSettingsService(fixture)

	_, err := service.Get(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, repositories.ErrMigrationsRequired)

	_, err = fixture.bracket.Seed(context.Background(), tournament.ID, false)
	assert.ErrorIs(t, err, repositories.ErrMigrationsRequired)
}

func TestResolveSettingsPrefersStoredValues(t *testing.T) {
	fixture := newBracketFixture(t, nil)
	tournament := fixture.addDraftTournament()
	require.NoError(t, fixture.settings.Upsert(context.Background(), nil, &models.TournamentSettings{
		TournamentID: tournament.ID,
		TeamLimit:    4,
		MatchBestOf:  3,
		FinalBestOf:  5,
	}))

	settings, err := resolveSettings(context.Background(), nil, fixture.settings, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, settings.TeamLimit)
	assert.Equal(t, 3, settings.MatchBestOf)
	assert.Equal(t, 5, settings.FinalBestOf)
}
