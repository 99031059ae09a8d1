package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UrThings/cs-ufe/models"
)

const (
	testAdminID   = 900
	testCaptainID = 100
)

type registrationFixture struct {
	*bracketFixture
	teams        *fakeTeamRepo
	joinRequests *fakeJoinRequestRepo
	registration *RegistrationService
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	fixture := &registrationFixture{
		bracketFixture: newBracketFixture(t, nil),
		teams:          newFakeTeamRepo(),
		joinRequests:   newFakeJoinRequestRepo(),
	}
	fixture.registration = NewRegistrationService(
		fixture.joinRequests,
		fixture.participants,
		fixture.tournaments,
		fixture.teams,
		fixture.settings,
		fixture.matches,
		fakeTxRunner{},
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fixture
}

func (f *registrationFixture) addTeam(ownerID int, name string) *models.Team {
	return f.teams.add(&models.Team{
		Name:     name,
		Slug:     name,
		TeamCode: name[:min(len(name), 6)],
		OwnerID:  ownerID,
	})
}

func TestRequestJoinCreatesPendingRequest(t *testing.T) {
	fixture := newRegistrationFixture(t)
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(context.Background(), testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestPending, request.Status)
	assert.Equal(t, testCaptainID, request.RequestedByUserID)
	assert.Equal(t, team.ID, request.TeamID)
}

func TestRequestJoinRequiresCaptain(t *testing.T) {
	fixture := newRegistrationFixture(t)
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	_, err := fixture.registration.RequestJoin(context.Background(), testCaptainID+1, tournament.ID, team.ID)
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)
}

func TestRequestJoinClosedAfterSeeding(t *testing.T) {
	fixture := newRegistrationFixture(t)
	tournament := fixture.addDraftTournament(10, 20)
	team := fixture.addTeam(testCaptainID, "alpha")

	_, err := fixture.bracket.Seed(context.Background(), tournament.ID, false)
	require.NoError(t, err)

	_, err = fixture.registration.RequestJoin(context.Background(), testCaptainID, tournament.ID, team.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotOpen)
}

func TestRequestJoinPendingConflict(t *testing.T) {
	fixture := newRegistrationFixture(t)
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	_, err := fixture.registration.RequestJoin(context.Background(), testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)

	_, err = fixture.registration.RequestJoin(context.Background(), testCaptainID, tournament.ID, team.ID)
	assert.ErrorIs(t, err, ErrJoinRequestPending)
}

func TestRequestJoinAfterRejectionResetsToPending(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)

	rejected, err := fixture.registration.RejectRequest(ctx, testAdminID, tournament.ID, request.ID, "roster incomplete")
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewNote)
	assert.Equal(t, "roster incomplete", *rejected.ReviewNote)

	resubmitted, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, resubmitted.ID)
	assert.Equal(t, models.JoinRequestPending, resubmitted.Status)
	assert.Nil(t, resubmitted.ReviewNote)
	assert.Nil(t, resubmitted.ReviewedByUserID)
}

func TestRequestJoinApprovedIsIdempotent(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
	require.NoError(t, err)

	again, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, again.ID)
	assert.Equal(t, models.JoinRequestApproved, again.Status)
}

func TestRequestJoinRespectsTeamLimit(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	require.NoError(t, fixture.settings.Upsert(ctx, nil, &models.TournamentSettings{
		TournamentID: tournament.ID,
		TeamLimit:    2,
		MatchBestOf:  1,
		FinalBestOf:  1,
	}))

	for i := 0; i < 2; i++ {
		ownerID := testCaptainID + i
		team := fixture.addTeam(ownerID, []string{"alpha", "bravo"}[i])
		request, err := fixture.registration.RequestJoin(ctx, ownerID, tournament.ID, team.ID)
		require.NoError(t, err)
		_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
		require.NoError(t, err)
	}

	late := fixture.addTeam(testCaptainID+5, "charlie")
	_, err := fixture.registration.RequestJoin(ctx, testCaptainID+5, tournament.ID, late.ID)
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestApproveRequestCreatesParticipantOnce(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)

	approved, err := fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestApproved, approved.Status)
	require.NotNil(t, approved.ReviewedByUserID)
	assert.Equal(t, testAdminID, *approved.ReviewedByUserID)

	// Повторное одобрение не плодит участников и не трогает заявку.
	firstReviewedAt := *approved.ReviewedAt
	again, err := fixture.registration.ApproveRequest(ctx, testAdminID+1, tournament.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestApproved, again.Status)
	require.NotNil(t, again.ReviewedByUserID)
	assert.Equal(t, testAdminID, *again.ReviewedByUserID)
	assert.True(t, again.ReviewedAt.Equal(firstReviewedAt))

	count, err := fixture.participants.CountByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestApproveRequestFromOtherTournamentNotFound(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	other := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)

	_, err = fixture.registration.ApproveRequest(ctx, testAdminID, other.ID, request.ID)
	assert.ErrorIs(t, err, ErrJoinRequestNotFound)
}

func TestRejectApprovedRequestFails(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
	require.NoError(t, err)

	_, err = fixture.registration.RejectRequest(ctx, testAdminID, tournament.ID, request.ID, "late")
	assert.ErrorIs(t, err, ErrJoinRequestApproved)
}

func TestRemoveParticipantBeforeSeeding(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()
	team := fixture.addTeam(testCaptainID, "alpha")

	request, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
	require.NoError(t, err)

	require.NoError(t, fixture.registration.RemoveParticipant(ctx, testAdminID, tournament.ID, team.ID))

	count, err := fixture.participants.CountByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Заявка помечена отклонённой со служебной заметкой, команда может
	// податься снова.
	stored, err := fixture.joinRequests.GetByID(ctx, nil, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestRejected, stored.Status)
	require.NotNil(t, stored.ReviewNote)
	assert.Equal(t, removedByAdminNote, *stored.ReviewNote)

	resubmitted, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestPending, resubmitted.Status)
}

func TestRemoveParticipantBlockedAfterSeeding(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament(10, 20)

	_, err := fixture.bracket.Seed(ctx, tournament.ID, false)
	require.NoError(t, err)

	err = fixture.registration.RemoveParticipant(ctx, testAdminID, tournament.ID, 10)
	assert.ErrorIs(t, err, ErrTournamentNotEditable)
}

func TestRemoveUnknownParticipant(t *testing.T) {
	fixture := newRegistrationFixture(t)
	tournament := fixture.addDraftTournament()

	err := fixture.registration.RemoveParticipant(context.Background(), testAdminID, tournament.ID, 77)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestListRequestsReturnsAllStatuses(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()

	alpha := fixture.addTeam(testCaptainID, "alpha")
	bravo := fixture.addTeam(testCaptainID+1, "bravo")

	first, err := fixture.registration.RequestJoin(ctx, testCaptainID, tournament.ID, alpha.ID)
	require.NoError(t, err)
	_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, first.ID)
	require.NoError(t, err)
	_, err = fixture.registration.RequestJoin(ctx, testCaptainID+1, tournament.ID, bravo.ID)
	require.NoError(t, err)

	requests, err := fixture.registration.ListRequests(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, models.JoinRequestApproved, requests[0].Status)
	assert.Equal(t, models.JoinRequestPending, requests[1].Status)
}

func TestParticipantJoinOrderDrivesSeeding(t *testing.T) {
	fixture := newRegistrationFixture(t)
	ctx := context.Background()
	tournament := fixture.addDraftTournament()

	teamIDs := make([]int, 0, 4)
	for i, name := range []string{"alpha", "bravo", "delta", "omega"} {
		ownerID := testCaptainID + i
		team := fixture.addTeam(ownerID, name)
		teamIDs = append(teamIDs, team.ID)
		request, err := fixture.registration.RequestJoin(ctx, ownerID, tournament.ID, team.ID)
		require.NoError(t, err)
		_, err = fixture.registration.ApproveRequest(ctx, testAdminID, tournament.ID, request.ID)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	_, err := fixture.bracket.Seed(ctx, tournament.ID, false)
	require.NoError(t, err)

	round1, err := fixture.matches.ListByRound(ctx, nil, tournament.ID, 1)
	require.NoError(t, err)
	require.Len(t, round1, 2)
	assert.Equal(t, teamIDs[0], round1[0].HomeTeamID)
	require.NotNil(t, round1[0].AwayTeamID)
	assert.Equal(t, teamIDs[1], *round1[0].AwayTeamID)
	assert.Equal(t, teamIDs[2], round1[1].HomeTeamID)
	require.NotNil(t, round1[1].AwayTeamID)
	assert.Equal(t, teamIDs[3], *round1[1].AwayTeamID)
}
