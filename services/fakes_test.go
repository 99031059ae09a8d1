package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

// Движок тестируется на in-memory репозиториях. Транзакционный раннер
// прозрачный: вся логика повторов живёт в db.TxRunner и покрыта отдельно,
// здесь важна предметная семантика.

type fakeTxRunner struct{}

func (fakeTxRunner) RunSerializable(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// --- tournaments ---

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) add(t *models.Tournament) *models.Tournament {
	t.ID = r.nextID
	r.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.tournaments[t.ID] = t
	return t
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Slug == t.Slug {
			return repositories.ErrTournamentSlugConflict
		}
	}
	r.add(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, status *models.TournamentStatus) ([]models.Tournament, error) {
	ids := make([]int, 0, len(r.tournaments))
	for id := range r.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := make([]models.Tournament, 0, len(ids))
	for _, id := range ids {
		t := r.tournaments[id]
		if status != nil && t.Status != *status {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (r *fakeTournamentRepo) SlugExists(ctx context.Context, exec repositories.SQLExecutor, slug string) (bool, error) {
	for _, t := range r.tournaments {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTournamentRepo) UpdateDetails(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	stored, ok := r.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.Title = t.Title
	stored.Slug = t.Slug
	stored.StartDate = t.StartDate
	stored.EndDate = t.EndDate
	stored.Headliner = t.Headliner
	return nil
}

func (r *fakeTournamentRepo) MarkSeeded(ctx context.Context, exec repositories.SQLExecutor, id int, seededAt time.Time) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.TournamentActive
	t.SeededAt = &seededAt
	return nil
}

func (r *fakeTournamentRepo) MarkFinished(ctx context.Context, exec repositories.SQLExecutor, id int, championTeamID int, finishedAt time.Time) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.TournamentFinished
	t.ChampionTeamID = &championTeamID
	t.FinishedAt = &finishedAt
	t.EndDate = &finishedAt
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Count(ctx context.Context) (int, error) {
	return len(r.tournaments), nil
}

// --- participants ---

type fakeParticipantRepo struct {
	nextID       int
	participants []*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{nextID: 1}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.TeamID == p.TeamID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	r.participants = append(r.participants, p)
	return nil
}

func (r *fakeParticipantRepo) GetByTournamentAndTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.TeamID == teamID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	var result []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			result = append(result, &copied)
		}
	}
	// Срез хранится в порядке вставки, он и есть порядок одобрения.
	return result, nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) error {
	for i, p := range r.participants {
		if p.TournamentID == tournamentID && p.TeamID == teamID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

// --- matches ---

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	for _, existing := range r.matches {
		if existing.TournamentID == match.TournamentID &&
			existing.Round == match.Round && existing.Position == match.Position {
			return repositories.ErrMatchPositionConflict
		}
	}
	match.ID = r.nextID
	r.nextID++
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) CountByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Round == round {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) ListByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) ([]*models.Match, error) {
	var result []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Round == round {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	var result []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Round != result[j].Round {
			return result[i].Round < result[j].Round
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (r *fakeMatchRepo) RecordResult(ctx context.Context, exec repositories.SQLExecutor, id int, winnerTeamID int, homeScore, awayScore *int, completedAt time.Time) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.WinnerTeamID = &winnerTeamID
	match.HomeScore = homeScore
	match.AwayScore = awayScore
	match.Status = models.MatchCompleted
	match.CompletedAt = &completedAt
	return nil
}

func (r *fakeMatchRepo) Count(ctx context.Context) (int, error) {
	return len(r.matches), nil
}

// --- settings ---

type fakeSettingsRepo struct {
	settings     map[int]*models.TournamentSettings
	tableMissing bool
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[int]*models.TournamentSettings)}
}

func (r *fakeSettingsRepo) Get(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.TournamentSettings, error) {
	if r.tableMissing {
		return nil, repositories.ErrMigrationsRequired
	}
	s, ok := r.settings[tournamentID]
	if !ok {
		return nil, repositories.ErrSettingsNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, s *models.TournamentSettings) error {
	if r.tableMissing {
		return repositories.ErrMigrationsRequired
	}
	s.UpdatedAt = time.Now()
	copied := *s
	r.settings[s.TournamentID] = &copied
	return nil
}

// --- join requests ---

type fakeJoinRequestRepo struct {
	nextID   int
	requests map[int]*models.TournamentJoinRequest
}

func newFakeJoinRequestRepo() *fakeJoinRequestRepo {
	return &fakeJoinRequestRepo{nextID: 1, requests: make(map[int]*models.TournamentJoinRequest)}
}

func (r *fakeJoinRequestRepo) Create(ctx context.Context, exec repositories.SQLExecutor, request *models.TournamentJoinRequest) error {
	for _, existing := range r.requests {
		if existing.TournamentID == request.TournamentID && existing.TeamID == request.TeamID {
			return repositories.ErrJoinRequestConflict
		}
	}
	request.ID = r.nextID
	r.nextID++
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now()
	}
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *fakeJoinRequestRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentJoinRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrJoinRequestNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *fakeJoinRequestRepo) GetByTournamentAndTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) (*models.TournamentJoinRequest, error) {
	for _, request := range r.requests {
		if request.TournamentID == tournamentID && request.TeamID == teamID {
			copied := *request
			return &copied, nil
		}
	}
	return nil, repositories.ErrJoinRequestNotFound
}

func (r *fakeJoinRequestRepo) ResetToPending(ctx context.Context, exec repositories.SQLExecutor, id, requestedByUserID int) error {
	request, ok := r.requests[id]
	if !ok {
		return repositories.ErrJoinRequestNotFound
	}
	request.Status = models.JoinRequestPending
	request.RequestedByUserID = requestedByUserID
	request.RequestedAt = time.Now()
	request.ReviewNote = nil
	request.ReviewedByUserID = nil
	request.ReviewedAt = nil
	return nil
}

func (r *fakeJoinRequestRepo) MarkApproved(ctx context.Context, exec repositories.SQLExecutor, id, reviewedByUserID int) error {
	request, ok := r.requests[id]
	if !ok {
		return repositories.ErrJoinRequestNotFound
	}
	now := time.Now()
	request.Status = models.JoinRequestApproved
	request.ReviewedByUserID = &reviewedByUserID
	request.ReviewedAt = &now
	return nil
}

func (r *fakeJoinRequestRepo) MarkRejected(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID, reviewedByUserID int, note string) error {
	for _, request := range r.requests {
		if request.TournamentID == tournamentID && request.TeamID == teamID {
			now := time.Now()
			request.Status = models.JoinRequestRejected
			request.ReviewNote = &note
			request.ReviewedByUserID = &reviewedByUserID
			request.ReviewedAt = &now
		}
	}
	return nil
}

func (r *fakeJoinRequestRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentJoinRequest, error) {
	ids := make([]int, 0, len(r.requests))
	for id := range r.requests {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var result []*models.TournamentJoinRequest
	for _, id := range ids {
		if r.requests[id].TournamentID == tournamentID {
			copied := *r.requests[id]
			result = append(result, &copied)
		}
	}
	return result, nil
}

// --- teams ---

type fakeTeamRepo struct {
	nextID int
	teams  map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{nextID: 1, teams: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) add(t *models.Team) *models.Team {
	t.ID = r.nextID
	r.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.teams[t.ID] = t
	return t
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	for _, existing := range r.teams {
		if existing.Slug == team.Slug {
			return repositories.ErrTeamSlugConflict
		}
		if existing.TeamCode == team.TeamCode {
			return repositories.ErrTeamCodeConflict
		}
	}
	r.add(team)
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetByCode(ctx context.Context, exec repositories.SQLExecutor, code string) (*models.Team, error) {
	for _, team := range r.teams {
		if team.TeamCode == strings.ToUpper(code) {
			copied := *team
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) SlugExists(ctx context.Context, exec repositories.SQLExecutor, slug string) (bool, error) {
	for _, team := range r.teams {
		if team.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTeamRepo) CodeExists(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error) {
	for _, team := range r.teams {
		if team.TeamCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTeamRepo) UpdateDetails(ctx context.Context, exec repositories.SQLExecutor, id int, name string, description *string) error {
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.Name = name
	team.Description = description
	return nil
}

func (r *fakeTeamRepo) UpdateCode(ctx context.Context, exec repositories.SQLExecutor, id int, code string) error {
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.TeamCode = code
	return nil
}

func (r *fakeTeamRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.LogoKey = logoKey
	return nil
}

func (r *fakeTeamRepo) SetPaid(ctx context.Context, exec repositories.SQLExecutor, id int, isPaid bool) error {
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.IsPaid = isPaid
	return nil
}

func (r *fakeTeamRepo) Count(ctx context.Context) (int, error) {
	return len(r.teams), nil
}

func (r *fakeTeamRepo) CountPaid(ctx context.Context) (int, error) {
	count := 0
	for _, team := range r.teams {
		if team.IsPaid {
			count++
		}
	}
	return count, nil
}

// --- team members ---

type fakeTeamMemberRepo struct {
	nextID  int
	members map[int]*models.TeamMember
}

func newFakeTeamMemberRepo() *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{nextID: 1, members: make(map[int]*models.TeamMember)}
}

func (r *fakeTeamMemberRepo) Create(ctx context.Context, exec repositories.SQLExecutor, member *models.TeamMember) error {
	for _, existing := range r.members {
		if existing.UserID == member.UserID {
			return repositories.ErrTeamMemberConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	copied := *member
	r.members[member.ID] = &copied
	return nil
}

func (r *fakeTeamMemberRepo) GetByUser(ctx context.Context, exec repositories.SQLExecutor, userID int) (*models.TeamMember, error) {
	for _, member := range r.members {
		if member.UserID == userID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamMemberNotFound
}

func (r *fakeTeamMemberRepo) GetByUserAndTeam(ctx context.Context, exec repositories.SQLExecutor, userID, teamID int) (*models.TeamMember, error) {
	for _, member := range r.members {
		if member.UserID == userID && member.TeamID == teamID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamMemberNotFound
}

func (r *fakeTeamMemberRepo) CountByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) (int, error) {
	count := 0
	for _, member := range r.members {
		if member.TeamID == teamID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeamMemberRepo) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error) {
	ids := make([]int, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var result []*models.TeamMember
	for _, id := range ids {
		if r.members[id].TeamID == teamID {
			copied := *r.members[id]
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeTeamMemberRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.members[id]; !ok {
		return repositories.ErrTeamMemberNotFound
	}
	delete(r.members, id)
	return nil
}

// --- users ---

type fakeUserRepo struct {
	nextID int
	users  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}
