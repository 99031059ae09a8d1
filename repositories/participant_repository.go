package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UrThings/cs-ufe/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("team is already a participant of this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, participant *models.Participant) error {
	query := `
		INSERT INTO tournament_teams (tournament_id, team_id)
		VALUES ($1, $2)
		RETURNING id, joined_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		participant.TournamentID,
		participant.TeamID,
	).Scan(&participant.ID, &participant.JoinedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrParticipantConflict
	}
	return err
}

func (r *postgresParticipantRepository) GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, team_id, joined_at
		FROM tournament_teams
		WHERE tournament_id = $1 AND team_id = $2`

	participant := &models.Participant{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, teamID).Scan(
		&participant.ID,
		&participant.TournamentID,
		&participant.TeamID,
		&participant.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return participant, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_teams WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

// ListByTournament возвращает участников в порядке одобрения — этот порядок
// и есть порядок посева без шаффла.
func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.team_id, p.joined_at,
		       t.id, t.name, t.slug, t.team_code, t.description, t.owner_id, t.is_paid, t.logo_key, t.created_at
		FROM tournament_teams p
		JOIN teams t ON t.id = p.team_id
		WHERE p.tournament_id = $1
		ORDER BY p.joined_at ASC, p.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		participant := &models.Participant{Team: &models.Team{}}
		if err := rows.Scan(
			&participant.ID,
			&participant.TournamentID,
			&participant.TeamID,
			&participant.JoinedAt,
			&participant.Team.ID,
			&participant.Team.Name,
			&participant.Team.Slug,
			&participant.Team.TeamCode,
			&participant.Team.Description,
			&participant.Team.OwnerID,
			&participant.Team.IsPaid,
			&participant.Team.LogoKey,
			&participant.Team.CreatedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`DELETE FROM tournament_teams WHERE tournament_id = $1 AND team_id = $2`,
		tournamentID, teamID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
