package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UrThings/cs-ufe/models"
)

var (
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrTeamMemberConflict = errors.New("user already belongs to a team")
)

type TeamMemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	GetByUser(ctx context.Context, exec SQLExecutor, userID int) (*models.TeamMember, error)
	GetByUserAndTeam(ctx context.Context, exec SQLExecutor, userID, teamID int) (*models.TeamMember, error)
	CountByTeam(ctx context.Context, exec SQLExecutor, teamID int) (int, error)
	ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamMemberRepository struct {
	db *sql.DB
}

func NewPostgresTeamMemberRepository(db *sql.DB) TeamMemberRepository {
	return &postgresTeamMemberRepository{db: db}
}

func (r *postgresTeamMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamMemberRepository) Create(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (user_id, team_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		member.UserID,
		member.TeamID,
		member.Role,
	).Scan(&member.ID, &member.JoinedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrTeamMemberConflict
	}
	return err
}

func (r *postgresTeamMemberRepository) GetByUser(ctx context.Context, exec SQLExecutor, userID int) (*models.TeamMember, error) {
	query := `
		SELECT id, user_id, team_id, role, joined_at
		FROM team_members
		WHERE user_id = $1`

	return r.scanMember(r.getExecutor(exec).QueryRowContext(ctx, query, userID))
}

func (r *postgresTeamMemberRepository) GetByUserAndTeam(ctx context.Context, exec SQLExecutor, userID, teamID int) (*models.TeamMember, error) {
	query := `
		SELECT id, user_id, team_id, role, joined_at
		FROM team_members
		WHERE user_id = $1 AND team_id = $2`

	return r.scanMember(r.getExecutor(exec).QueryRowContext(ctx, query, userID, teamID))
}

func (r *postgresTeamMemberRepository) CountByTeam(ctx context.Context, exec SQLExecutor, teamID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID,
	).Scan(&count)
	return count, err
}

func (r *postgresTeamMemberRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error) {
	query := `
		SELECT m.id, m.user_id, m.team_id, m.role, m.joined_at,
		       u.id, u.email, u.display_name, u.role, u.created_at
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.TeamMember, 0)
	for rows.Next() {
		member := &models.TeamMember{User: &models.User{}}
		if err := rows.Scan(
			&member.ID,
			&member.UserID,
			&member.TeamID,
			&member.Role,
			&member.JoinedAt,
			&member.User.ID,
			&member.User.Email,
			&member.User.DisplayName,
			&member.User.Role,
			&member.User.CreatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *postgresTeamMemberRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamMemberNotFound)
}

func (r *postgresTeamMemberRepository) scanMember(row *sql.Row) (*models.TeamMember, error) {
	member := &models.TeamMember{}
	err := row.Scan(
		&member.ID,
		&member.UserID,
		&member.TeamID,
		&member.Role,
		&member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, err
	}
	return member, nil
}
