package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UrThings/cs-ufe/models"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamSlugConflict = errors.New("team slug conflict")
	ErrTeamCodeConflict = errors.New("team code conflict")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.Team, error)
	SlugExists(ctx context.Context, exec SQLExecutor, slug string) (bool, error)
	CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error)
	UpdateDetails(ctx context.Context, exec SQLExecutor, id int, name string, description *string) error
	UpdateCode(ctx context.Context, exec SQLExecutor, id int, code string) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	SetPaid(ctx context.Context, exec SQLExecutor, id int, isPaid bool) error
	Count(ctx context.Context) (int, error)
	CountPaid(ctx context.Context) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, name, slug, team_code, description, owner_id, is_paid, logo_key, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, slug, team_code, description, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_paid, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.Name,
		team.Slug,
		team.TeamCode,
		team.Description,
		team.OwnerID,
	).Scan(&team.ID, &team.IsPaid, &team.CreatedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrTeamSlugConflict
	}
	return err
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByCode(ctx context.Context, exec SQLExecutor, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_code = $1`
	return r.scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, code))
}

func (r *postgresTeamRepository) SlugExists(ctx context.Context, exec SQLExecutor, slug string) (bool, error) {
	return r.exists(ctx, exec, `SELECT EXISTS (SELECT 1 FROM teams WHERE slug = $1)`, slug)
}

func (r *postgresTeamRepository) CodeExists(ctx context.Context, exec SQLExecutor, code string) (bool, error) {
	return r.exists(ctx, exec, `SELECT EXISTS (SELECT 1 FROM teams WHERE team_code = $1)`, code)
}

func (r *postgresTeamRepository) exists(ctx context.Context, exec SQLExecutor, query string, arg interface{}) (bool, error) {
	var found bool
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *postgresTeamRepository) UpdateDetails(ctx context.Context, exec SQLExecutor, id int, name string, description *string) error {
	query := `UPDATE teams SET name = $1, description = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, name, description, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateCode(ctx context.Context, exec SQLExecutor, id int, code string) error {
	query := `UPDATE teams SET team_code = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, code, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTeamCodeConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SetPaid(ctx context.Context, exec SQLExecutor, id int, isPaid bool) error {
	query := `UPDATE teams SET is_paid = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, isPaid, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count)
	return count, err
}

func (r *postgresTeamRepository) CountPaid(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE is_paid`).Scan(&count)
	return count, err
}

func (r *postgresTeamRepository) scanTeam(row *sql.Row) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Slug,
		&team.TeamCode,
		&team.Description,
		&team.OwnerID,
		&team.IsPaid,
		&team.LogoKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}
