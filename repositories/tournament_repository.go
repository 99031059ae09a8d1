package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/UrThings/cs-ufe/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug conflict")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]models.Tournament, error)
	SlugExists(ctx context.Context, exec SQLExecutor, slug string) (bool, error)
	UpdateDetails(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	MarkSeeded(ctx context.Context, exec SQLExecutor, id int, seededAt time.Time) error
	MarkFinished(ctx context.Context, exec SQLExecutor, id int, championTeamID int, finishedAt time.Time) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Count(ctx context.Context) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, title, slug, format, status, start_date, end_date, headliner,
	champion_team_id, seeded_at, finished_at, logo_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (title, slug, format, status, start_date, end_date, headliner)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Title,
		t.Slug,
		t.Format,
		t.Status,
		t.StartDate,
		t.EndDate,
		t.Headliner,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrTournamentSlugConflict
	}
	return err
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t := models.Tournament{}
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Slug, &t.Format, &t.Status,
			&t.StartDate, &t.EndDate, &t.Headliner,
			&t.ChampionTeamID, &t.SeededAt, &t.FinishedAt, &t.LogoKey, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) SlugExists(ctx context.Context, exec SQLExecutor, slug string) (bool, error) {
	var found bool
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournaments WHERE slug = $1)`, slug,
	).Scan(&found)
	return found, err
}

func (r *postgresTournamentRepository) UpdateDetails(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET title = $1, slug = $2, start_date = $3, end_date = $4, headliner = $5
		WHERE id = $6`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		t.Title, t.Slug, t.StartDate, t.EndDate, t.Headliner, t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTournamentSlugConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkSeeded(ctx context.Context, exec SQLExecutor, id int, seededAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, seeded_at = $2
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.TournamentActive, seededAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkFinished(ctx context.Context, exec SQLExecutor, id int, championTeamID int, finishedAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, champion_team_id = $2, finished_at = $3, end_date = $3
		WHERE id = $4`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.TournamentFinished, championTeamID, finishedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&count)
	return count, err
}

func (r *postgresTournamentRepository) scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Slug, &t.Format, &t.Status,
		&t.StartDate, &t.EndDate, &t.Headliner,
		&t.ChampionTeamID, &t.SeededAt, &t.FinishedAt, &t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}
