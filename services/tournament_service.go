package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
	"github.com/UrThings/cs-ufe/storage"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Title     string               `json:"title"`
	StartDate time.Time            `json:"start_date"`
	EndDate   *time.Time           `json:"end_date,omitempty"`
	Headliner *string              `json:"headliner,omitempty"`
	Settings  *UpdateSettingsInput `json:"settings,omitempty"`
}

type UpdateTournamentInput struct {
	Title     string               `json:"title"`
	StartDate time.Time            `json:"start_date"`
	EndDate   *time.Time           `json:"end_date,omitempty"`
	Headliner *string              `json:"headliner,omitempty"`
	Settings  *UpdateSettingsInput `json:"settings,omitempty"`
}

// TournamentService — административный CRUD турниров и сборка детальной
// модели для чтения.
type TournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	settingsRepo    repositories.SettingsRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	txRunner        TxRunner
	uploader        storage.FileUploader
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	settingsRepo repositories.SettingsRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	txRunner TxRunner,
	uploader storage.FileUploader,
) *TournamentService {
	return &TournamentService{
		tournamentRepo:  tournamentRepo,
		settingsRepo:    settingsRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		txRunner:        txRunner,
		uploader:        uploader,
	}
}

// Create заводит турнир в статусе draft. Слаг выводится из названия, строка
// настроек создаётся сразу, если переданы нестандартные значения.
func (s *TournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrValidationFailed)
	}
	if input.EndDate != nil && !input.StartDate.Before(*input.EndDate) {
		return nil, ErrTournamentInvalidDateRange
	}

	// Строки настроек ещё нет, незаданные поля берутся из дефолтов.
	var settings *models.TournamentSettings
	if input.Settings != nil {
		defaults := models.DefaultTournamentSettings(0)
		settings = mergeSettingsInput(&defaults, *input.Settings)
		if err := validateSettings(settings); err != nil {
			return nil, err
		}
	}

	var created *models.Tournament
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		slug, err := generateUniqueSlug(ctx, title, "tournament", tournamentSlugMaxLength, func(ctx context.Context, candidate string) (bool, error) {
			return s.tournamentRepo.SlugExists(ctx, exec, candidate)
		})
		if err != nil {
			return err
		}

		tournament := &models.Tournament{
			Title:     title,
			Slug:      slug,
			Format:    models.FormatSingleElimination,
			Status:    models.TournamentDraft,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Headliner: input.Headliner,
		}
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			if errors.Is(err, repositories.ErrTournamentSlugConflict) {
				return ErrSlugExhausted
			}
			return err
		}

		if settings != nil {
			settings.TournamentID = tournament.ID
			if err := s.settingsRepo.Upsert(ctx, exec, settings); err != nil {
				return err
			}
			tournament.Settings = settings
		}

		created = tournament
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTournamentLogoURL(created, s.uploader)
	return created, nil
}

// Update меняет заголовок (со сменой слага), даты, хедлайнер и настройки.
// Только для draft.
func (s *TournamentService) Update(ctx context.Context, tournamentID int, input UpdateTournamentInput) (*models.Tournament, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if input.EndDate != nil && !input.StartDate.Before(*input.EndDate) {
		return nil, ErrTournamentInvalidDateRange
	}

	var updated *models.Tournament
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentDraft {
			return ErrTournamentNotEditable
		}

		if title != tournament.Title {
			slug, err := generateUniqueSlug(ctx, title, "tournament", tournamentSlugMaxLength, func(ctx context.Context, candidate string) (bool, error) {
				return s.tournamentRepo.SlugExists(ctx, exec, candidate)
			})
			if err != nil {
				return err
			}
			tournament.Slug = slug
		}
		tournament.Title = title
		tournament.StartDate = input.StartDate
		tournament.EndDate = input.EndDate
		tournament.Headliner = input.Headliner

		if err := s.tournamentRepo.UpdateDetails(ctx, exec, tournament); err != nil {
			return err
		}

		if input.Settings != nil {
			current, err := resolveSettings(ctx, exec, s.settingsRepo, tournamentID)
			if err != nil {
				return err
			}
			settings := mergeSettingsInput(current, *input.Settings)
			if err := validateSettings(settings); err != nil {
				return err
			}

			approved, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
			if err != nil {
				return err
			}
			if settings.TeamLimit < approved {
				return fmt.Errorf("%w: limit %d, approved %d", ErrTeamLimitBelowApproved, settings.TeamLimit, approved)
			}
			if err := s.settingsRepo.Upsert(ctx, exec, settings); err != nil {
				return err
			}
			tournament.Settings = settings
		}

		updated = tournament
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTournamentLogoURL(updated, s.uploader)
	return updated, nil
}

// GetDetail собирает детальную модель турнира: настройки, участники в порядке
// одобрения и матчи по раундам. Четыре запроса идут параллельно.
func (s *TournamentService) GetDetail(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	var (
		settings     *models.TournamentSettings
		participants []*models.Participant
		matches      []*models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = resolveSettings(gctx, nil, s.settingsRepo, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.Settings = settings
	tournament.Participants = make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Team != nil {
			populateTeamLogoURL(p.Team, s.uploader)
		}
		tournament.Participants = append(tournament.Participants, *p)
	}
	tournament.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		tournament.Matches = append(tournament.Matches, *m)
	}

	populateTournamentLogoURL(tournament, s.uploader)
	return tournament, nil
}

// List возвращает турниры, опционально по статусу.
func (s *TournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		populateTournamentLogoURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

// UploadLogo загружает логотип турнира (только админ, проверяется в роутере).
func (s *TournamentService) UploadLogo(ctx context.Context, tournamentID int, file storage.UploadInput) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	ext, err := GetExtensionFromContentType(file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("tournaments/%d/logo%s", tournamentID, ext)
	if _, err := s.uploader.Upload(ctx, key, file.ContentType, file.Body); err != nil {
		return nil, fmt.Errorf("upload tournament logo: %w", err)
	}

	oldKey := tournament.LogoKey
	if err := s.tournamentRepo.UpdateLogoKey(ctx, tournamentID, &key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != key {
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	tournament.LogoKey = &key
	populateTournamentLogoURL(tournament, s.uploader)
	return tournament, nil
}
