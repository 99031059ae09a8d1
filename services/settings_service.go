package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

// SettingsService управляет настройками турнира. Отсутствующая строка
// настроек не ошибка: действуют дефолты. Отсутствующая ТАБЛИЦА настроек
// означает непрогнанные миграции и всплывает как ErrMigrationsRequired.
type SettingsService struct {
	settingsRepo    repositories.SettingsRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	txRunner        TxRunner
}

func NewSettingsService(
	settingsRepo repositories.SettingsRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	txRunner TxRunner,
) *SettingsService {
	return &SettingsService{
		settingsRepo:    settingsRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		txRunner:        txRunner,
	}
}

// UpdateSettingsInput — частичное обновление настроек. Nil-поле сохраняет
// текущее значение, а при отсутствии строки настроек действует дефолт.
type UpdateSettingsInput struct {
	TeamLimit   *int `json:"team_limit,omitempty"`
	MatchBestOf *int `json:"match_best_of,omitempty"`
	FinalBestOf *int `json:"final_best_of,omitempty"`
}

// mergeSettingsInput накладывает переданные поля на действующие настройки.
func mergeSettingsInput(base *models.TournamentSettings, input UpdateSettingsInput) *models.TournamentSettings {
	merged := *base
	if input.TeamLimit != nil {
		merged.TeamLimit = *input.TeamLimit
	}
	if input.MatchBestOf != nil {
		merged.MatchBestOf = *input.MatchBestOf
	}
	if input.FinalBestOf != nil {
		merged.FinalBestOf = *input.FinalBestOf
	}
	return &merged
}

// resolveSettings возвращает сохранённые настройки либо дефолты.
func resolveSettings(ctx context.Context, exec repositories.SQLExecutor, repo repositories.SettingsRepository, tournamentID int) (*models.TournamentSettings, error) {
	settings, err := repo.Get(ctx, exec, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			defaults := models.DefaultTournamentSettings(tournamentID)
			return &defaults, nil
		}
		return nil, fmt.Errorf("resolve settings for tournament %d: %w", tournamentID, err)
	}
	return settings, nil
}

// Get возвращает действующие настройки турнира (сохранённые или дефолтные).
func (s *SettingsService) Get(ctx context.Context, tournamentID int) (*models.TournamentSettings, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return resolveSettings(ctx, nil, s.settingsRepo, tournamentID)
}

// Update накладывает переданные поля на действующие настройки и сохраняет
// результат. Лимит команд нельзя опустить ниже уже одобренного числа
// участников, чтение, проверка и запись идут в одной транзакции.
func (s *SettingsService) Update(ctx context.Context, tournamentID int, input UpdateSettingsInput) (*models.TournamentSettings, error) {
	var updated *models.TournamentSettings
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

		current, err := resolveSettings(ctx, exec, s.settingsRepo, tournamentID)
		if err != nil {
			return err
		}
		settings := mergeSettingsInput(current, input)
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
		updated = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateSettings(settings *models.TournamentSettings) error {
	if settings.TeamLimit < 2 {
		return ErrTournamentInvalidLimit
	}
	if settings.MatchBestOf != 1 && settings.MatchBestOf != 3 {
		return fmt.Errorf("%w: match series must be best-of 1 or 3", ErrInvalidBestOf)
	}
	switch settings.FinalBestOf {
	case 1, 3, 5:
	default:
		return fmt.Errorf("%w: final series must be best-of 1, 3 or 5", ErrInvalidBestOf)
	}
	return nil
}
