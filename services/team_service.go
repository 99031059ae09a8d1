package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
	"github.com/UrThings/cs-ufe/storage"
)

// teamRosterLimit — максимум игроков в составе, включая капитана.
const teamRosterLimit = 5

type CreateTeamInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateTeamInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// TeamService управляет командами и составами. Игрок может состоять только в
// одной команде, капитан определяется полем OwnerID.
type TeamService struct {
	teamRepo   repositories.TeamRepository
	memberRepo repositories.TeamMemberRepository
	txRunner   TxRunner
	uploader   storage.FileUploader
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	txRunner TxRunner,
	uploader storage.FileUploader,
) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		txRunner:   txRunner,
		uploader:   uploader,
	}
}

// Create создаёт команду с уникальным слагом и кодом приглашения, создатель
// становится капитаном и первым участником состава.
func (s *TeamService) Create(ctx context.Context, ownerID int, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	var created *models.Team
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.memberRepo.GetByUser(ctx, exec, ownerID); err == nil {
			return ErrUserAlreadyInTeam
		} else if !errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return err
		}

		slug, err := generateUniqueSlug(ctx, name, "team", teamSlugMaxLength, func(ctx context.Context, candidate string) (bool, error) {
			return s.teamRepo.SlugExists(ctx, exec, candidate)
		})
		if err != nil {
			return err
		}
		code, err := generateUniqueCode(ctx, func(ctx context.Context, candidate string) (bool, error) {
			return s.teamRepo.CodeExists(ctx, exec, candidate)
		})
		if err != nil {
			return err
		}

		team := &models.Team{
			Name:        name,
			Slug:        slug,
			TeamCode:    code,
			Description: input.Description,
			OwnerID:     ownerID,
		}
		if err := s.teamRepo.Create(ctx, exec, team); err != nil {
			if errors.Is(err, repositories.ErrTeamSlugConflict) {
				return ErrTeamSlugConflict
			}
			return err
		}

		member := &models.TeamMember{
			UserID: ownerID,
			TeamID: team.ID,
			Role:   models.TeamRoleCaptain,
		}
		if err := s.memberRepo.Create(ctx, exec, member); err != nil {
			if errors.Is(err, repositories.ErrTeamMemberConflict) {
				return ErrUserAlreadyInTeam
			}
			return err
		}

		created = team
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTeamLogoURL(created, s.uploader)
	return created, nil
}

// Get возвращает команду с составом.
func (s *TeamService) Get(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	members, err := s.memberRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	team.Members = make([]models.TeamMember, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			m.User.PasswordHash = ""
		}
		team.Members = append(team.Members, *m)
	}
	team.MemberCount = len(team.Members)

	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

// JoinByCode вступает в команду по коду приглашения.
func (s *TeamService) JoinByCode(ctx context.Context, userID int, code string) (*models.Team, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != teamCodeLength {
		return nil, fmt.Errorf("%w: team code must be %d characters", ErrValidationFailed, teamCodeLength)
	}

	var joined *models.Team
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByCode(ctx, exec, code)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		if _, err := s.memberRepo.GetByUser(ctx, exec, userID); err == nil {
			return ErrUserAlreadyInTeam
		} else if !errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return err
		}

		count, err := s.memberRepo.CountByTeam(ctx, exec, team.ID)
		if err != nil {
			return err
		}
		if count >= teamRosterLimit {
			return ErrTeamFull
		}

		member := &models.TeamMember{
			UserID: userID,
			TeamID: team.ID,
			Role:   models.TeamRoleMember,
		}
		if err := s.memberRepo.Create(ctx, exec, member); err != nil {
			if errors.Is(err, repositories.ErrTeamMemberConflict) {
				return ErrUserAlreadyInTeam
			}
			return err
		}

		joined = team
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTeamLogoURL(joined, s.uploader)
	return joined, nil
}

// Leave выходит из команды. Капитан выйти не может, пока команда существует.
func (s *TeamService) Leave(ctx context.Context, userID, teamID int) error {
	return s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.OwnerID == userID {
			return ErrOwnerCannotLeave
		}

		member, err := s.memberRepo.GetByUserAndTeam(ctx, exec, userID, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamMemberNotFound) {
				return ErrNotFound
			}
			return err
		}
		return s.memberRepo.Delete(ctx, exec, member.ID)
	})
}

// RemoveMember исключает игрока из состава. Только капитан, капитана
// исключить нельзя.
func (s *TeamService) RemoveMember(ctx context.Context, callerID, teamID, memberUserID int) error {
	return s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.OwnerID != callerID {
			return ErrCaptainActionForbidden
		}
		if memberUserID == team.OwnerID {
			return ErrCannotRemoveOwner
		}

		member, err := s.memberRepo.GetByUserAndTeam(ctx, exec, memberUserID, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamMemberNotFound) {
				return ErrNotFound
			}
			return err
		}
		return s.memberRepo.Delete(ctx, exec, member.ID)
	})
}

// RegenerateCode выдаёт команде новый код приглашения, старый перестаёт
// действовать.
func (s *TeamService) RegenerateCode(ctx context.Context, callerID, teamID int) (string, error) {
	var newCode string
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.OwnerID != callerID {
			return ErrCaptainActionForbidden
		}

		code, err := generateUniqueCode(ctx, func(ctx context.Context, candidate string) (bool, error) {
			return s.teamRepo.CodeExists(ctx, exec, candidate)
		})
		if err != nil {
			return err
		}
		if err := s.teamRepo.UpdateCode(ctx, exec, teamID, code); err != nil {
			return err
		}
		newCode = code
		return nil
	})
	if err != nil {
		return "", err
	}
	return newCode, nil
}

// UpdateDetails меняет имя и описание команды (слаг не меняется).
func (s *TeamService) UpdateDetails(ctx context.Context, callerID, teamID int, input UpdateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	var updated *models.Team
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.OwnerID != callerID {
			return ErrCaptainActionForbidden
		}

		if err := s.teamRepo.UpdateDetails(ctx, exec, teamID, name, input.Description); err != nil {
			return err
		}
		team.Name = name
		team.Description = input.Description
		updated = team
		return nil
	})
	if err != nil {
		return nil, err
	}

	populateTeamLogoURL(updated, s.uploader)
	return updated, nil
}

// SetPaid отмечает оплату взноса. Сама оплата проходит вне платформы,
// флаг ставит администратор.
func (s *TeamService) SetPaid(ctx context.Context, teamID int, isPaid bool) error {
	err := s.teamRepo.SetPaid(ctx, nil, teamID, isPaid)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	return nil
}

// UploadLogo загружает логотип команды в объектное хранилище, предыдущий
// файл удаляется.
func (s *TeamService) UploadLogo(ctx context.Context, callerID, teamID int, file storage.UploadInput) (*models.Team, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != callerID {
		return nil, ErrCaptainActionForbidden
	}

	ext, err := GetExtensionFromContentType(file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("teams/%d/logo%s", teamID, ext)
	if _, err := s.uploader.Upload(ctx, key, file.ContentType, file.Body); err != nil {
		return nil, fmt.Errorf("upload team logo: %w", err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != key {
		// Ошибка удаления старого файла не роняет запрос.
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	team.LogoKey = &key
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}
