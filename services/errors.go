package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTeamNameRequired   = errors.New("team name is required")
	ErrUserAlreadyInTeam  = errors.New("user is already in a team")
	ErrTeamFull           = errors.New("team roster is full")
	ErrCannotRemoveOwner  = errors.New("cannot remove the team captain")
	ErrOwnerCannotLeave   = errors.New("team captain cannot leave the team")

	// Регистрация на турнир
	ErrRegistrationNotOpen    = errors.New("tournament registration is not open")
	ErrJoinRequestPending     = errors.New("a join request for this team is already pending")
	ErrJoinRequestApproved    = errors.New("this team is already approved for the tournament")
	ErrTournamentFull         = errors.New("tournament registration is full")
	ErrTeamLimitBelowApproved = errors.New("team limit cannot be below the approved team count")
	ErrParticipantHasMatches  = errors.New("cannot remove a team after matches have been created")
	ErrTournamentNotEditable  = errors.New("tournament is not in draft")

	// Сетка и матчи
	ErrTournamentAlreadySeeded = errors.New("tournament bracket has already been generated")
	ErrTournamentNotActive     = errors.New("tournament is not active")
	ErrNotEnoughTeams          = errors.New("at least two approved teams are required to generate a bracket")
	ErrUnsupportedFormat       = errors.New("tournament format does not support bracket generation")
	ErrMatchAlreadyResolved    = errors.New("match result has already been recorded")
	ErrMatchIsBye              = errors.New("a bye match cannot be resolved manually")
	ErrScoresIncomplete        = errors.New("both scores are required")
	ErrScoresInvalid           = errors.New("scores do not form a valid series result")
	ErrWinnerNotInMatch        = errors.New("winner must be one of the match teams")
	ErrWinnerScoreMismatch     = errors.New("declared winner does not match the scores")
	ErrBracketCorrupted        = errors.New("bracket data is inconsistent")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrTeamSlugConflict  = errors.New("team name is already in use")
	ErrSlugExhausted     = errors.New("could not generate a unique identifier")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrAdminOnly              = errors.New("only an administrator can perform this action")

	// Ошибки, специфичные для сущностей (могут дублировать ErrNotFound, но дают больше контекста)
	ErrUserNotFound        = errors.New("user not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Ошибки турниров
	ErrTournamentInvalidDateRange = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidLimit     = errors.New("team limit must be at least two")
	ErrInvalidBestOf              = errors.New("unsupported best-of value")
)
