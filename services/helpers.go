package services

import (
	"fmt"
	"strings"

	"github.com/UrThings/cs-ufe/brackets"
	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/storage"
)

// broadcastEvent шлёт событие в комнату турнира. Hub опционален: сервисы
// работают и без вебсокетов (тесты, фоновые задачи).
func broadcastEvent(hub *brackets.Hub, tournamentID int, eventType string, payload interface{}) {
	if hub == nil {
		return
	}
	hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Event{
		Type:    eventType,
		Payload: payload,
	})
}

func intPtr(v int) *int {
	return &v
}

// --- Хелперы для заполнения URL логотипов ---

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
}

func populateTournamentLogoURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.LogoKey != nil && *tournament.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*tournament.LogoKey)
		if url != "" {
			tournament.LogoURL = &url
		}
	}
}

// GetExtensionFromContentType маппит content type загружаемого изображения
// в расширение файла.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
