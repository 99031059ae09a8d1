package models

import "time"

// JoinRequestStatus соответствует ENUM join_request_status в БД.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// TournamentJoinRequest — заявка команды на участие, уникальна в паре
// (tournament_id, team_id). Отклонённая заявка может быть подана повторно:
// та же строка возвращается в pending со сброшенными полями ревью.
type TournamentJoinRequest struct {
	ID                int               `json:"id"`
	TournamentID      int               `json:"tournament_id"`
	TeamID            int               `json:"team_id"`
	RequestedByUserID int               `json:"requested_by_user_id"`
	Status            JoinRequestStatus `json:"status"`
	ReviewNote        *string           `json:"review_note,omitempty"`
	ReviewedByUserID  *int              `json:"reviewed_by_user_id,omitempty"`
	RequestedAt       time.Time         `json:"requested_at"`
	ReviewedAt        *time.Time        `json:"reviewed_at,omitempty"`

	Team *Team `json:"team,omitempty"`
}
