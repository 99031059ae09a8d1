package models

import "time"

// TeamMemberRole представляет роль участника внутри команды.
type TeamMemberRole string

const (
	TeamRoleCaptain TeamMemberRole = "captain"
	TeamRoleMember  TeamMemberRole = "member"
)

type Team struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	TeamCode    string    `json:"team_code"`
	Description *string   `json:"description,omitempty"`
	OwnerID     int       `json:"owner_id"`
	IsPaid      bool      `json:"is_paid"`
	LogoKey     *string   `json:"-"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Заполняется сервисом при необходимости.
	Members     []TeamMember `json:"members,omitempty"`
	MemberCount int          `json:"member_count,omitempty"`
}

type TeamMember struct {
	ID       int            `json:"id"`
	UserID   int            `json:"user_id"`
	TeamID   int            `json:"team_id"`
	Role     TeamMemberRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`

	User *User `json:"user,omitempty"`
}
