package storage

import (
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

type User struct {
	DiscordID  string
	IGN        string
	Roles      []string // subset de {support, tank, dps}
	WarnsTotal int
	CreatedAt  time.Time
}

func (u User) HasRole(r domain.Role) bool {
	for _, have := range u.Roles {
		if have == string(r) {
			return true
		}
	}
	return false
}

type Session struct {
	SessionID      string
	GuildID        string
	HostID         string
	Name           string
	Status         domain.SessionStatus
	VoiceChannelID string // vacío hasta que el host crea el canal
	RulesJSON      []byte
	CreatedAt      time.Time
}

type FormationRow struct {
	SessionID string
	Team      domain.Team
	Formation domain.Formation
}

type QueueEntry struct {
	SessionID string
	DiscordID string
	Role      domain.Role
	Character string // vacío = todavía sin elegir
	JoinedAt  time.Time
}

type Assignment struct {
	SessionID  string
	DiscordID  string
	Team       domain.Team
	Role       domain.Role
	Character  string
	AssignedAt time.Time
}

type Warn struct {
	ID        int64
	SessionID string
	DiscordID string
	Reason    string
	Source    domain.WarnSource
	CreatedAt time.Time
}

type VoiceState struct {
	DiscordID        string
	CurrentChannelID string
	SessionID        string
	Team             domain.Team
	GraceUntil       *time.Time
	LastSeenAt       time.Time
}

type GlobalQueueEntry struct {
	GuildID   string
	DiscordID string
	Role      domain.Role
	Character string
	IGN       string
	QueuedAt  time.Time
}
