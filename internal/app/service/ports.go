package service

import (
	"context"
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// Los stores los implementa internal/infra/storage; los fakes de los tests
// implementan lo mismo.

type UserStore interface {
	Upsert(ctx context.Context, u storage.User) error
	Get(ctx context.Context, discordID string) (storage.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]storage.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s storage.Session) error
	Get(ctx context.Context, sessionID string) (storage.Session, error)
	GetActive(ctx context.Context, guildID string) (storage.Session, error)
	UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	UpdateVoiceChannel(ctx context.Context, sessionID, channelID string) error
	LiveNames(ctx context.Context, guildID string) ([]string, error)
	Cleanup(ctx context.Context, sessionID string) error
}

type FormationStore interface {
	Set(ctx context.Context, sessionID string, team domain.Team, f domain.Formation) error
	GetAll(ctx context.Context, sessionID string) (map[domain.Team]domain.Formation, error)
}

type QueueStore interface {
	Join(ctx context.Context, e storage.QueueEntry) error
	Remove(ctx context.Context, sessionID, discordID string) (bool, error)
	List(ctx context.Context, sessionID string) ([]storage.QueueEntry, error)
}

type AssignmentStore interface {
	Assign(ctx context.Context, a storage.Assignment) error
	List(ctx context.Context, sessionID string) ([]storage.Assignment, error)
	Unassign(ctx context.Context, sessionID, discordID string) (bool, error)
}

type WarnStore interface {
	Add(ctx context.Context, w storage.Warn) error
	CountForSession(ctx context.Context, sessionID, discordID string) (int, error)
}

type VoiceStateStore interface {
	Upsert(ctx context.Context, vs storage.VoiceState) error
	UpdateChannel(ctx context.Context, discordID, channelID string) error
	Get(ctx context.Context, discordID string) (storage.VoiceState, error)
	SetGrace(ctx context.Context, discordID string, until time.Time) error
	ClearGrace(ctx context.Context, discordID string) error
	ListExpiredGrace(ctx context.Context, now time.Time) ([]storage.VoiceState, error)
	ClearSessionBinding(ctx context.Context, discordID string) error
}

type GlobalQueueStore interface {
	Upsert(ctx context.Context, e storage.GlobalQueueEntry) error
	Remove(ctx context.Context, guildID, discordID string) (bool, error)
	ListByGuild(ctx context.Context, guildID string) ([]storage.GlobalQueueEntry, error)
	ClearGuild(ctx context.Context, guildID string) error
}

// ---- colaboradores externos (adapter Discord) ----

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice: payload opaco para la capa de entrega. El engine nunca se entera
// si el mensaje llegó o no.
type Notice struct {
	Title    string
	Body     string
	Severity Severity
}

type Notifier interface {
	NotifyUser(ctx context.Context, discordID string, n Notice)
	Announce(ctx context.Context, guildID string, n Notice)
}

// VoiceGateway: lo que el engine necesita saber/hacer sobre canales de voz.
type VoiceGateway interface {
	// OccupantCount devuelve ErrChannelGone si el canal ya no existe.
	OccupantCount(channelID string) (int, error)
	DeleteChannel(channelID string) error
	// MoveMember: moved=false si el jugador no está en voz (no es error).
	MoveMember(guildID, discordID, channelID string) (bool, error)
}

// NicknameManager: cosmética "IGN (Role)". Best-effort, nunca falla hacia arriba.
type NicknameManager interface {
	SetRoleNickname(guildID, discordID, ign string, role domain.Role)
	ResetNickname(guildID, discordID, ign string)
}

// StatusPublisher refresca el embed fijado de estado en el VC de la sesión.
type StatusPublisher interface {
	Refresh(ctx context.Context, session storage.Session)
}

// CharacterPrompter reabre la selección de personaje para un jugador
// (replay del global queue sin personaje grabado).
type CharacterPrompter interface {
	PromptCharacter(ctx context.Context, discordID, sessionID string, role domain.Role)
}
