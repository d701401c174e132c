package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// PresenceService sigue los movimientos de voz de los jugadores asignados
// durante una sesión activa: salir del canal abre un período de gracia, y
// al vencerse cae un warn automático. Al llegar al umbral el jugador queda
// fuera del equipo.
type PresenceService struct {
	sessions    SessionStore
	users       UserStore
	voiceStates VoiceStateStore
	warns       WarnStore
	assignments AssignmentStore
	notifier    Notifier
	nicknames   NicknameManager

	gracePeriod   time.Duration
	warnThreshold int
	clock         func() time.Time
}

func NewPresenceService(
	sessions SessionStore,
	users UserStore,
	voiceStates VoiceStateStore,
	warns WarnStore,
	assignments AssignmentStore,
	notifier Notifier,
	nicknames NicknameManager,
	gracePeriod time.Duration,
	warnThreshold int,
) *PresenceService {
	return &PresenceService{
		sessions:      sessions,
		users:         users,
		voiceStates:   voiceStates,
		warns:         warns,
		assignments:   assignments,
		notifier:      notifier,
		nicknames:     nicknames,
		gracePeriod:   gracePeriod,
		warnThreshold: warnThreshold,
		clock:         time.Now,
	}
}

// HandleLeave es la desconexión total de voz.
func (p *PresenceService) HandleLeave(ctx context.Context, discordID string) error {
	return p.HandleVoiceUpdate(ctx, discordID, "")
}

// HandleMove es el cambio de canal.
func (p *PresenceService) HandleMove(ctx context.Context, discordID, channelID string) error {
	return p.HandleVoiceUpdate(ctx, discordID, channelID)
}

// HandleVoiceUpdate procesa cualquier evento de voz: salir del VC de una
// sesión activa abre la gracia, volver la cancela, el resto solo actualiza
// el canal actual. channelID vacío es desconexión.
func (p *PresenceService) HandleVoiceUpdate(ctx context.Context, discordID, channelID string) error {
	before, err := p.voiceStates.Get(ctx, discordID)
	if errors.Is(err, storage.ErrNotFound) {
		return p.voiceStates.UpdateChannel(ctx, discordID, channelID)
	}
	if err != nil {
		return err
	}
	if err := p.voiceStates.UpdateChannel(ctx, discordID, channelID); err != nil {
		return err
	}
	if before.SessionID == "" {
		return nil
	}
	sess, err := p.sessions.Get(ctx, before.SessionID)
	if err != nil {
		return nil
	}
	if sess.Status != domain.StatusActive || sess.VoiceChannelID == "" {
		return nil
	}

	if channelID == sess.VoiceChannelID {
		if before.GraceUntil == nil {
			return nil
		}
		if err := p.voiceStates.ClearGrace(ctx, discordID); err != nil {
			return err
		}
		p.notifier.NotifyUser(ctx, discordID, Notice{
			Title:    "✅ Welcome Back",
			Body:     "You rejoined the session voice channel. Your grace period was cancelled.",
			Severity: SeveritySuccess,
		})
		log.Printf("[presence] grace cleared for %s", discordID)
		return nil
	}

	// la gracia arranca solo al salir del VC de la sesión, no se reinicia
	if before.CurrentChannelID != sess.VoiceChannelID || before.GraceUntil != nil {
		return nil
	}
	deadline := p.clock().Add(p.gracePeriod)
	if err := p.voiceStates.SetGrace(ctx, discordID, deadline); err != nil {
		return err
	}
	p.notifier.NotifyUser(ctx, discordID, Notice{
		Title:    "⏳ Grace Period Started",
		Body:     fmt.Sprintf("You left the session voice channel. Return within **%d minutes** or you will receive a warning.", int(p.gracePeriod.Minutes())),
		Severity: SeverityWarning,
	})
	log.Printf("[presence] grace started for %s until %s", discordID, deadline.Format(time.RFC3339))
	return nil
}

// SweepExpiredGrace corre en el tick de 30s: cada gracia vencida es un warn
// automático, y el umbral expulsa del equipo.
func (p *PresenceService) SweepExpiredGrace(ctx context.Context) {
	now := p.clock()
	expired, err := p.voiceStates.ListExpiredGrace(ctx, now)
	if err != nil {
		log.Printf("[presence] list expired grace: %v", err)
		return
	}
	for _, vs := range expired {
		// releer por si volvió entre el listado y este punto
		fresh, err := p.voiceStates.Get(ctx, vs.DiscordID)
		if err != nil || fresh.GraceUntil == nil || fresh.GraceUntil.After(now) {
			continue
		}
		if err := p.voiceStates.ClearGrace(ctx, vs.DiscordID); err != nil {
			log.Printf("[presence] clear grace %s: %v", vs.DiscordID, err)
			continue
		}
		if vs.SessionID == "" {
			continue
		}
		if err := p.warn(ctx, vs.SessionID, vs.DiscordID, domain.WarnAuto, "left the session voice channel"); err != nil {
			log.Printf("[presence] auto warn %s: %v", vs.DiscordID, err)
		}
	}
}

// WarnManual es el warn del host (/warn). Solo el host, sesión viva.
func (p *PresenceService) WarnManual(ctx context.Context, guildID, actorID, targetID, reason string) (int, error) {
	sess, err := p.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	if sess.HostID != actorID {
		return 0, ErrNotHost
	}
	if reason == "" {
		reason = "warned by the session host"
	}
	if err := p.warn(ctx, sess.SessionID, targetID, domain.WarnManual, reason); err != nil {
		return 0, err
	}
	return p.warns.CountForSession(ctx, sess.SessionID, targetID)
}

// Unassign saca a un jugador del equipo a pedido del host (/unassign).
func (p *PresenceService) Unassign(ctx context.Context, guildID, actorID, targetID string) error {
	sess, err := p.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	if sess.HostID != actorID {
		return ErrNotHost
	}
	removed, err := p.removeFromTeam(ctx, sess, targetID, "You were removed from the team by the session host.")
	if err != nil {
		return err
	}
	if !removed {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PresenceService) warn(ctx context.Context, sessionID, discordID string, source domain.WarnSource, reason string) error {
	if err := p.warns.Add(ctx, storage.Warn{
		SessionID: sessionID,
		DiscordID: discordID,
		Source:    source,
		Reason:    reason,
	}); err != nil {
		return fmt.Errorf("record warn: %w", err)
	}
	count, err := p.warns.CountForSession(ctx, sessionID, discordID)
	if err != nil {
		return err
	}
	log.Printf("[presence] warn %d/%d for %s (%s)", count, p.warnThreshold, discordID, source)

	if count >= p.warnThreshold {
		sess, err := p.sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		// un jugador solo encolado no tiene asignación que sacar; el warn
		// queda registrado igual
		_, err = p.removeFromTeam(ctx, sess, discordID,
			fmt.Sprintf("You reached **%d warnings** and were removed from the team.", p.warnThreshold))
		return err
	}

	p.notifier.NotifyUser(ctx, discordID, Notice{
		Title:    "⚠️ Warning",
		Body:     fmt.Sprintf("You received a warning: %s. You now have **%d/%d** warnings this session.", reason, count, p.warnThreshold),
		Severity: SeverityWarning,
	})
	return nil
}

func (p *PresenceService) removeFromTeam(ctx context.Context, sess storage.Session, discordID, message string) (bool, error) {
	removed, err := p.assignments.Unassign(ctx, sess.SessionID, discordID)
	if err != nil {
		return false, err
	}
	if err := p.voiceStates.ClearSessionBinding(ctx, discordID); err != nil {
		log.Printf("[presence] clear binding %s: %v", discordID, err)
	}
	if !removed {
		return false, nil
	}
	if u, err := p.users.Get(ctx, discordID); err == nil {
		p.nicknames.ResetNickname(sess.GuildID, discordID, u.IGN)
	}
	p.notifier.NotifyUser(ctx, discordID, Notice{
		Title:    "🚫 Removed From Team",
		Body:     message,
		Severity: SeverityError,
	})
	log.Printf("[presence] removed %s from %s", discordID, sess.SessionID)
	return true, nil
}
