package discord

import (
	"context"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/config"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// Gateway es el lado "saliente" del adapter: implementa los puertos que los
// services necesitan de Discord (DMs, anuncios, voz, nicknames, embed de
// estado, selector de personaje).
type Gateway struct {
	s   *discordgo.Session
	cfg config.Config

	queue   *storage.QueueRepo
	assigns *storage.AssignmentRepo
	forms   *storage.FormationRepo
	users   *storage.UserRepo

	// cache de canales DM por usuario
	dmMu sync.Mutex
	dms  map[string]string

	// mensaje de estado fijado por sesión
	statusMu sync.Mutex
	statusMsgs map[string]statusMsgRef
}

type statusMsgRef struct {
	channelID string
	messageID string
}

func NewGateway(
	s *discordgo.Session,
	cfg config.Config,
	queue *storage.QueueRepo,
	assigns *storage.AssignmentRepo,
	forms *storage.FormationRepo,
	users *storage.UserRepo,
) *Gateway {
	return &Gateway{
		s:          s,
		cfg:        cfg,
		queue:      queue,
		assigns:    assigns,
		forms:      forms,
		users:      users,
		dms:        map[string]string{},
		statusMsgs: map[string]statusMsgRef{},
	}
}

func (g *Gateway) dmChannel(discordID string) (string, error) {
	g.dmMu.Lock()
	if id, ok := g.dms[discordID]; ok {
		g.dmMu.Unlock()
		return id, nil
	}
	g.dmMu.Unlock()

	ch, err := g.s.UserChannelCreate(discordID)
	if err != nil {
		return "", err
	}
	g.dmMu.Lock()
	g.dms[discordID] = ch.ID
	g.dmMu.Unlock()
	return ch.ID, nil
}

func severityColor(sev service.Severity) int {
	switch sev {
	case service.SeveritySuccess:
		return 0x2ecc71
	case service.SeverityWarning:
		return 0xf1c40f
	case service.SeverityError:
		return 0xe74c3c
	}
	return 0x3498db
}

// NotifyUser manda un DM con embed. Best-effort: DMs cerrados solo se loguean.
func (g *Gateway) NotifyUser(_ context.Context, discordID string, n service.Notice) {
	chID, err := g.dmChannel(discordID)
	if err != nil {
		log.Printf("[gateway] dm channel for %s: %v", discordID, err)
		return
	}
	_, err = g.s.ChannelMessageSendEmbed(chID, &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       severityColor(n.Severity),
	})
	if err != nil {
		log.Printf("[gateway] dm %s: %v", discordID, err)
	}
}

// Announce publica en el canal de anuncios del guild, pingeando el rol de
// farming si está configurado.
func (g *Gateway) Announce(_ context.Context, _ string, n service.Notice) {
	if g.cfg.AnnouncementsCh == "" {
		return
	}
	content := ""
	if g.cfg.FarmingRoleID != "" {
		content = "<@&" + g.cfg.FarmingRoleID + ">"
	}
	_, err := g.s.ChannelMessageSendComplex(g.cfg.AnnouncementsCh, &discordgo.MessageSend{
		Content: content,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       n.Title,
			Description: n.Body,
			Color:       severityColor(n.Severity),
		}},
	})
	if err != nil {
		log.Printf("[gateway] announce: %v", err)
	}
}

// OccupantCount cuenta miembros en el VC vía el state cache del gateway.
func (g *Gateway) OccupantCount(channelID string) (int, error) {
	ch, err := g.safeGetChannel(channelID)
	if err != nil {
		if isDiscordCode(err, discordgo.ErrCodeUnknownChannel) {
			return 0, service.ErrChannelGone
		}
		return 0, err
	}
	guild, err := g.s.State.Guild(ch.GuildID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

func (g *Gateway) DeleteChannel(channelID string) error {
	_, err := g.s.ChannelDelete(channelID)
	if isDiscordCode(err, discordgo.ErrCodeUnknownChannel) {
		return nil // ya no existe, mismo resultado
	}
	return err
}

// MoveMember: moved=false cuando el jugador no está en voz (Discord no deja
// meter a nadie a un VC si no está ya conectado).
func (g *Gateway) MoveMember(guildID, discordID, channelID string) (bool, error) {
	vs, err := g.s.State.VoiceState(guildID, discordID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return false, nil
	}
	if vs.ChannelID == channelID {
		return true, nil
	}
	if err := g.s.GuildMemberMove(guildID, discordID, &channelID); err != nil {
		return false, err
	}
	return true, nil
}

// SetRoleNickname pone "IGN (Role)". Si Discord no deja (jerarquía de roles,
// owner del server), avisa por DM para que lo haga a mano.
func (g *Gateway) SetRoleNickname(guildID, discordID, ign string, role domain.Role) {
	nick := ign + " (" + role.Title() + ")"
	if len(nick) > 32 {
		nick = nick[:32]
	}
	if err := g.s.GuildMemberNickname(guildID, discordID, nick); err != nil {
		log.Printf("[gateway] nickname %s: %v", discordID, err)
		g.NotifyUser(context.Background(), discordID, service.Notice{
			Title:    "✏️ Nickname",
			Body:     "I couldn't change your nickname. Please set it to `" + nick + "` manually.",
			Severity: service.SeverityInfo,
		})
	}
}

func (g *Gateway) ResetNickname(guildID, discordID, ign string) {
	if err := g.s.GuildMemberNickname(guildID, discordID, ign); err != nil {
		log.Printf("[gateway] reset nickname %s: %v", discordID, err)
	}
}

// PromptCharacter reabre el selector de personaje por DM (replay de la cola
// global para los que no habían elegido).
func (g *Gateway) PromptCharacter(_ context.Context, discordID, _ string, role domain.Role) {
	chID, err := g.dmChannel(discordID)
	if err != nil {
		log.Printf("[gateway] prompt dm %s: %v", discordID, err)
		return
	}
	_, err = g.s.ChannelMessageSendComplex(chID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎬 Session Started",
			Description: "A new session just started. Pick your **" + role.Title() + "** character to join the queue.",
			Color:       severityColor(service.SeverityInfo),
		}},
		Components: []discordgo.MessageComponent{characterSelectRow(role, nil)},
	})
	if err != nil {
		log.Printf("[gateway] prompt %s: %v", discordID, err)
	}
}

func (g *Gateway) safeGetChannel(id string) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(id); err == nil && ch != nil {
		return ch, nil
	}
	ch, err := g.s.Channel(id)
	if err != nil {
		return nil, err
	}
	_ = g.s.State.ChannelAdd(ch)
	return ch, nil
}
