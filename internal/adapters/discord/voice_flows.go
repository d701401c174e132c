package discord

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// startHostFlow corre cuando alguien entra al VC de hosteo: crea la sesión,
// su canal de voz, mueve al host y le manda el panel de armado por DM.
func (r *Router) startHostFlow(hostID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := r.profiles.Get(ctx, hostID); errors.Is(err, storage.ErrNotFound) {
		r.gw.NotifyUser(ctx, hostID, service.Notice{
			Title:    "🪪 Verify First",
			Body:     "You need to `/verify` before hosting a session.",
			Severity: service.SeverityWarning,
		})
		return
	}

	sess, err := r.sessions.Create(ctx, r.guildID, hostID)
	if errors.Is(err, service.ErrAlreadyHosting) {
		r.gw.NotifyUser(ctx, hostID, service.Notice{
			Title:    "ℹ️ Already Hosting",
			Body:     "Your session **" + sess.Name + "** is still running.",
			Severity: service.SeverityInfo,
		})
		return
	}
	if errors.Is(err, service.ErrSessionExists) {
		r.gw.NotifyUser(ctx, hostID, service.Notice{
			Title:    "🚧 Session In Progress",
			Body:     "**" + sess.Name + "** is already running. Join its queue instead!",
			Severity: service.SeverityWarning,
		})
		return
	}
	if err != nil {
		log.Printf("[router] create session: %v", err)
		return
	}

	// el VC de la sesión, bajo la categoría de farming, capacidad 12
	ch, err := r.s.GuildChannelCreateComplex(r.guildID, discordgo.GuildChannelCreateData{
		Name:      sess.Name,
		Type:      discordgo.ChannelTypeGuildVoice,
		ParentID:  r.cfg.FarmingCategory,
		UserLimit: domain.FullLobby,
	})
	if err != nil {
		log.Printf("[router] create session channel: %v", err)
		r.gw.NotifyUser(ctx, hostID, service.Notice{
			Title:    "⚠️ Channel Error",
			Body:     "I couldn't create the session voice channel. Ask an admin to check my permissions.",
			Severity: service.SeverityError,
		})
		return
	}
	if err := r.sessions.BindVoiceChannel(ctx, sess.SessionID, ch.ID); err != nil {
		log.Printf("[router] bind channel: %v", err)
	}
	if _, err := r.gw.MoveMember(r.guildID, hostID, ch.ID); err != nil {
		log.Printf("[router] move host: %v", err)
	}

	// panel de armado por DM: presets, formación custom y controles
	dm, err := r.gw.dmChannel(hostID)
	if err != nil {
		log.Printf("[router] host dm: %v", err)
		return
	}
	comps := append(hostSetupRows(), hostPanelRow())
	_, err = r.s.ChannelMessageSendComplex(dm, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: "🎬 " + sess.Name + " is yours!",
			Description: "Set the formations below, then wait for the matchmaker to fill your teams.\n" +
				"Queue yourself from a role voice channel like everyone else.",
			Color: severityColor(service.SeveritySuccess),
		}},
		Components: comps,
	})
	if err != nil {
		log.Printf("[router] host panel: %v", err)
	}
	log.Printf("[router] host flow done: %s -> %s (%s)", hostID, sess.SessionID, ch.ID)
}

// startQueueFlow corre cuando alguien entra a un VC de rol: valida el perfil
// y abre el selector que corresponda por DM.
func (r *Router) startQueueFlow(discordID string, role domain.Role) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := r.queue.CheckJoinEligibility(ctx, discordID, role)
	if errors.Is(err, service.ErrNotVerified) {
		r.gw.NotifyUser(ctx, discordID, service.Notice{
			Title:    "🪪 Verify First",
			Body:     "Use `/verify` with your IGN and roles, then hop back into the queue channel.",
			Severity: service.SeverityWarning,
		})
		return
	}
	if errors.Is(err, service.ErrRoleNotAvailable) {
		r.gw.NotifyUser(ctx, discordID, service.Notice{
			Title:    "🚫 Role Not Registered",
			Body:     "You didn't register **" + role.Title() + "**. Re-run `/verify` to add it.",
			Severity: service.SeverityWarning,
		})
		return
	}
	if err != nil {
		log.Printf("[router] queue flow eligibility %s: %v", discordID, err)
		return
	}

	dm, err := r.gw.dmChannel(discordID)
	if err != nil {
		log.Printf("[router] queue dm %s: %v", discordID, err)
		return
	}

	var row discordgo.MessageComponent
	text := r.characterPromptText(ctx, role)
	if role == domain.RoleFlex {
		row = roleSelectRow()
		text = "You're flexing. Pick the role you'll fill:"
	} else {
		row = characterSelectRow(role, r.takenCharacters(ctx))
	}
	_, err = r.s.ChannelMessageSendComplex(dm, &discordgo.MessageSend{
		Content:    text,
		Components: []discordgo.MessageComponent{row},
	})
	if err != nil {
		log.Printf("[router] queue prompt %s: %v", discordID, err)
	}
}
