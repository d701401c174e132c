package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

func (r *Router) handleSlash(ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	uid := interactionUserID(ic)
	log.Printf("slash: /%s by=%s guild=%s", data.Name, uid, ic.GuildID)

	_ = DeferEphemeral(r.s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	guildID := r.guildFor(ic)

	switch data.Name {

	case "verify":
		ign, _ := optStr(ic, "ign")
		rawRoles, _ := optStr(ic, "roles")
		u, err := r.profiles.Verify(ctx, uid, ign, parseRoleList(rawRoles))
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ Couldn't verify: "+err.Error())
			return
		}
		if r.cfg.VerifiedRoleID != "" {
			if err := r.s.GuildMemberRoleAdd(guildID, uid, r.cfg.VerifiedRoleID); err != nil {
				log.Printf("[router] add verified role %s: %v", uid, err)
			}
		}
		ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ Verified as **%s** (%s). Join a role voice channel to queue up!",
			u.IGN, strings.Join(u.Roles, ", ")))

	case "profile":
		u, err := r.profiles.Get(ctx, uid)
		if errors.Is(err, storage.ErrNotFound) {
			ReplyEphemeral(r.s, ic, "You're not verified yet. Use `/verify` first.")
			return
		}
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEmbedEphemeral(r.s, ic, &discordgo.MessageEmbed{
			Title: "👤 " + u.IGN,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Roles", Value: strings.Join(u.Roles, ", "), Inline: true},
				{Name: "Total warns", Value: fmt.Sprintf("%d", u.WarnsTotal), Inline: true},
			},
			Color: severityColor(service.SeverityInfo),
		})

	case "unlink":
		if r.cfg.VerifiedRoleID != "" {
			if err := r.s.GuildMemberRoleRemove(guildID, uid, r.cfg.VerifiedRoleID); err != nil {
				log.Printf("[router] remove verified role %s: %v", uid, err)
			}
		}
		// el perfil se conserva: /verify lo reactiva
		ReplyEphemeral(r.s, ic, "🔓 Verified role removed. Your profile is kept; `/verify` brings it back.")

	case "status":
		sess, err := r.sessions.Active(ctx, guildID)
		if errors.Is(err, service.ErrNoSession) {
			ReplyEphemeral(r.s, ic, "ℹ️ No session is running right now.")
			return
		}
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		embed, err := r.gw.renderStatusEmbed(ctx, sess)
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ Couldn't build the status: "+err.Error())
			return
		}
		ReplyEmbedEphemeral(r.s, ic, embed)

	case "queue":
		sub, _ := subcmdName(ic)
		switch sub {
		case "join":
			raw, _ := optStr(ic, "role")
			role := domain.Role(raw)
			r.beginQueueJoin(ctx, ic, uid, role)
		case "leave":
			removed, err := r.queue.Leave(ctx, guildID, uid)
			if err != nil {
				ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
				return
			}
			if !removed {
				ReplyEphemeral(r.s, ic, "ℹ️ You weren't in any queue.")
				return
			}
			ReplyEphemeral(r.s, ic, "👋 You left the queue.")
		default:
			ReplyEphemeral(r.s, ic, "Use `/queue join` or `/queue leave`.")
		}

	case "warn":
		target, _ := optUserID(ic, "player")
		reason, _ := optStr(ic, "reason")
		count, err := r.presence.WarnManual(ctx, guildID, uid, target, reason)
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEphemeral(r.s, ic, fmt.Sprintf("⚠️ Warned <@%s> (%d this session).", target, count))

	case "unassign":
		target, _ := optUserID(ic, "player")
		if err := r.presence.Unassign(ctx, guildID, uid, target); err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ <@%s> removed from the team.", target))

	case "host":
		sub, _ := subcmdName(ic)
		switch sub {
		case "lock":
			st, err := r.sessions.ToggleLock(ctx, guildID, uid)
			if err != nil {
				ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
				return
			}
			if st == domain.StatusLocked {
				ReplyEphemeral(r.s, ic, "🔒 Queue locked. Nobody new gets in.")
			} else {
				ReplyEphemeral(r.s, ic, "🔓 Queue unlocked.")
			}
		case "start":
			st, err := r.sessions.ToggleActive(ctx, guildID, uid)
			if err != nil {
				ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
				return
			}
			if st == domain.StatusActive {
				ReplyEphemeral(r.s, ic, "🟢 Session started. Attendance is now tracked.")
			} else {
				ReplyEphemeral(r.s, ic, "🟡 Session back to forming.")
			}
		case "end":
			r.endSession(ctx, ic, guildID, uid, false)
		default:
			ReplyEphemeral(r.s, ic, "Use `/host lock`, `/host start` or `/host end`.")
		}

	case "admin":
		if !r.requireAdmin(ic) {
			return
		}
		sub, _ := subcmdName(ic)
		switch sub {
		case "sessions":
			sess, err := r.sessions.Active(ctx, guildID)
			if errors.Is(err, service.ErrNoSession) {
				ReplyEphemeral(r.s, ic, "ℹ️ No live session.")
				return
			}
			if err != nil {
				ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
				return
			}
			ReplyEphemeral(r.s, ic, fmt.Sprintf("**%s** `%s` status=%s host=<@%s> vc=<#%s>",
				sess.Name, sess.SessionID, sess.Status, sess.HostID, sess.VoiceChannelID))
		case "cleanup":
			r.endSession(ctx, ic, guildID, uid, true)
		}

	case "help":
		ReplyEphemeral(r.s, ic, helpText)
	}
}

func (r *Router) endSession(ctx context.Context, ic *discordgo.InteractionCreate, guildID, uid string, isAdmin bool) {
	err := r.sessions.End(ctx, guildID, uid, isAdmin)
	if errors.Is(err, service.ErrNoSession) {
		ReplyEphemeral(r.s, ic, "ℹ️ No session to end.")
		return
	}
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
		return
	}
	ReplyEphemeral(r.s, ic, "🏁 Session ended. Thanks for farming!")
}

// beginQueueJoin valida elegibilidad y abre el selector que toque: rol real
// va directo a personajes, flex primero elige rol.
func (r *Router) beginQueueJoin(ctx context.Context, ic *discordgo.InteractionCreate, uid string, role domain.Role) {
	_, err := r.queue.CheckJoinEligibility(ctx, uid, role)
	if errors.Is(err, service.ErrNotVerified) {
		ReplyEphemeral(r.s, ic, "🪪 You need to `/verify` before queueing.")
		return
	}
	if errors.Is(err, service.ErrRoleNotAvailable) {
		ReplyEphemeral(r.s, ic, "🚫 You didn't register **"+role.Title()+"** in your profile. Re-run `/verify` to add it.")
		return
	}
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
		return
	}
	if role == domain.RoleFlex {
		ReplyEphemeral(r.s, ic, "You're flexing. Pick the role you'll fill:", roleSelectRow())
		return
	}
	ReplyEphemeral(r.s, ic, r.characterPromptText(ctx, role), characterSelectRow(role, r.takenCharacters(ctx)))
}

// takenCharacters: personajes ya asignados en la sesión viva, para filtrar
// el selector.
func (r *Router) takenCharacters(ctx context.Context) []string {
	sess, err := r.sessions.Active(ctx, r.guildID)
	if err != nil {
		return nil
	}
	assigned, err := r.assigns.List(ctx, sess.SessionID)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range assigned {
		if a.Character != "" {
			out = append(out, a.Character)
		}
	}
	return out
}

func (r *Router) characterPromptText(ctx context.Context, role domain.Role) string {
	sess, err := r.sessions.Active(ctx, r.guildID)
	if err != nil {
		return "No session is live yet, you'll go to the **global queue**. Pick your " + role.Title() + " character:"
	}
	entries, err := r.queue.Entries(ctx, sess.SessionID)
	if err != nil {
		return "Pick your " + role.Title() + " character:"
	}
	return "Queue for **" + sess.Name + "** (" + service.QueueStatusLine(entries) + "). Pick your " + role.Title() + " character:"
}

const helpText = "**How it works**\n" +
	"1. `/verify` with your IGN and the roles you play.\n" +
	"2. Join a role voice channel (or use `/queue join`) and pick a character.\n" +
	"3. The matchmaker fills teams in order: supports, tanks, then DPS, first come first served.\n" +
	"4. Hosts: join the host voice channel to open a session, then use the buttons or `/host`.\n" +
	"5. During an active session, leaving the team channel starts a grace timer; expiring it is a warning, and 3 warnings remove you from the team."
