package discord

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// Refresh publica (o edita en el lugar) el embed de estado de la sesión,
// fijado en el text chat del VC de sesión.
func (g *Gateway) Refresh(ctx context.Context, sess storage.Session) {
	if sess.VoiceChannelID == "" {
		return
	}
	embed, err := g.renderStatusEmbed(ctx, sess)
	if err != nil {
		log.Printf("[status] render %s: %v", sess.SessionID, err)
		return
	}

	g.statusMu.Lock()
	ref, ok := g.statusMsgs[sess.SessionID]
	g.statusMu.Unlock()

	if ok {
		_, err := g.s.ChannelMessageEditEmbed(ref.channelID, ref.messageID, embed)
		if err == nil {
			return
		}
		log.Printf("[status] edit %s: %v", sess.SessionID, err)
		// el mensaje se perdió: repostear abajo
	}

	msg, err := g.s.ChannelMessageSendEmbed(sess.VoiceChannelID, embed)
	if err != nil {
		log.Printf("[status] send %s: %v", sess.SessionID, err)
		return
	}
	if err := g.s.ChannelMessagePin(sess.VoiceChannelID, msg.ID); err != nil {
		log.Printf("[status] pin %s: %v", sess.SessionID, err)
	}
	g.statusMu.Lock()
	g.statusMsgs[sess.SessionID] = statusMsgRef{channelID: sess.VoiceChannelID, messageID: msg.ID}
	g.statusMu.Unlock()
}

// ForgetStatus descarta la referencia al mensaje de una sesión terminada.
func (g *Gateway) ForgetStatus(sessionID string) {
	g.statusMu.Lock()
	delete(g.statusMsgs, sessionID)
	g.statusMu.Unlock()
}

func (g *Gateway) renderStatusEmbed(ctx context.Context, sess storage.Session) (*discordgo.MessageEmbed, error) {
	formations, err := g.forms.GetAll(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	assigned, err := g.assigns.List(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	queued, err := g.queue.List(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(assigned))
	for _, a := range assigned {
		ids = append(ids, a.DiscordID)
	}
	users, err := g.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(domain.TeamOrder)+1)
	for _, team := range domain.TeamOrder {
		f, ok := formations[team]
		if !ok {
			continue
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Team %s (%s)", team, formationLabel(f)),
			Value: teamLines(team, f, assigned, users),
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:  "Queue",
		Value: service.QueueStatusLine(queued),
	})

	return &discordgo.MessageEmbed{
		Title:  "📋 " + sess.Name,
		Color:  severityColor(service.SeverityInfo),
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: "Status: " + string(sess.Status)},
	}, nil
}

func formationLabel(f domain.Formation) string {
	if f.Note != "" {
		return f.Note
	}
	return fmt.Sprintf("%d-%d-%d", f.Support, f.Tank, f.DPS)
}

// teamLines arma una línea por rol: nombres asignados + huecos libres.
func teamLines(team domain.Team, f domain.Formation, assigned []storage.Assignment, users map[string]storage.User) string {
	var b strings.Builder
	for _, role := range domain.RoleOrder {
		want := f.Count(role)
		if want == 0 {
			continue
		}
		var names []string
		for _, a := range assigned {
			if a.Team != team || a.Role != role {
				continue
			}
			name := a.DiscordID
			if u, ok := users[a.DiscordID]; ok {
				name = u.IGN
			}
			if a.Character != "" {
				name += " (" + a.Character + ")"
			}
			names = append(names, name)
		}
		for len(names) < want {
			names = append(names, "*open*")
		}
		fmt.Fprintf(&b, "**%s**: %s\n", role.Title(), strings.Join(names, ", "))
	}
	if b.Len() == 0 {
		return "​"
	}
	return b.String()
}
