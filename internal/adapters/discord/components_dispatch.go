package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

func (r *Router) handleComponent(ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	uid := interactionUserID(ic)

	// los modals requieren responder la interacción directo, sin defer
	if team, ok := strings.CutPrefix(data.CustomID, cidFormationCustom); ok {
		if err := r.s.InteractionRespond(ic.Interaction, formationModal(domain.Team(team))); err != nil {
			log.Printf("[router] open modal: %v", err)
		}
		return
	}

	_ = DeferEphemeral(r.s, ic)
	if !r.clickLimiter.Allow(uid) {
		ReplyEphemeral(r.s, ic, "⏳ Give it a second...")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	guildID := r.guildFor(ic)

	switch {

	case data.CustomID == cidRoleSelect:
		if len(data.Values) == 0 {
			ReplyEphemeral(r.s, ic, "⚠️ Pick a role.")
			return
		}
		role := domain.Role(data.Values[0])
		if !role.Valid() {
			ReplyEphemeral(r.s, ic, "⚠️ Unknown role.")
			return
		}
		ReplyEphemeral(r.s, ic, r.characterPromptText(ctx, role), characterSelectRow(role, r.takenCharacters(ctx)))

	case strings.HasPrefix(data.CustomID, cidCharSelect):
		role := domain.Role(strings.TrimPrefix(data.CustomID, cidCharSelect))
		if len(data.Values) == 0 {
			ReplyEphemeral(r.s, ic, "⚠️ Pick a character.")
			return
		}
		character := data.Values[0]
		if character == anyCharacter {
			character = ""
		}
		if err := r.queue.SelectCharacter(ctx, guildID, uid, role, character); err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEphemeral(r.s, ic, "✅ You're in! You'll get a DM when you're matched.")
		go r.runMatchPass(guildID)

	case data.CustomID == cidPresetQuick336:
		// A entero de dps, B mitad support mitad tank
		r.applyPreset(ctx, ic, guildID, uid,
			domain.FormationPresets["6-dps"], domain.FormationPresets["3-3"])

	case data.CustomID == cidPreset222:
		r.applyPreset(ctx, ic, guildID, uid,
			domain.FormationPresets["2-2-2"], domain.FormationPresets["2-2-2"])

	case data.CustomID == cidHostLock:
		st, err := r.sessions.ToggleLock(ctx, guildID, uid)
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEphemeral(r.s, ic, "Queue is now **"+string(st)+"**.")

	case data.CustomID == cidHostStart:
		st, err := r.sessions.ToggleActive(ctx, guildID, uid)
		if err != nil {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
			return
		}
		ReplyEphemeral(r.s, ic, "Session is now **"+string(st)+"**.")

	case data.CustomID == cidHostEnd:
		r.endSession(ctx, ic, guildID, uid, false)
	}
}

func (r *Router) applyPreset(ctx context.Context, ic *discordgo.InteractionCreate, guildID, uid string, teamA, teamB domain.Formation) {
	sess, err := r.sessions.Active(ctx, guildID)
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ No live session.")
		return
	}
	if err := r.sessions.ApplyPreset(ctx, sess.SessionID, uid, teamA, teamB); err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
		return
	}
	ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ Formations set: Team A %d-%d-%d, Team B %d-%d-%d.",
		teamA.Support, teamA.Tank, teamA.DPS, teamB.Support, teamB.Tank, teamB.DPS))
	go r.runMatchPass(guildID)
}

func (r *Router) handleModal(ic *discordgo.InteractionCreate) {
	data := ic.ModalSubmitData()
	uid := interactionUserID(ic)
	team, ok := strings.CutPrefix(data.CustomID, cidFormationModal)
	if !ok {
		return
	}

	_ = DeferEphemeral(r.s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	guildID := r.guildFor(ic)

	parse := func(id string) (int, error) {
		v := strings.TrimSpace(modalValue(data, id))
		if v == "" {
			return 0, nil
		}
		return strconv.Atoi(v)
	}
	sup, err1 := parse("support")
	tank, err2 := parse("tank")
	dps, err3 := parse("dps")
	if err1 != nil || err2 != nil || err3 != nil {
		ReplyEphemeral(r.s, ic, "⚠️ Counts must be plain numbers.")
		return
	}
	f := domain.Formation{Support: sup, Tank: tank, DPS: dps, Note: strings.TrimSpace(modalValue(data, "note"))}

	sess, err := r.sessions.Active(ctx, guildID)
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ No live session.")
		return
	}
	if err := r.sessions.SetFormation(ctx, sess.SessionID, uid, domain.Team(team), f); err != nil {
		if errors.Is(err, service.ErrInvalidFormation) {
			ReplyEphemeral(r.s, ic, "⚠️ "+err.Error()+" (they must sum to 6)")
			return
		}
		ReplyEphemeral(r.s, ic, "⚠️ "+err.Error())
		return
	}
	ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ Team %s: %d support / %d tank / %d dps.", team, sup, tank, dps))
	go r.runMatchPass(guildID)
}

// runMatchPass dispara una pasada de matchmaking fuera del hilo de la
// interacción.
func (r *Router) runMatchPass(guildID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sess, err := r.sessions.Active(ctx, guildID)
	if err != nil {
		return
	}
	if err := r.matchmaker.Process(ctx, sess.SessionID); err != nil {
		log.Printf("[router] match pass: %v", err)
	}
}
