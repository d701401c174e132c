package discord

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/infra/config"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

type Router struct {
	s       *discordgo.Session
	cfg     config.Config
	guildID string

	gw         *Gateway
	profiles   *service.ProfileService
	sessions   *service.SessionService
	queue      *service.QueueService
	presence   *service.PresenceService
	matchmaker *service.Matchmaker
	assigns    *storage.AssignmentRepo

	clickLimiter *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	cfg config.Config,
	gw *Gateway,
	profiles *service.ProfileService,
	sessions *service.SessionService,
	queue *service.QueueService,
	presence *service.PresenceService,
	matchmaker *service.Matchmaker,
	assigns *storage.AssignmentRepo,
) *Router {
	return &Router{
		s:            s,
		cfg:          cfg,
		guildID:      cfg.DiscordGuild,
		gw:           gw,
		profiles:     profiles,
		sessions:     sessions,
		queue:        queue,
		presence:     presence,
		matchmaker:   matchmaker,
		assigns:      assigns,
		clickLimiter: newUserLimiter(900 * time.Millisecond),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic in interaction: %v", rec)
				ReplyEphemeral(s, ic, "⚠️ Something went wrong.")
			}
		}()
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlash(ic)
		case discordgo.InteractionMessageComponent:
			r.handleComponent(ic)
		case discordgo.InteractionModalSubmit:
			r.handleModal(ic)
		}
	})

	r.s.AddHandler(r.onVoiceStateUpdate)
}

// guildFor: las interacciones por DM vienen sin guild; el bot es de un solo
// servidor, así que cae al configurado.
func (r *Router) guildFor(ic *discordgo.InteractionCreate) string {
	if ic.GuildID != "" {
		return ic.GuildID
	}
	return r.guildID
}

// onVoiceStateUpdate enruta los tres flujos de voz: VC de hosteo crea
// sesión, VCs de rol abren la cola, el resto es presencia.
func (r *Router) onVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.GuildID != r.guildID {
		return
	}
	if r.s.State.User != nil && vs.UserID == r.s.State.User.ID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	uid := vs.UserID

	// antes de las ramas, la presencia siempre se actualiza
	if err := r.presence.HandleVoiceUpdate(ctx, uid, vs.ChannelID); err != nil {
		log.Printf("[router] voice update %s: %v", uid, err)
	}
	if vs.ChannelID == "" {
		return
	}

	if vs.ChannelID == r.cfg.JoinToHostVC {
		go r.startHostFlow(uid)
		return
	}
	for role, chID := range r.cfg.RoleQueueVCs {
		if vs.ChannelID == chID {
			go r.startQueueFlow(uid, role)
			return
		}
	}
}
