package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordadapter "github.com/jose-valero/lordfarm-bot/internal/adapters/discord"
	"github.com/jose-valero/lordfarm-bot/internal/app/service"
	"github.com/jose-valero/lordfarm-bot/internal/infra/config"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	usersRepo := storage.NewUserRepo(db)
	sessionsRepo := storage.NewSessionRepo(db)
	formationsRepo := storage.NewFormationRepo(db)
	queueRepo := storage.NewQueueRepo(db)
	assignmentsRepo := storage.NewAssignmentRepo(db)
	warnsRepo := storage.NewWarnRepo(db)
	voiceStatesRepo := storage.NewVoiceStateRepo(db)
	globalQueueRepo := storage.NewGlobalQueueRepo(db)

	// Discord session (los services necesitan el gateway)
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	gw := discordadapter.NewGateway(s, cfg, queueRepo, assignmentsRepo, formationsRepo, usersRepo)

	// Services
	profileSvc := service.NewProfileService(usersRepo)
	queueSvc := service.NewQueueService(sessionsRepo, queueRepo, globalQueueRepo, usersRepo, gw, gw)
	sessionSvc := service.NewSessionService(sessionsRepo, formationsRepo, assignmentsRepo, usersRepo, queueSvc, gw, gw, gw)
	presenceSvc := service.NewPresenceService(sessionsRepo, usersRepo, voiceStatesRepo, warnsRepo, assignmentsRepo, gw, gw,
		time.Duration(cfg.GracePeriodMinutes)*time.Minute, cfg.WarnThreshold)
	matchmaker := service.NewMatchmaker(sessionsRepo, formationsRepo, queueRepo, assignmentsRepo, usersRepo,
		voiceStatesRepo, gw, gw, gw, gw)

	// una sesión que termina no deja estado colgado en memoria
	sessionSvc.OnEnd(func(sessionID string) {
		matchmaker.ForgetSession(sessionID)
		gw.ForgetStatus(sessionID)
	})

	// Router
	r := discordadapter.NewRouter(s, cfg, gw, profileSvc, sessionSvc, queueSvc, presenceSvc, matchmaker, assignmentsRepo)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Recuperar la sesión viva tras un restart
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		sessionSvc.Recover(ctx, cfg.DiscordGuild)
		cancel()
	}

	// Pasada de matchmaking cada 15s (las interacciones también la disparan)
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if sess, err := sessionSvc.Active(ctx, cfg.DiscordGuild); err == nil {
				if err := matchmaker.Process(ctx, sess.SessionID); err != nil {
					log.Printf("[tick] match pass: %v", err)
				}
			}
			cancel()
		}
	}()

	// Gracias vencidas cada 30s
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			presenceSvc.SweepExpiredGrace(ctx)
			cancel()
		}
	}()

	// Canales vacíos cada 30s
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			sessionSvc.SweepEmptyChannels(ctx, cfg.DiscordGuild)
			cancel()
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
