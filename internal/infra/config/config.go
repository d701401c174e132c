package config

import (
	"log"
	"os"
	"strconv"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string

	// Canales de voz que disparan flujos
	JoinToHostVC    string // el host entra aquí para crear sesión
	FarmingCategory string // categoría donde se crean los VCs de sesión
	RoleQueueVCs    map[domain.Role]string
	AnnouncementsCh string // canal para "players needed"
	VerifiedRoleID  string // rol que se da al verificar
	FarmingRoleID   string // rol a pingear cuando faltan jugadores

	// Sistema de warns
	GracePeriodMinutes int // minutos para volver antes del warn
	WarnThreshold      int // auto-kick al llegar aquí
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("missing env %s", k)
		}
		return v
	}
	getInt := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("env %s: %v", k, err)
		}
		return n
	}

	return Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", true),

		JoinToHostVC:    get("JOIN_TO_HOST_VC_ID", true),
		FarmingCategory: get("FARMING_CATEGORY_ID", true),
		RoleQueueVCs: map[domain.Role]string{
			domain.RoleSupport: get("SUPPORT_VC_ID", true),
			domain.RoleTank:    get("TANK_VC_ID", true),
			domain.RoleDPS:     get("DPS_VC_ID", true),
			domain.RoleFlex:    get("FLEX_VC_ID", true),
		},
		AnnouncementsCh: get("ANNOUNCEMENTS_CHANNEL_ID", false),
		VerifiedRoleID:  get("VERIFIED_ROLE_ID", false),
		FarmingRoleID:   get("FARMING_ROLE_ID", false),

		GracePeriodMinutes: getInt("GRACE_PERIOD_MINUTES", 3),
		WarnThreshold:      getInt("WARN_THRESHOLD", 3),
	}
}
