package discord

import "github.com/bwmarrin/discordgo"

// isAdmin: owner del server o bit Administrator en algún rol.
func (r *Router) isAdmin(ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil || ic.Member.User == nil {
		return false
	}
	if g, _ := r.s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}
	roles, _ := r.s.GuildRoles(ic.GuildID)
	var perms int64
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
			}
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (r *Router) requireAdmin(ic *discordgo.InteractionCreate) bool {
	if r.isAdmin(ic) {
		return true
	}
	ReplyEphemeral(r.s, ic, "🔒 You don't have permission for that.")
	return false
}
