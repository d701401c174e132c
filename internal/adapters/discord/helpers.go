package discord

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

func isDiscordCode(err error, code int) bool {
	var re *discordgo.RESTError
	return errors.As(err, &re) && re.Message != nil && re.Message.Code == code
}

// interactionUserID: en guild viene Member, por DM viene User.
func interactionUserID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionString {
					return so.StringValue(), true
				}
			}
		}
	}
	return "", false
}

func optUserID(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionUser {
			return o.Value.(string), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionUser {
					return so.Value.(string), true
				}
			}
		}
	}
	return "", false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// parseRoleList: "support, dps" -> roles válidos, dedup.
func parseRoleList(raw string) []domain.Role {
	seen := map[domain.Role]bool{}
	var out []domain.Role
	for _, tok := range strings.Split(raw, ",") {
		r := domain.Role(strings.ToLower(strings.TrimSpace(tok)))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// modalValue saca el valor de un TextInput por custom id.
func modalValue(data discordgo.ModalSubmitInteractionData, id string) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == id {
				return in.Value
			}
		}
	}
	return ""
}
