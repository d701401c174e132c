package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

// Custom IDs de componentes. Los selects de personaje llevan el rol en el
// id porque la interacción puede llegar por DM, sin más contexto.
const (
	cidRoleSelect      = "role_select"
	cidCharSelect      = "char_select:" // + rol
	cidPresetQuick336  = "preset_336"
	cidPreset222       = "preset_222"
	cidFormationCustom = "formation_custom:" // + equipo
	cidFormationModal  = "formation_modal:"  // + equipo
	cidHostLock        = "host_lock"
	cidHostStart       = "host_start"
	cidHostEnd         = "host_end"

	// valor del select para "cualquier personaje"
	anyCharacter = "any"
)

func roleSelectRow() discordgo.ActionsRow {
	opts := make([]discordgo.SelectMenuOption, 0, len(domain.RoleOrder))
	for _, r := range domain.RoleOrder {
		opts = append(opts, discordgo.SelectMenuOption{
			Label: r.Title(),
			Value: string(r),
		})
	}
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    cidRoleSelect,
				Placeholder: "Pick the role you'll play",
				Options:     opts,
			},
		},
	}
}

// characterSelectRow arma el select del roster del rol, filtrando los ya
// tomados. Un select de Discord admite 25 opciones, una se reserva para "any".
func characterSelectRow(role domain.Role, taken []string) discordgo.ActionsRow {
	isTaken := map[string]bool{}
	for _, c := range taken {
		isTaken[c] = true
	}
	opts := []discordgo.SelectMenuOption{{
		Label:       "Any character",
		Value:       anyCharacter,
		Description: "Let the host decide",
	}}
	for _, c := range domain.Characters[role] {
		if isTaken[c] {
			continue
		}
		if len(opts) == 25 {
			break
		}
		opts = append(opts, discordgo.SelectMenuOption{Label: c, Value: c})
	}
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    cidCharSelect + string(role),
				Placeholder: "Pick your " + role.Title() + " character",
				Options:     opts,
			},
		},
	}
}

// hostSetupRows: presets de formación + custom, para el onboarding del host.
func hostSetupRows() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Quick 3-3-6", Style: discordgo.PrimaryButton, CustomID: cidPresetQuick336},
				discordgo.Button{Label: "2-2-2 both teams", Style: discordgo.SecondaryButton, CustomID: cidPreset222},
				discordgo.Button{Label: "Custom Team A", Style: discordgo.SecondaryButton, CustomID: cidFormationCustom + string(domain.TeamA)},
				discordgo.Button{Label: "Custom Team B", Style: discordgo.SecondaryButton, CustomID: cidFormationCustom + string(domain.TeamB)},
			},
		},
	}
}

// hostPanelRow: controles de la sesión para el host.
func hostPanelRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Lock queue", Style: discordgo.SecondaryButton, CustomID: cidHostLock},
			discordgo.Button{Label: "Start session", Style: discordgo.SuccessButton, CustomID: cidHostStart},
			discordgo.Button{Label: "End session", Style: discordgo.DangerButton, CustomID: cidHostEnd},
		},
	}
}

func formationModal(team domain.Team) *discordgo.InteractionResponse {
	input := func(id, label, placeholder string, required bool) discordgo.ActionsRow {
		return discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    id,
					Label:       label,
					Style:       discordgo.TextInputShort,
					Placeholder: placeholder,
					Required:    required,
					MaxLength:   100,
				},
			},
		}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: cidFormationModal + string(team),
			Title:    "Formation for Team " + string(team),
			Components: []discordgo.MessageComponent{
				input("support", "Supports", "2", true),
				input("tank", "Tanks", "2", true),
				input("dps", "DPS", "2", true),
				input("note", "Note (optional)", "triple support", false),
			},
		},
	}
}
