package discord

import "github.com/bwmarrin/discordgo"

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "verify",
		Description: "Register your IGN and roles so you can join queues",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "ign",
				Description: "Your in-game name",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "roles",
				Description: "Roles you play, comma separated (support, tank, dps)",
				Required:    true,
			},
		},
	},
	{
		Name:        "profile",
		Description: "Show your registered profile",
	},
	{
		Name:        "unlink",
		Description: "Remove your verified role (your profile is kept)",
	},
	{
		Name:        "status",
		Description: "Current session status: teams and queues",
	},
	{
		Name:        "queue",
		Description: "Manage your spot in the queue",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: "Queue up with a role",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "role",
					Description: "support, tank, dps or flex",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Support", Value: "support"},
						{Name: "Tank", Value: "tank"},
						{Name: "DPS", Value: "dps"},
						{Name: "Flex", Value: "flex"},
					},
				}},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "leave", Description: "Leave the queue"},
		},
	},
	{
		Name:        "warn",
		Description: "Warn a player in your session (host only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "player",
				Description: "Player to warn",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Reason",
			},
		},
	},
	{
		Name:        "unassign",
		Description: "Remove a player from the team (host only)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "player",
			Description: "Player to remove",
			Required:    true,
		}},
	},
	{
		Name:        "host",
		Description: "Session host controls",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "lock", Description: "Toggle the queue lock"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "start", Description: "Toggle the session start"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "end", Description: "End the session"},
		},
	},
	{
		Name:        "admin",
		Description: "Administration tools (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "sessions", Description: "Show the guild's live session"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "cleanup", Description: "Force-close the live session"},
		},
	},
	{
		Name:        "help",
		Description: "How the bot works",
	},
}
