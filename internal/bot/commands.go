package bot

import "github.com/bwmarrin/discordgo"

var (
	modPerms   int64 = discordgo.PermissionKickMembers
	adminPerms int64 = discordgo.PermissionAdministrator
)

func (b *Bot) registerCommands() error {
	userOption := func(name, description string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        name,
			Description: description,
			Required:    required,
		}
	}
	stringOption := func(name, description string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: description,
			Required:    required,
		}
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "Show XP rank",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to look up, defaults to you", false),
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the XP leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "Entries to show (default 10)",
					Required:    false,
				},
			},
		},
		{
			Name:        "boostperks",
			Description: "Show your booster tier and perks",
		},
		{
			Name:        "boosters",
			Description: "List current server boosters",
		},
		{
			Name:        "color",
			Description: "Pick a booster color role",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("name", "Color name", true),
			},
		},
		{
			Name:        "emblem",
			Description: "Pick a booster emblem role",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("name", "Emblem name", true),
			},
		},
		{
			Name:                     "xp",
			Description:              "Control the XP system",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "start", Description: "Enable XP gain"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stop", Description: "Disable XP gain"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "Show XP system status"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "reset", Description: "Reset all XP balances"},
			},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to warn", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "mute",
			Description:              "Mute a member",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to mute", true),
				stringOption("duration", "Duration like 30m, 2h, 7d, or perm", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "unmute",
			Description:              "Unmute a member",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to unmute", true),
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to kick", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a member",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to ban", true),
				stringOption("duration", "Duration like 7d, or perm", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "unban",
			Description:              "Lift a ban by user ID",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("user_id", "Banned user's ID", true),
			},
		},
		{
			Name:                     "restrict",
			Description:              "Restrict a member from XP and economy features",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to restrict", true),
				stringOption("reason", "Reason", true),
			},
		},
		{
			Name:                     "unrestrict",
			Description:              "Lift a restriction",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to unrestrict", true),
			},
		},
		{
			Name:                     "history",
			Description:              "Show a member's moderation history",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Member to look up", false),
				userOption("moderator", "Show actions taken by this moderator instead", false),
			},
		},
		{
			Name:                     "modstats",
			Description:              "Summarize recent moderation activity",
			DefaultMemberPermissions: &modPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Window in days (default 7)",
					Required:    false,
				},
			},
		},
		{
			Name:                     "setup",
			Description:              "Configure channels and roles",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the current settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Bind a channel setting",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Which channel to set",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "bot", Value: "bot"},
								{Name: "boost-announce", Value: "boost-announce"},
								{Name: "booster-chat", Value: "booster-chat"},
								{Name: "booster-lounge", Value: "booster-lounge"},
								{Name: "mod-log", Value: "mod-log"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Target channel",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "role",
					Description: "Bind a role setting",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Which role to set",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "booster-server", Value: "booster-server"},
								{Name: "booster-veteran", Value: "booster-veteran"},
								{Name: "booster-mythic", Value: "booster-mythic"},
								{Name: "spotlight", Value: "spotlight"},
								{Name: "muted", Value: "muted"},
								{Name: "restricted", Value: "restricted"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Target role",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "color",
					Description: "Add or remove a booster color option",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Color name", true),
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role granting the color, omit to remove",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "emblem",
					Description: "Add or remove a booster emblem option",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Emblem name", true),
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role granting the emblem, omit to remove",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "vc",
					Description: "Register or remove a join-to-create voice channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Master voice channel",
							Required:     true,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "remove",
							Description: "Remove the registration instead",
							Required:    false,
						},
					},
				},
			},
		},
	}

	appID := b.session.State.User.ID
	guildID := b.cfg.GuildID
	existing, err := b.session.ApplicationCommands(appID, guildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, guildID, current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			return err
		}
	}
	return nil
}
