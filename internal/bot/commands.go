package bot

import "github.com/bwmarrin/discordgo"

var (
	minOne      = 1.0
	minZero     = 0.0
	modDefaults = int64(discordgo.PermissionModerateMembers)
)

func memberOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: description,
		Required:    required,
	}
}

func reasonOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: description,
		MaxLength:   500,
	}
}

func durationOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: description,
		Required:    true,
		MaxLength:   12,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func commandDefinitions(purgeMax int) []*discordgo.ApplicationCommand {
	dmAllowed := false
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "mod",
			Description:              "Moderation commands",
			DefaultMemberPermissions: &modDefaults,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("ban", "Ban a member from the server",
					memberOption("Member to ban", true),
					reasonOption("Reason for ban"),
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "delete_days",
						Description: "Number of days of messages to delete (0-7)",
						MinValue:    &minZero,
						MaxValue:    7,
					},
				),
				subcommand("tempban", "Temporarily ban a member",
					memberOption("Member to tempban", true),
					durationOption("Ban duration (e.g. 2d, 1w)"),
					reasonOption("Reason for tempban"),
				),
				subcommand("unban", "Unban a user and cancel any pending tempban",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "user_id",
						Description: "ID of the banned user",
						Required:    true,
					},
					reasonOption("Reason for unban"),
				),
				subcommand("kick", "Kick a member",
					memberOption("Member to kick", true),
					reasonOption("Reason for kick"),
				),
				subcommand("mute", "Mute a member until unmuted",
					memberOption("Member to mute", true),
					reasonOption("Reason for mute"),
				),
				subcommand("tempmute", "Temporarily mute a member",
					memberOption("Member to mute", true),
					durationOption("Mute duration (e.g. 30m, 2h)"),
					reasonOption("Reason for mute"),
				),
				subcommand("unmute", "Unmute a member and cancel any pending unmute",
					memberOption("Member to unmute", true),
					reasonOption("Reason for unmute"),
				),
				subcommand("warn", "Warn a member",
					memberOption("Member to warn", true),
					reasonOption("Reason for warning"),
				),
				subcommand("warnings", "Show a member's warnings and recent cases",
					memberOption("Member to inspect", true),
				),
				subcommand("purge", "Delete messages",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "amount",
						Description: "Number of messages to delete",
						Required:    true,
						MinValue:    &minOne,
						MaxValue:    float64(purgeMax),
					},
				),
				subcommand("pending", "List pending automatic unbans and unmutes"),
				subcommand("stats", "Moderation statistics",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "period",
						Description: "Time range",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "day", Value: "day"},
							{Name: "week", Value: "week"},
							{Name: "month", Value: "month"},
							{Name: "all", Value: "all"},
						},
					},
				),
				subcommand("config", "Show or change this server's moderation settings",
					&discordgo.ApplicationCommandOption{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "modlog",
						Description:  "Channel that receives moderation cases",
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "dm",
						Description: "Message members when they are moderated",
					},
				),
			},
		},
		{
			Name:        "avatar",
			Description: "Get a user's avatar",
			Options:     []*discordgo.ApplicationCommandOption{memberOption("Member to get avatar from", false)},
		},
		{
			Name:        "poll",
			Description: "Create a simple poll",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "question", Description: "Poll question", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "option1", Description: "First option", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "option2", Description: "Second option", Required: true},
			},
		},
		{
			Name:        "userinfo",
			Description: "Get user info",
			Options:     []*discordgo.ApplicationCommandOption{memberOption("Member to inspect", false)},
		},
		{
			Name:         "serverinfo",
			Description:  "Server statistics",
			DMPermission: &dmAllowed,
		},
		{
			Name:        "botinfo",
			Description: "Bot and host statistics",
		},
		{
			Name:        "help",
			Description: "Show all available commands",
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions(b.cfg.Moderation.PurgeMax)

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
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
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
