package bot

import (
	"github.com/bwmarrin/discordgo"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	out := make(optionMap, len(options))
	for _, option := range options {
		out[option.Name] = option
	}
	return out
}

func (o optionMap) stringValue(name, fallback string) string {
	if option, ok := o[name]; ok {
		if value := option.StringValue(); value != "" {
			return value
		}
	}
	return fallback
}

func (o optionMap) intValue(name string, fallback int) int {
	if option, ok := o[name]; ok {
		return int(option.IntValue())
	}
	return fallback
}

// boolValue reports the option value and whether it was given.
func (o optionMap) boolValue(name string) (bool, bool) {
	option, ok := o[name]
	if !ok {
		return false, false
	}
	value, _ := option.Value.(bool)
	return value, true
}

// channelID returns the raw id of a channel option.
func (o optionMap) channelID(name string) string {
	if option, ok := o[name]; ok {
		id, _ := option.Value.(string)
		return id
	}
	return ""
}

// user resolves a user option, preferring the full object from the
// interaction's resolved data.
func (o optionMap) user(name string, resolved *discordgo.ApplicationCommandInteractionDataResolved) *discordgo.User {
	option, ok := o[name]
	if !ok {
		return nil
	}
	id, _ := option.Value.(string)
	if id == "" {
		return nil
	}
	if resolved != nil {
		if user, ok := resolved.Users[id]; ok && user != nil {
			return user
		}
	}
	return &discordgo.User{ID: id}
}

func resolvedMember(resolved *discordgo.ApplicationCommandInteractionDataResolved, userID string) *discordgo.Member {
	if resolved == nil {
		return nil
	}
	return resolved.Members[userID]
}

func invoker(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

// Permissions each /mod subcommand requires from the invoking member.
var modPermissions = map[string]int64{
	"ban":      discordgo.PermissionBanMembers,
	"tempban":  discordgo.PermissionBanMembers,
	"unban":    discordgo.PermissionBanMembers,
	"kick":     discordgo.PermissionKickMembers,
	"mute":     discordgo.PermissionManageRoles,
	"tempmute": discordgo.PermissionManageRoles,
	"unmute":   discordgo.PermissionManageRoles,
	"warn":     discordgo.PermissionModerateMembers,
	"warnings": discordgo.PermissionModerateMembers,
	"purge":    discordgo.PermissionManageMessages,
	"pending":  discordgo.PermissionModerateMembers,
	"stats":    discordgo.PermissionModerateMembers,
	"config":   discordgo.PermissionManageServer,
}

// rateLimited lists subcommands counted against the per-moderator limit.
var rateLimited = map[string]bool{
	"ban": true, "tempban": true, "unban": true, "kick": true,
	"mute": true, "tempmute": true, "unmute": true, "warn": true, "purge": true,
}

func hasPermission(member *discordgo.Member, required int64) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&required == required
}
