package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

// discordAPI is the slice of the REST client the executor, notifier and
// moderation handlers use.
type discordAPI interface {
	GuildBanCreateWithReason(guildID, userID, reason string, days int) error
	GuildBanDelete(guildID, userID string) error
	GuildMemberDeleteWithReason(guildID, userID, reason string) error
	GuildMemberRoleAdd(guildID, userID, roleID string) error
	GuildMemberRoleRemove(guildID, userID, roleID string) error
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, params *discordgo.RoleParams) (*discordgo.Role, error)
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	UserChannelCreate(userID string) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string) error
	ChannelMessagesBulkDelete(channelID string, messages []string) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error)
}

type sessionAPI struct {
	session *discordgo.Session
}

func (a sessionAPI) GuildBanCreateWithReason(guildID, userID, reason string, days int) error {
	return a.session.GuildBanCreateWithReason(guildID, userID, reason, days)
}

func (a sessionAPI) GuildBanDelete(guildID, userID string) error {
	return a.session.GuildBanDelete(guildID, userID)
}

func (a sessionAPI) GuildMemberDeleteWithReason(guildID, userID, reason string) error {
	return a.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (a sessionAPI) GuildMemberRoleAdd(guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (a sessionAPI) GuildMemberRoleRemove(guildID, userID, roleID string) error {
	return a.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (a sessionAPI) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return a.session.GuildRoles(guildID)
}

func (a sessionAPI) GuildRoleCreate(guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	return a.session.GuildRoleCreate(guildID, params)
}

func (a sessionAPI) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	return a.session.GuildChannels(guildID)
}

func (a sessionAPI) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error {
	return a.session.ChannelPermissionSet(channelID, targetID, targetType, allow, deny)
}

func (a sessionAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return a.session.ChannelMessageSendEmbed(channelID, embed)
}

func (a sessionAPI) UserChannelCreate(userID string) (*discordgo.Channel, error) {
	return a.session.UserChannelCreate(userID)
}

func (a sessionAPI) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error) {
	return a.session.ChannelMessages(channelID, limit, beforeID, afterID, aroundID)
}

func (a sessionAPI) ChannelMessageDelete(channelID, messageID string) error {
	return a.session.ChannelMessageDelete(channelID, messageID)
}

func (a sessionAPI) ChannelMessagesBulkDelete(channelID string, messages []string) error {
	return a.session.ChannelMessagesBulkDelete(channelID, messages)
}

func (a sessionAPI) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return a.session.InteractionRespond(interaction, resp)
}

func (a sessionAPI) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	return a.session.FollowupMessageCreate(interaction, wait, data)
}

func restErrorCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return 0
}

func isMissingPermissions(err error) bool {
	return restErrorCode(err) == discordgo.ErrCodeMissingPermissions
}
