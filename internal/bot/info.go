package bot

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func (b *Bot) handleAvatar(interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := newOptionMap(data.Options).user("member", data.Resolved)
	if user == nil {
		user = invoker(interaction)
	}
	if user == nil {
		return
	}
	embed := b.commandEmbed(fmt.Sprintf("🖼️ %s's Avatar", user.Username), "", b.cfg.Notifications.EmbedColors.Purple, nil)
	embed.Image = &discordgo.MessageEmbedImage{URL: user.AvatarURL("1024")}
	b.respondEmbed(interaction, embed, false)
}

func (b *Bot) handlePoll(session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	options := newOptionMap(data.Options)
	question := options.stringValue("question", "")
	first := options.stringValue("option1", "")
	second := options.stringValue("option2", "")

	embed := b.commandEmbed(fmt.Sprintf("📊 Poll: %s", question),
		fmt.Sprintf("1️⃣ %s\n\n2️⃣ %s", first, second),
		b.cfg.Notifications.EmbedColors.Green, nil)
	if user := invoker(interaction); user != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: "Poll by " + user.Username, IconURL: user.AvatarURL("")}
	}
	b.respondEmbed(interaction, embed, false)

	message, err := session.InteractionResponse(interaction.Interaction)
	if err != nil || message == nil {
		return
	}
	for _, emoji := range []string{"1️⃣", "2️⃣"} {
		if err := session.MessageReactionAdd(message.ChannelID, message.ID, emoji); err != nil {
			return
		}
	}
}

func (b *Bot) handleUserInfo(ctx context.Context, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	user := newOptionMap(data.Options).user("member", data.Resolved)
	var member *discordgo.Member
	if user == nil {
		user = invoker(interaction)
		member = interaction.Member
	} else {
		member = resolvedMember(data.Resolved, user.ID)
	}
	if user == nil {
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "ID", Value: user.ID, Inline: true},
		{Name: "Bot", Value: fmt.Sprintf("%t", user.Bot), Inline: true},
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Account Created", Value: fmt.Sprintf("<t:%d:D> (%s)", created.Unix(), humanize.Time(created)), Inline: false})
	}
	if member != nil {
		if !member.JoinedAt.IsZero() {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Joined Server", Value: fmt.Sprintf("<t:%d:D> (%s)", member.JoinedAt.Unix(), humanize.Time(member.JoinedAt)), Inline: false})
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Roles", Value: roleMentions(member.Roles, 20), Inline: false})
	}
	if interaction.GuildID != "" {
		if status := b.moderationStatus(ctx, interaction.GuildID, user.ID); status != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Moderation", Value: status, Inline: false})
		}
	}

	embed := b.commandEmbed(fmt.Sprintf("👤 %s", user.Username), mention(user.ID), b.cfg.Notifications.EmbedColors.Blue, fields)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")}
	b.respondEmbed(interaction, embed, false)
}

// moderationStatus summarizes pending reversals and active warnings.
func (b *Bot) moderationStatus(ctx context.Context, guildID, userID string) string {
	var lines []string
	for _, kind := range []scheduler.Kind{scheduler.KindTempBan, scheduler.KindTempMute} {
		if snap, ok := b.scheduler.Get(scheduler.Key{GuildID: guildID, MemberID: userID, Kind: kind}); ok {
			lines = append(lines, fmt.Sprintf("%s %s lifts <t:%d:R>", kindEmoji(kind), kindLabel(kind), snap.FireAt.Unix()))
		}
	}
	if inf, err := b.store.GetInfraction(ctx, guildID, userID, storage.CategoryWarn); err == nil && inf.CountTotal > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ %d active warning(s)", inf.CountTotal))
	}
	return strings.Join(lines, "\n")
}

func roleMentions(roleIDs []string, limit int) string {
	if len(roleIDs) == 0 {
		return "None"
	}
	var parts []string
	for i, roleID := range roleIDs {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d more", len(roleIDs)-limit))
			break
		}
		parts = append(parts, "<@&"+roleID+">")
	}
	return strings.Join(parts, " ")
}

func (b *Bot) handleServerInfo(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" {
		b.respondEmbed(interaction, b.errorEmbed("Server Only", "This command only works inside a server."), true)
		return
	}
	guild, err := session.State.Guild(interaction.GuildID)
	if err != nil || guild == nil {
		guild, err = session.Guild(interaction.GuildID)
		if err != nil {
			b.respondEmbed(interaction, b.actionErrorEmbed(err), true)
			return
		}
	}

	memberCount := guild.MemberCount
	if memberCount == 0 {
		memberCount = guild.ApproximateMemberCount
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Owner", Value: mention(guild.OwnerID), Inline: true},
		{Name: "Members", Value: humanize.Comma(int64(memberCount)), Inline: true},
		{Name: "Channels", Value: fmt.Sprintf("%d", len(guild.Channels)), Inline: true},
		{Name: "Roles", Value: fmt.Sprintf("%d", len(guild.Roles)), Inline: true},
		{Name: "Boost Tier", Value: fmt.Sprintf("%d (%d boosts)", guild.PremiumTier, guild.PremiumSubscriptionCount), Inline: true},
	}
	if created, err := discordgo.SnowflakeTimestamp(guild.ID); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Created", Value: fmt.Sprintf("<t:%d:D> (%s)", created.Unix(), humanize.Time(created)), Inline: false})
	}
	embed := b.commandEmbed(fmt.Sprintf("🏰 %s", guild.Name), guild.Description, b.cfg.Notifications.EmbedColors.Blue, fields)
	if guild.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: discordgo.EndpointGuildIcon(guild.ID, guild.Icon)}
	}
	b.respondEmbed(interaction, embed, false)
}

func (b *Bot) handleBotInfo(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	fields := []*discordgo.MessageEmbedField{
		{Name: "🐹 Go Version", Value: runtime.Version(), Inline: true},
		{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		{Name: "⏱️ Uptime", Value: formatUptime(time.Since(b.startedAt)), Inline: true},
		{Name: "📡 Latency", Value: session.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
		{Name: "🌍 Servers", Value: fmt.Sprintf("%d", len(session.State.Guilds)), Inline: true},
		{Name: "⏳ Pending Reversals", Value: fmt.Sprintf("%d", b.scheduler.PendingCount()), Inline: true},
	}

	if hostInfo, err := host.Info(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true})
	}
	if count, err := cpu.Counts(true); err == nil {
		value := fmt.Sprintf("%d cores", count)
		if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
			value = fmt.Sprintf("%d cores, %.1f%%", count, percent[0])
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🔥 CPU", Value: value, Inline: true})
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%s / %s)", vm.UsedPercent, humanize.IBytes(vm.Used), humanize.IBytes(vm.Total)), Inline: true})
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	fields = append(fields, &discordgo.MessageEmbedField{Name: "📦 Heap", Value: humanize.IBytes(stats.HeapAlloc), Inline: true})

	b.respondEmbed(interaction, b.commandEmbed("🤖 Bot Info", "", b.cfg.Notifications.EmbedColors.Purple, fields), true)
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d)
	}
	return d.String()
}

func (b *Bot) handleHelp(interaction *discordgo.InteractionCreate) {
	fields := []*discordgo.MessageEmbedField{
		{
			Name: "🛡️ Moderation",
			Value: "`/mod ban` - Ban a member\n" +
				"`/mod tempban` - Temporarily ban\n" +
				"`/mod unban` - Unban a user\n" +
				"`/mod kick` - Kick a member\n" +
				"`/mod mute` - Mute a member\n" +
				"`/mod tempmute` - Temporarily mute\n" +
				"`/mod unmute` - Unmute a member\n" +
				"`/mod warn` - Warn a member\n" +
				"`/mod warnings` - Show warnings\n" +
				"`/mod purge` - Delete messages\n" +
				"`/mod pending` - Pending unbans and unmutes\n" +
				"`/mod stats` - Moderation statistics\n" +
				"`/mod config` - Mod log channel and DM settings",
		},
		{
			Name: "🎉 Fun",
			Value: "`/poll` - Create a poll\n" +
				"`/avatar` - Show user avatar\n" +
				"`/userinfo` - Get user info",
		},
		{
			Name: "ℹ️ Utility",
			Value: "`/serverinfo` - Server statistics\n" +
				"`/botinfo` - Bot statistics\n" +
				"`/help` - This menu",
		},
	}
	b.respondEmbed(interaction, b.commandEmbed("ℹ️ Bot Help Menu", "Here are all available commands:", b.cfg.Notifications.EmbedColors.Blue, fields), true)
}
