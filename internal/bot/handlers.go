package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel-moderation/internal/analytics"
	"sentinel-moderation/internal/duration"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const bulkDeleteMaxAge = 14 * 24 * time.Hour

// modRequest carries what every /mod subcommand needs.
type modRequest struct {
	interaction *discordgo.InteractionCreate
	options     optionMap
	resolved    *discordgo.ApplicationCommandInteractionDataResolved
	guildID     string
	moderatorID string
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "mod":
		b.handleModCommand(ctx, interaction, data)
	case "avatar":
		b.handleAvatar(interaction, data)
	case "poll":
		b.handlePoll(session, interaction, data)
	case "userinfo":
		b.handleUserInfo(ctx, interaction, data)
	case "serverinfo":
		b.handleServerInfo(session, interaction)
	case "botinfo":
		b.handleBotInfo(session, interaction)
	case "help":
		b.handleHelp(interaction)
	}
}

func (b *Bot) handleModCommand(ctx context.Context, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if interaction.GuildID == "" || interaction.Member == nil {
		b.respondEmbed(interaction, b.errorEmbed("Server Only", "Moderation commands only work inside a server."), true)
		return
	}
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	if !hasPermission(interaction.Member, modPermissions[sub.Name]) {
		b.respondEmbed(interaction, b.errorEmbed("Permission Denied", "You don't have permission to use this command!"), true)
		return
	}

	req := modRequest{
		interaction: interaction,
		options:     newOptionMap(sub.Options),
		resolved:    data.Resolved,
		guildID:     interaction.GuildID,
	}
	if user := invoker(interaction); user != nil {
		req.moderatorID = user.ID
	}

	if rateLimited[sub.Name] {
		if ok, wait := b.limiter.Allow(req.guildID, req.moderatorID); !ok {
			b.respondEmbed(interaction, b.errorEmbed("Slow Down",
				fmt.Sprintf("You have reached the moderation action limit. Try again in %s.", formatDelay(wait.Round(time.Second)))), true)
			return
		}
	}

	switch sub.Name {
	case "ban":
		b.handleBan(ctx, req)
	case "tempban":
		b.handleTimed(ctx, req, scheduler.KindTempBan)
	case "unban":
		b.handleUnban(ctx, req)
	case "kick":
		b.handleKick(ctx, req)
	case "mute":
		b.handleMute(ctx, req)
	case "tempmute":
		b.handleTimed(ctx, req, scheduler.KindTempMute)
	case "unmute":
		b.handleUnmute(ctx, req)
	case "warn":
		b.handleWarn(ctx, req)
	case "warnings":
		b.handleWarnings(ctx, req)
	case "purge":
		b.handlePurge(ctx, req)
	case "pending":
		b.handlePending(req)
	case "stats":
		b.handleStats(ctx, req)
	case "config":
		b.handleConfig(ctx, req)
	default:
		b.respondEmbed(interaction, b.errorEmbed("Unknown Command", "This subcommand is not supported."), true)
	}
}

// target returns the member option, refusing the invoker and the bot itself.
func (b *Bot) target(req modRequest) (*discordgo.User, bool) {
	user := req.options.user("member", req.resolved)
	if user == nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Missing Member", "Please choose a member."), true)
		return nil, false
	}
	if user.ID == req.moderatorID {
		b.respondEmbed(req.interaction, b.errorEmbed("Invalid Target", "You can't moderate yourself."), true)
		return nil, false
	}
	if id := b.botUserID(); id != "" && user.ID == id {
		b.respondEmbed(req.interaction, b.errorEmbed("Invalid Target", "I can't moderate myself."), true)
		return nil, false
	}
	return user, true
}

func (b *Bot) reason(req modRequest) string {
	return req.options.stringValue("reason", b.cfg.Moderation.DefaultReason)
}

func (b *Bot) handleBan(ctx context.Context, req modRequest) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	reason := b.reason(req)
	days := req.options.intValue("delete_days", b.cfg.Moderation.BanDeleteDays)

	pending, err := b.withdrawPending(scheduler.Key{GuildID: req.guildID, MemberID: user.ID, Kind: scheduler.KindTempBan})
	if err != nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Unban In Progress", "The automatic unban for this member is already running. Try again in a moment."), true)
		return
	}

	b.deferReply(req.interaction, false)
	b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("🔨 You were banned",
		fmt.Sprintf("You have been banned from **%s**.", b.guildName(req.guildID)),
		b.cfg.Notifications.EmbedColors.Red,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))

	if err := b.api.GuildBanCreateWithReason(req.guildID, user.ID, reason, days); err != nil {
		b.restorePending(pending)
		b.retractDM(ctx, req.guildID, user.ID, "ban")
		b.actionFailed(req, "ban", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: audit.ActionBan, Reason: reason})

	b.followUp(req.interaction, b.commandEmbed("🔨 Member Banned",
		fmt.Sprintf("%s has been banned", mention(user.ID)),
		b.cfg.Notifications.EmbedColors.Red,
		[]*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Messages Deleted", Value: fmt.Sprintf("%d day(s)", days)},
		}))
}

// handleTimed applies a temp-ban or temp-mute and schedules its reversal.
func (b *Bot) handleTimed(ctx context.Context, req modRequest, kind scheduler.Kind) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	raw := req.options.stringValue("duration", "")
	delay, err := duration.Parse(raw)
	if err != nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Invalid Duration", "Invalid duration format! Use: 1h, 2d, 1w etc."), true)
		return
	}
	reason := b.reason(req)
	key := scheduler.Key{GuildID: req.guildID, MemberID: user.ID, Kind: kind}
	if existing, ok := b.scheduler.Get(key); ok {
		b.respondEmbed(req.interaction, b.alreadyPendingEmbed(existing), true)
		return
	}

	b.deferReply(req.interaction, false)
	if kind == scheduler.KindTempBan {
		// must go out before the ban removes the shared guild
		b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("⏳ You were temporarily banned",
			fmt.Sprintf("You have been banned from **%s** for %s.", b.guildName(req.guildID), formatDelay(delay)),
			b.cfg.Notifications.EmbedColors.Orange,
			[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
	}

	handle, err := b.scheduler.ApplyAndSchedule(ctx, scheduler.Request{
		Key:         key,
		Delay:       delay,
		Reason:      reason,
		ChannelID:   req.interaction.ChannelID,
		ModeratorID: req.moderatorID,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrDuplicateKey) {
			existing, _ := b.scheduler.Get(key)
			b.followUp(req.interaction, b.alreadyPendingEmbed(existing))
			return
		}
		if kind == scheduler.KindTempBan {
			b.retractDM(ctx, req.guildID, user.ID, "ban")
		}
		b.actionFailed(req, kind.String(), err)
		return
	}

	action := audit.ActionTempBan
	title := "⏳ Member Temporarily Banned"
	verb := "banned"
	if kind == scheduler.KindTempMute {
		action = audit.ActionTempMute
		title = "🔇 Member Temporarily Muted"
		verb = "muted"
		b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("🔇 You were muted",
			fmt.Sprintf("You have been muted in **%s** for %s.", b.guildName(req.guildID), formatDelay(delay)),
			b.cfg.Notifications.EmbedColors.Orange,
			[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: action, Reason: reason, Duration: delay})

	b.followUp(req.interaction, b.commandEmbed(title,
		fmt.Sprintf("%s has been %s for %s", mention(user.ID), verb, formatDelay(delay)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Expires", Value: fmt.Sprintf("<t:%d:R>", handle.FireAt.Unix()), Inline: true},
		}))
}

func (b *Bot) alreadyPendingEmbed(existing scheduler.Snapshot) *discordgo.MessageEmbed {
	return b.errorEmbed("Already Scheduled",
		fmt.Sprintf("%s already has a pending %s that lifts <t:%d:R>. Lift it first to change the duration.",
			mention(existing.Key.MemberID), kindLabel(existing.Key.Kind), existing.FireAt.Unix()))
}

// withdrawPending takes back a scheduled reversal that a manual command
// supersedes. It returns nil when nothing was pending and ErrFiring when the
// reversal is already running.
func (b *Bot) withdrawPending(key scheduler.Key) (*scheduler.Snapshot, error) {
	snap, err := b.scheduler.Withdraw(key)
	switch {
	case err == nil:
		b.logger.Info("pending reversal withdrawn", zap.String("guild_id", key.GuildID), zap.String("member_id", key.MemberID), zap.String("kind", key.Kind.String()))
		return &snap, nil
	case errors.Is(err, scheduler.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// restorePending puts a withdrawn reversal back after the manual command
// that superseded it failed.
func (b *Bot) restorePending(snap *scheduler.Snapshot) {
	if snap == nil {
		return
	}
	if _, err := b.scheduler.Reinstate(*snap); err != nil {
		b.logger.Error("withdrawn reversal could not be restored, manual action required",
			zap.String("guild_id", snap.Key.GuildID), zap.String("member_id", snap.Key.MemberID),
			zap.String("kind", snap.Key.Kind.String()), zap.Time("fire_at", snap.FireAt), zap.Error(err))
		return
	}
	b.logger.Info("pending reversal restored", zap.String("guild_id", snap.Key.GuildID), zap.String("member_id", snap.Key.MemberID), zap.String("kind", snap.Key.Kind.String()))
}

// retractDM corrects a notice that was sent before an action that then
// failed. The notice has to go out first because a ban removes the shared
// guild and with it the DM channel.
func (b *Bot) retractDM(ctx context.Context, guildID, userID, action string) {
	b.dmUser(ctx, guildID, userID, b.commandEmbed("ℹ️ Action not applied",
		fmt.Sprintf("Please ignore the previous message: the %s in **%s** did not go through.", action, b.guildName(guildID)),
		b.cfg.Notifications.EmbedColors.Blue, nil))
}

func (b *Bot) handleUnban(ctx context.Context, req modRequest) {
	userID := req.options.stringValue("user_id", "")
	if !isSnowflake(userID) {
		b.respondEmbed(req.interaction, b.errorEmbed("Invalid User", "Please provide a valid user ID."), true)
		return
	}
	reason := b.reason(req)
	pending, err := b.withdrawPending(scheduler.Key{GuildID: req.guildID, MemberID: userID, Kind: scheduler.KindTempBan})
	if err != nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Unban In Progress", "The automatic unban for this user is already running."), true)
		return
	}

	if err := b.api.GuildBanDelete(req.guildID, userID); err != nil {
		if restErrorCode(err) == discordgo.ErrCodeUnknownBan {
			b.respondEmbed(req.interaction, b.errorEmbed("Not Banned", fmt.Sprintf("%s is not banned.", mention(userID))), true)
			return
		}
		b.restorePending(pending)
		b.respondActionError(req, "unban", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: userID, ModeratorID: req.moderatorID, Action: audit.ActionUnban, Reason: reason})
	b.respondEmbed(req.interaction, b.commandEmbed("🔓 User Unbanned",
		fmt.Sprintf("%s has been unbanned", mention(userID)),
		b.cfg.Notifications.EmbedColors.Green,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}), false)
}

func (b *Bot) handleKick(ctx context.Context, req modRequest) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	reason := b.reason(req)

	b.deferReply(req.interaction, false)
	b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("👢 You were kicked",
		fmt.Sprintf("You have been kicked from **%s**.", b.guildName(req.guildID)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))

	if err := b.api.GuildMemberDeleteWithReason(req.guildID, user.ID, reason); err != nil {
		b.actionFailed(req, "kick", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: audit.ActionKick, Reason: reason})
	b.followUp(req.interaction, b.commandEmbed("👢 Member Kicked",
		fmt.Sprintf("%s has been kicked", mention(user.ID)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
}

func (b *Bot) handleMute(ctx context.Context, req modRequest) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	reason := b.reason(req)
	pending, err := b.withdrawPending(scheduler.Key{GuildID: req.guildID, MemberID: user.ID, Kind: scheduler.KindTempMute})
	if err != nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Unmute In Progress", "The automatic unmute for this member is already running."), true)
		return
	}

	b.deferReply(req.interaction, false)
	if err := b.executor.mute(ctx, req.guildID, user.ID); err != nil {
		b.restorePending(pending)
		b.actionFailed(req, "mute", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: audit.ActionMute, Reason: reason})
	b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("🔇 You were muted",
		fmt.Sprintf("You have been muted in **%s**.", b.guildName(req.guildID)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
	b.followUp(req.interaction, b.commandEmbed("🔇 Member Muted",
		fmt.Sprintf("%s has been muted", mention(user.ID)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
}

func (b *Bot) handleUnmute(ctx context.Context, req modRequest) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	reason := b.reason(req)
	pending, err := b.withdrawPending(scheduler.Key{GuildID: req.guildID, MemberID: user.ID, Kind: scheduler.KindTempMute})
	if err != nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Unmute In Progress", "The automatic unmute for this member is already running."), true)
		return
	}

	b.deferReply(req.interaction, false)
	if err := b.executor.unmute(ctx, req.guildID, user.ID); err != nil {
		b.restorePending(pending)
		b.actionFailed(req, "unmute", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: audit.ActionUnmute, Reason: reason})
	b.followUp(req.interaction, b.commandEmbed("🔊 Member Unmuted",
		fmt.Sprintf("%s has been unmuted", mention(user.ID)),
		b.cfg.Notifications.EmbedColors.Green,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))
}

func (b *Bot) handleWarn(ctx context.Context, req modRequest) {
	user, ok := b.target(req)
	if !ok {
		return
	}
	reason := b.reason(req)
	forgive := time.Duration(b.cfg.Moderation.WarnForgiveDays) * 24 * time.Hour

	b.deferReply(req.interaction, false)
	count, err := b.store.IncrementInfraction(ctx, req.guildID, user.ID, storage.CategoryWarn, audit.ActionWarn, forgive)
	if err != nil {
		b.actionFailed(req, "warn", err)
		return
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: user.ID, ModeratorID: req.moderatorID, Action: audit.ActionWarn, Reason: reason})
	b.dmUser(ctx, req.guildID, user.ID, b.commandEmbed("⚠️ You received a warning",
		fmt.Sprintf("You have been warned in **%s**.", b.guildName(req.guildID)),
		b.cfg.Notifications.EmbedColors.Orange,
		[]*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}}))

	fields := []*discordgo.MessageEmbedField{
		{Name: "Reason", Value: reason},
		{Name: "Active Warnings", Value: fmt.Sprintf("%d", count), Inline: true},
	}
	if escalation := b.escalateWarnings(ctx, req, user.ID, count); escalation != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Escalation", Value: escalation})
	}
	b.followUp(req.interaction, b.commandEmbed("⚠️ Member Warned",
		fmt.Sprintf("%s has been warned", mention(user.ID)),
		b.cfg.Notifications.EmbedColors.Orange, fields))
}

// escalateWarnings temp-mutes a member who reached the warning threshold and
// resets their counter.
func (b *Bot) escalateWarnings(ctx context.Context, req modRequest, userID string, count int) string {
	threshold := b.cfg.Moderation.WarnThreshold
	if threshold <= 0 || count < threshold {
		return ""
	}
	delay, err := duration.Parse(b.cfg.Moderation.WarnMuteDuration)
	if err != nil {
		b.logger.Warn("invalid warn mute duration", zap.String("value", b.cfg.Moderation.WarnMuteDuration), zap.Error(err))
		return ""
	}

	reason := fmt.Sprintf("Reached %d warnings", count)
	_, err = b.scheduler.ApplyAndSchedule(ctx, scheduler.Request{
		Key:         scheduler.Key{GuildID: req.guildID, MemberID: userID, Kind: scheduler.KindTempMute},
		Delay:       delay,
		Reason:      reason,
		ChannelID:   req.interaction.ChannelID,
		ModeratorID: req.moderatorID,
	})
	switch {
	case errors.Is(err, scheduler.ErrDuplicateKey):
		return "Warning threshold reached; member is already muted."
	case err != nil:
		b.logger.Warn("warn escalation failed", zap.String("guild_id", req.guildID), zap.String("member_id", userID), zap.Error(err))
		return "Warning threshold reached, but the automatic mute failed."
	}

	if err := b.store.ResetInfraction(ctx, req.guildID, userID, storage.CategoryWarn); err != nil {
		b.logger.Warn("reset warnings failed", zap.String("guild_id", req.guildID), zap.String("member_id", userID), zap.Error(err))
	}
	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: userID, ModeratorID: req.moderatorID, Action: audit.ActionTempMute, Reason: reason, Duration: delay})
	return fmt.Sprintf("Muted for %s after %d warnings.", formatDelay(delay), count)
}

func (b *Bot) handleWarnings(ctx context.Context, req modRequest) {
	user := req.options.user("member", req.resolved)
	if user == nil {
		b.respondEmbed(req.interaction, b.errorEmbed("Missing Member", "Please choose a member."), true)
		return
	}
	inf, err := b.store.GetInfraction(ctx, req.guildID, user.ID, storage.CategoryWarn)
	if err != nil {
		b.respondActionError(req, "warnings", err)
		return
	}
	cases, err := b.store.ListCasesForUser(ctx, req.guildID, user.ID, 10)
	if err != nil {
		b.respondActionError(req, "warnings", err)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Active Warnings", Value: fmt.Sprintf("%d / %d", inf.CountTotal, b.cfg.Moderation.WarnThreshold), Inline: true},
	}
	if inf.ResetAt != nil && inf.CountTotal > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Forgiven", Value: fmt.Sprintf("<t:%d:R>", inf.ResetAt.Unix()), Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Recent Cases", Value: caseLines(cases, time.Now())})
	b.respondEmbed(req.interaction, b.commandEmbed(
		fmt.Sprintf("📒 Warnings for %s", user.Username), mention(user.ID),
		b.cfg.Notifications.EmbedColors.Blue, fields), true)
}

func (b *Bot) handlePurge(ctx context.Context, req modRequest) {
	amount := req.options.intValue("amount", 0)
	if amount < 1 || amount > b.cfg.Moderation.PurgeMax {
		b.respondEmbed(req.interaction, b.errorEmbed("Invalid Amount",
			fmt.Sprintf("Choose between 1 and %d messages.", b.cfg.Moderation.PurgeMax)), true)
		return
	}

	b.deferReply(req.interaction, true)
	channelID := req.interaction.ChannelID
	messages, err := b.api.ChannelMessages(channelID, amount, "", "", "")
	if err != nil {
		b.actionFailed(req, "purge", err)
		return
	}
	ids := purgeable(messages, time.Now())
	switch len(ids) {
	case 0:
	case 1:
		err = b.api.ChannelMessageDelete(channelID, ids[0])
	default:
		err = b.api.ChannelMessagesBulkDelete(channelID, ids)
	}
	if err != nil {
		b.actionFailed(req, "purge", err)
		return
	}

	b.record(ctx, storage.ModCase{GuildID: req.guildID, TargetID: channelID, ModeratorID: req.moderatorID, Action: audit.ActionPurge,
		Reason: fmt.Sprintf("%d messages in <#%s>", len(ids), channelID)})
	description := fmt.Sprintf("Deleted %d message(s).", len(ids))
	if skipped := len(messages) - len(ids); skipped > 0 {
		description += fmt.Sprintf(" %d older than 14 days were skipped.", skipped)
	}
	b.followUp(req.interaction, b.commandEmbed("🧹 Messages Purged", description, b.cfg.Notifications.EmbedColors.Green, nil))
}

// purgeable keeps the ids Discord still allows to be bulk deleted.
func purgeable(messages []*discordgo.Message, now time.Time) []string {
	ids := make([]string, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			continue
		}
		if now.Sub(message.Timestamp) >= bulkDeleteMaxAge {
			continue
		}
		ids = append(ids, message.ID)
	}
	return ids
}

func (b *Bot) handlePending(req modRequest) {
	pending := b.scheduler.Pending(req.guildID)
	b.respondEmbed(req.interaction, b.commandEmbed("⏱️ Pending Reversals",
		pendingLines(pending, time.Now(), 15),
		b.cfg.Notifications.EmbedColors.Blue,
		[]*discordgo.MessageEmbedField{{Name: "Total", Value: fmt.Sprintf("%d", len(pending)), Inline: true}}), true)
}

func (b *Bot) handleStats(ctx context.Context, req modRequest) {
	period := req.options.stringValue("period", "week")
	report, err := b.analytics.Report(ctx, req.guildID, analytics.PeriodStart(period, time.Now()))
	if err != nil {
		b.respondActionError(req, "stats", err)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Total Actions", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Pending Reversals", Value: fmt.Sprintf("%d", len(b.scheduler.Pending(req.guildID))), Inline: true},
	}
	b.respondEmbed(req.interaction, b.commandEmbed(
		fmt.Sprintf("📈 Moderation Stats (%s)", period), statsLines(report),
		b.cfg.Notifications.EmbedColors.Purple, fields), true)
}

func (b *Bot) handleConfig(ctx context.Context, req modRequest) {
	if channelID := req.options.channelID("modlog"); channelID != "" {
		if err := b.store.SetModLogChannel(ctx, req.guildID, channelID); err != nil {
			b.respondActionError(req, "config", err)
			return
		}
	}
	if enabled, ok := req.options.boolValue("dm"); ok {
		if err := b.store.SetDMEnabled(ctx, req.guildID, enabled); err != nil {
			b.respondActionError(req, "config", err)
			return
		}
	}

	settings := b.guildSettings(ctx, req.guildID)
	modLog := "Not set"
	if settings.ModLogChannel != "" {
		modLog = fmt.Sprintf("<#%s>", settings.ModLogChannel)
	}
	dms := "Disabled"
	if settings.DMEnabled {
		dms = "Enabled"
	}
	mutedRole := "Not created yet"
	if settings.MutedRoleID != "" {
		mutedRole = fmt.Sprintf("<@&%s>", settings.MutedRoleID)
	}
	b.respondEmbed(req.interaction, b.commandEmbed("⚙️ Moderation Settings", "Current settings for this server.",
		b.cfg.Notifications.EmbedColors.Blue,
		[]*discordgo.MessageEmbedField{
			{Name: "Mod Log", Value: modLog, Inline: true},
			{Name: "Member DMs", Value: dms, Inline: true},
			{Name: "Muted Role", Value: mutedRole, Inline: true},
		}), true)
}

// actionFailed reports an error after the reply was deferred.
func (b *Bot) actionFailed(req modRequest, action string, err error) {
	b.logger.Warn("moderation action failed", zap.String("guild_id", req.guildID), zap.String("action", action), zap.Error(err))
	b.followUp(req.interaction, b.actionErrorEmbed(err))
}

func (b *Bot) respondActionError(req modRequest, action string, err error) {
	b.logger.Warn("moderation action failed", zap.String("guild_id", req.guildID), zap.String("action", action), zap.Error(err))
	b.respondEmbed(req.interaction, b.actionErrorEmbed(err), true)
}

func (b *Bot) actionErrorEmbed(err error) *discordgo.MessageEmbed {
	if isMissingPermissions(err) {
		return b.errorEmbed("Bot Missing Permissions", "I don't have the required permissions to execute this command!")
	}
	return b.errorEmbed("An Error Occurred", fmt.Sprintf("```%s```", truncate(err.Error(), 1000)))
}

func isSnowflake(value string) bool {
	if len(value) < 15 || len(value) > 21 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
