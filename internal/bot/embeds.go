package bot

import (
	"fmt"
	"strings"
	"time"

	"sentinel-moderation/internal/analytics"
	"sentinel-moderation/internal/duration"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: b.cfg.Notifications.EmbedFooterText},
	}
}

func (b *Bot) errorEmbed(title, description string) *discordgo.MessageEmbed {
	return b.commandEmbed("❌ "+title, description, b.cfg.Notifications.EmbedColors.Red, nil)
}

func (b *Bot) caseEmbed(entry storage.ModCase) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: mention(entry.TargetID), Inline: true},
		{Name: "Moderator", Value: mentionOr(entry.ModeratorID, "Sentinel"), Inline: true},
		{Name: "Level", Value: entry.Level, Inline: true},
	}
	if entry.Duration > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Duration", Value: formatDelay(entry.Duration), Inline: true})
	}
	if entry.Reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Reason", Value: truncate(entry.Reason, 1000), Inline: false})
	}
	title := fmt.Sprintf("📋 Case #%d · %s", entry.ID, actionLabel(entry.Action))
	if entry.ID == 0 {
		title = "📋 " + actionLabel(entry.Action)
	}
	return b.commandEmbed(title, "", b.levelColor(entry.Level), fields)
}

func (b *Bot) levelColor(level string) int {
	colors := b.cfg.Notifications.EmbedColors
	switch level {
	case audit.LevelCrit:
		return colors.Red
	case audit.LevelWarn:
		return colors.Orange
	default:
		return colors.Blue
	}
}

func actionLabel(action string) string {
	switch action {
	case audit.ActionBan:
		return "Ban"
	case audit.ActionTempBan:
		return "Temporary Ban"
	case audit.ActionUnban:
		return "Unban"
	case audit.ActionKick:
		return "Kick"
	case audit.ActionMute:
		return "Mute"
	case audit.ActionTempMute:
		return "Temporary Mute"
	case audit.ActionUnmute:
		return "Unmute"
	case audit.ActionWarn:
		return "Warning"
	case audit.ActionPurge:
		return "Purge"
	case audit.ActionAutoUnban:
		return "Automatic Unban"
	case audit.ActionAutoUnmute:
		return "Automatic Unmute"
	case audit.ActionReverseFailed:
		return "Reversal Failed"
	default:
		return action
	}
}

func kindLabel(kind scheduler.Kind) string {
	if kind == scheduler.KindTempMute {
		return "mute"
	}
	return "ban"
}

// pendingLines renders one line per pending reversal, soonest first.
func pendingLines(pending []scheduler.Snapshot, now time.Time, limit int) string {
	if len(pending) == 0 {
		return "Nothing is scheduled."
	}
	var lines []string
	for i, snap := range pending {
		if limit > 0 && i == limit {
			lines = append(lines, fmt.Sprintf("…and %d more", len(pending)-limit))
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s %s, lifts %s (<t:%d:f>)",
			kindEmoji(snap.Key.Kind), kindLabel(snap.Key.Kind), mention(snap.Key.MemberID),
			humanize.RelTime(snap.FireAt, now, "ago", "from now"), snap.FireAt.Unix()))
	}
	return strings.Join(lines, "\n")
}

func kindEmoji(kind scheduler.Kind) string {
	if kind == scheduler.KindTempMute {
		return "🔇"
	}
	return "⏳"
}

func statsLines(report analytics.Report) string {
	ranked := report.Ranked()
	if len(ranked) == 0 {
		return "No moderation actions recorded."
	}
	lines := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		lines = append(lines, fmt.Sprintf("**%s**: %s", actionLabel(entry.Action), humanize.Comma(int64(entry.Count))))
	}
	return strings.Join(lines, "\n")
}

func caseLines(cases []storage.ModCase, now time.Time) string {
	if len(cases) == 0 {
		return "No recorded cases."
	}
	lines := make([]string, 0, len(cases))
	for _, c := range cases {
		line := fmt.Sprintf("#%d %s, %s", c.ID, actionLabel(c.Action), humanize.RelTime(c.CreatedAt, now, "ago", "from now"))
		if c.Reason != "" {
			line += ": " + truncate(c.Reason, 80)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatDelay(d time.Duration) string {
	return duration.Format(d)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func mentionOr(userID, fallback string) string {
	if userID == "" {
		return fallback
	}
	return mention(userID)
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
