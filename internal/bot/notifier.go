package bot

import (
	"context"
	"fmt"
	"time"

	"sentinel-moderation/internal/config"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type caseRecorder interface {
	Record(ctx context.Context, entry storage.ModCase) int64
}

// notifier reports reversals in the channel where the action was issued and
// records them as moderation cases.
type notifier struct {
	api    discordAPI
	audit  caseRecorder
	colors config.EmbedColors
	footer string
}

func (n *notifier) Notify(ctx context.Context, event scheduler.Event) error {
	snap := event.Action
	entry := storage.ModCase{
		GuildID:     snap.Key.GuildID,
		TargetID:    snap.Key.MemberID,
		ModeratorID: snap.ModeratorID,
		Action:      reversalAction(event),
		Reason:      snap.Reason,
		Duration:    snap.FireAt.Sub(snap.AppliedAt),
	}
	if event.Err != nil {
		entry.Reason = fmt.Sprintf("%s (after %d attempts: %v)", snap.Reason, event.Attempts, event.Err)
	}
	if n.audit != nil {
		n.audit.Record(ctx, entry)
	}

	if snap.ChannelID == "" {
		return nil
	}
	_, err := n.api.ChannelMessageSendEmbed(snap.ChannelID, n.reversalEmbed(event))
	return err
}

func reversalAction(event scheduler.Event) string {
	if event.Type == scheduler.EventReverseFailed {
		return audit.ActionReverseFailed
	}
	if event.Action.Key.Kind == scheduler.KindTempMute {
		return audit.ActionAutoUnmute
	}
	return audit.ActionAutoUnban
}

func (n *notifier) reversalEmbed(event scheduler.Event) *discordgo.MessageEmbed {
	snap := event.Action
	label := "unbanned"
	if snap.Key.Kind == scheduler.KindTempMute {
		label = "unmuted"
	}
	length := formatDelay(snap.FireAt.Sub(snap.AppliedAt))

	embed := &discordgo.MessageEmbed{
		Timestamp: snap.FireAt.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: n.footer},
	}
	if event.Type == scheduler.EventReverseFailed {
		embed.Title = "❌ Automatic Reversal Failed"
		embed.Description = fmt.Sprintf("<@%s> could not be automatically %s after %s. Please do it manually.", snap.Key.MemberID, label, length)
		embed.Color = n.colors.Red
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Attempts", Value: fmt.Sprintf("%d", event.Attempts), Inline: true},
			{Name: "Error", Value: truncate(fmt.Sprint(event.Err), 1000), Inline: false},
		}
		return embed
	}
	embed.Title = "✅ Timed Action Expired"
	embed.Description = fmt.Sprintf("<@%s> has been automatically %s after %s", snap.Key.MemberID, label, length)
	embed.Color = n.colors.Green
	if snap.Reason != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Original Reason", Value: truncate(snap.Reason, 1000), Inline: false}}
	}
	return embed
}
