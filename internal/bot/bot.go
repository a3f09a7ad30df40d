package bot

import (
	"context"
	"time"

	"sentinel-moderation/internal/analytics"
	"sentinel-moderation/internal/config"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/modules/ratelimit"
	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	audit     *audit.Logger
	analytics *analytics.Service
	limiter   *ratelimit.Limiter
	session   *discordgo.Session
	api       discordAPI
	executor  *executor
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildBans

	api := sessionAPI{session: session}
	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsEngine,
		limiter:   ratelimit.New(cfg.Limits.ActionsPerWindow, time.Duration(cfg.Limits.WindowSeconds)*time.Second),
		session:   session,
		api:       api,
		executor:  newExecutor(api, store, cfg.Moderation.MutedRoleName, logger),
		startedAt: time.Now(),
	}

	b.scheduler = scheduler.New(scheduler.Config{
		Mode:          cfg.Scheduler.Mode,
		SweepInterval: cfg.Scheduler.SweepInterval,
		MaxAttempts:   cfg.Scheduler.MaxAttempts,
		BackoffBase:   cfg.Scheduler.BackoffBase,
		BackoffMax:    cfg.Scheduler.BackoffMax,
	}, scheduler.NewStore(), b.executor, &notifier{
		api:    api,
		audit:  auditLogger,
		colors: cfg.Notifications.EmbedColors,
		footer: cfg.Notifications.EmbedFooterText,
	}, logger.Named("scheduler"))

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.ModCase) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.sendModLog(ctx, entry.GuildID, b.caseEmbed(entry))
		})
	}

	return b, nil
}

func (b *Bot) Scheduler() *scheduler.Scheduler {
	return b.scheduler
}

func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onChannelCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.scheduler.Start(ctx)
	go b.maintenance(ctx)

	return nil
}

// Close drops pending reversals (they are logged by the scheduler) and
// disconnects from the gateway.
func (b *Bot) Close(ctx context.Context) {
	if err := b.scheduler.Shutdown(ctx); err != nil {
		b.logger.Warn("scheduler shutdown incomplete", zap.Error(err))
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
	if err := session.UpdateWatchStatus(0, "over the server"); err != nil {
		b.logger.Debug("update status failed", zap.Error(err))
	}
}

func (b *Bot) onChannelCreate(session *discordgo.Session, event *discordgo.ChannelCreate) {
	if event.Channel == nil || event.Channel.GuildID == "" {
		return
	}
	b.executor.onChannelCreate(context.Background(), event.Channel)
}

func (b *Bot) maintenance(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.limiter.Prune()
			if b.cfg.Moderation.CaseRetention <= 0 {
				continue
			}
			if err := b.store.CleanupCases(ctx, b.cfg.Moderation.CaseRetention); err != nil {
				b.logger.Warn("case cleanup failed", zap.Error(err))
			}
		}
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:       guildID,
		ModLogChannel: b.cfg.ModLogChannel,
		DMEnabled:     b.cfg.Notifications.DMEnabled,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) sendModLog(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) {
	channelID := b.guildSettings(ctx, guildID).ModLogChannel
	if channelID == "" || embed == nil {
		return
	}
	if _, err := b.api.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("mod log send failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// dmUser is best effort; members often have DMs closed.
func (b *Bot) dmUser(ctx context.Context, guildID, userID string, embed *discordgo.MessageEmbed) {
	if userID == "" || embed == nil || !b.guildSettings(ctx, guildID).DMEnabled {
		return
	}
	channel, err := b.api.UserChannelCreate(userID)
	if err != nil {
		return
	}
	_, _ = b.api.ChannelMessageSendEmbed(channel.ID, embed)
}

func (b *Bot) record(ctx context.Context, entry storage.ModCase) int64 {
	if b.audit == nil {
		return 0
	}
	return b.audit.Record(ctx, entry)
}

func (b *Bot) respond(interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	b.reply(interaction, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   replyFlags(ephemeral),
	})
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(interaction, "No response available.", ephemeral)
		return
	}
	b.reply(interaction, discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  replyFlags(ephemeral),
	})
}

// deferReply acknowledges slow commands; the answer follows via followUp.
func (b *Bot) deferReply(interaction *discordgo.InteractionCreate, ephemeral bool) {
	b.reply(interaction, discordgo.InteractionResponseDeferredChannelMessageWithSource, &discordgo.InteractionResponseData{
		Flags: replyFlags(ephemeral),
	})
}

func (b *Bot) reply(interaction *discordgo.InteractionCreate, kind discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) {
	if err := b.api.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{Type: kind, Data: data}); err != nil {
		b.logger.Debug("interaction response failed", zap.Error(err))
	}
}

func (b *Bot) followUp(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := b.api.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		b.logger.Warn("interaction follow-up failed", zap.Error(err))
	}
}

func replyFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// botUserID is empty until the gateway session is ready.
func (b *Bot) botUserID() string {
	if b.session == nil || b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

func (b *Bot) guildName(guildID string) string {
	if b.session != nil && b.session.State != nil {
		if guild, err := b.session.State.Guild(guildID); err == nil && guild != nil {
			return guild.Name
		}
	}
	return "the server"
}
