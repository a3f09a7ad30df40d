package audit

import (
	"context"
	"time"

	"sentinel-moderation/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

const (
	ActionBan           = "ban"
	ActionTempBan       = "temp_ban"
	ActionUnban         = "unban"
	ActionKick          = "kick"
	ActionMute          = "mute"
	ActionTempMute      = "temp_mute"
	ActionUnmute        = "unmute"
	ActionWarn          = "warn"
	ActionPurge         = "purge"
	ActionAutoUnban     = "auto_unban"
	ActionAutoUnmute    = "auto_unmute"
	ActionReverseFailed = "reverse_failed"
)

type caseStore interface {
	AddCase(ctx context.Context, c storage.ModCase) (int64, error)
}

type Logger struct {
	store  caseStore
	logger *zap.Logger
	notify func(context.Context, storage.ModCase)
	now    func() time.Time
}

func NewLogger(store caseStore, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger, now: time.Now}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.ModCase)) {
	l.notify = notify
}

// Record stores a moderation case, mirrors it to the notifier and returns
// the case number (0 when nothing was stored).
func (l *Logger) Record(ctx context.Context, entry storage.ModCase) int64 {
	if entry.Level == "" {
		entry.Level = LevelFor(entry.Action)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	if l.store != nil {
		id, err := l.store.AddCase(ctx, entry)
		if err != nil {
			l.logger.Warn("store moderation case failed", zap.String("guild_id", entry.GuildID), zap.String("action", entry.Action), zap.Error(err))
		} else {
			entry.ID = id
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("moderation case",
		zap.Int64("case_id", entry.ID),
		zap.String("level", entry.Level),
		zap.String("guild_id", entry.GuildID),
		zap.String("member_id", entry.TargetID),
		zap.String("moderator_id", entry.ModeratorID),
		zap.String("action", entry.Action),
		zap.Duration("duration", entry.Duration),
		zap.String("reason", entry.Reason),
	)
	return entry.ID
}

func LevelFor(action string) string {
	switch action {
	case ActionReverseFailed:
		return LevelCrit
	case ActionBan, ActionTempBan, ActionKick, ActionPurge:
		return LevelWarn
	default:
		return LevelInfo
	}
}
