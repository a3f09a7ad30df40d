package bot

import (
	"context"
	"fmt"
	"sync"

	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	mutedRoleColor = 0x607D8B
	mutedDeny      = discordgo.PermissionSendMessages |
		discordgo.PermissionAddReactions |
		discordgo.PermissionVoiceSpeak |
		discordgo.PermissionVoiceConnect
)

type roleStore interface {
	GetGuildSettings(ctx context.Context, guildID string, defaults storage.GuildSettings) (storage.GuildSettings, error)
	SetMutedRole(ctx context.Context, guildID, roleID string) error
}

// executor applies and reverses timed actions against the Discord API.
type executor struct {
	api      discordAPI
	store    roleStore
	roleName string
	logger   *zap.Logger

	mu        sync.Mutex
	roleLocks map[string]*sync.Mutex
}

func newExecutor(api discordAPI, store roleStore, roleName string, logger *zap.Logger) *executor {
	return &executor{
		api:       api,
		store:     store,
		roleName:  roleName,
		logger:    logger,
		roleLocks: make(map[string]*sync.Mutex),
	}
}

func (e *executor) Apply(ctx context.Context, guildID, memberID string, kind scheduler.Kind, reason string) error {
	switch kind {
	case scheduler.KindTempBan:
		return e.api.GuildBanCreateWithReason(guildID, memberID, "Tempban: "+reason, 0)
	case scheduler.KindTempMute:
		return e.mute(ctx, guildID, memberID)
	default:
		return fmt.Errorf("unsupported action kind %s", kind)
	}
}

// Reverse treats a member that is already unbanned or gone as done.
func (e *executor) Reverse(ctx context.Context, guildID, memberID string, kind scheduler.Kind) error {
	switch kind {
	case scheduler.KindTempBan:
		err := e.api.GuildBanDelete(guildID, memberID)
		if restErrorCode(err) == discordgo.ErrCodeUnknownBan {
			return nil
		}
		return err
	case scheduler.KindTempMute:
		return e.unmute(ctx, guildID, memberID)
	default:
		return fmt.Errorf("unsupported action kind %s", kind)
	}
}

func (e *executor) mute(ctx context.Context, guildID, memberID string) error {
	roleID, err := e.mutedRole(ctx, guildID, true)
	if err != nil {
		return err
	}
	return e.api.GuildMemberRoleAdd(guildID, memberID, roleID)
}

func (e *executor) unmute(ctx context.Context, guildID, memberID string) error {
	roleID, err := e.mutedRole(ctx, guildID, false)
	if err != nil || roleID == "" {
		return err
	}
	err = e.api.GuildMemberRoleRemove(guildID, memberID, roleID)
	if restErrorCode(err) == discordgo.ErrCodeUnknownMember {
		return nil
	}
	return err
}

// mutedRole resolves the guild's muted role: the stored id, then a role with
// the configured name, then (when create is set) a new role with send, react,
// speak and connect denied on every channel.
func (e *executor) mutedRole(ctx context.Context, guildID string, create bool) (string, error) {
	lock := e.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	settings, err := e.store.GetGuildSettings(ctx, guildID, storage.GuildSettings{})
	if err != nil {
		e.logger.Warn("muted role lookup fallback", zap.String("guild_id", guildID), zap.Error(err))
	}

	roles, err := e.api.GuildRoles(guildID)
	if err != nil {
		return "", err
	}
	for _, role := range roles {
		if settings.MutedRoleID != "" && role.ID == settings.MutedRoleID {
			return role.ID, nil
		}
	}
	for _, role := range roles {
		if role.Name == e.roleName {
			e.saveRole(ctx, guildID, role.ID)
			return role.ID, nil
		}
	}
	if !create {
		return "", nil
	}

	color := mutedRoleColor
	perms := int64(0)
	role, err := e.api.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        e.roleName,
		Color:       &color,
		Permissions: &perms,
	})
	if err != nil {
		return "", fmt.Errorf("create muted role: %w", err)
	}

	channels, err := e.api.GuildChannels(guildID)
	if err != nil {
		e.logger.Warn("list channels for muted role failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	for _, channel := range channels {
		e.denyChannel(guildID, channel, role.ID)
	}
	e.saveRole(ctx, guildID, role.ID)
	e.logger.Info("muted role created", zap.String("guild_id", guildID), zap.String("role_id", role.ID))
	return role.ID, nil
}

// denyChannel adds the muted overwrite to one channel.
func (e *executor) denyChannel(guildID string, channel *discordgo.Channel, roleID string) {
	if channel == nil {
		return
	}
	if err := e.api.ChannelPermissionSet(channel.ID, roleID, discordgo.PermissionOverwriteTypeRole, 0, mutedDeny); err != nil {
		e.logger.Warn("muted overwrite failed", zap.String("guild_id", guildID), zap.String("channel_id", channel.ID), zap.Error(err))
	}
}

// onChannelCreate extends an existing muted role to a new channel.
func (e *executor) onChannelCreate(ctx context.Context, channel *discordgo.Channel) {
	if channel == nil || channel.GuildID == "" {
		return
	}
	roleID, err := e.mutedRole(ctx, channel.GuildID, false)
	if err != nil || roleID == "" {
		return
	}
	e.denyChannel(channel.GuildID, channel, roleID)
}

func (e *executor) saveRole(ctx context.Context, guildID, roleID string) {
	if err := e.store.SetMutedRole(ctx, guildID, roleID); err != nil {
		e.logger.Warn("save muted role failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (e *executor) guildLock(guildID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock := e.roleLocks[guildID]
	if lock == nil {
		lock = &sync.Mutex{}
		e.roleLocks[guildID] = lock
	}
	return lock
}
